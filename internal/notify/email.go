// Package notify delivers new-position email alerts and keeps the audit
// trail of every dispatch attempt.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// EmailClient sends transactional email through a Resend-compatible HTTP
// API. With no API key configured the client is disabled and sends are
// skipped rather than failed.
type EmailClient struct {
	endpoint   string
	apiKey     string
	from       string
	httpClient *http.Client
}

// NewEmailClient creates an EmailClient.
func NewEmailClient(endpoint, apiKey, from string, timeout time.Duration) *EmailClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &EmailClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		from:     from,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Enabled reports whether the client has credentials to send.
func (c *EmailClient) Enabled() bool {
	return c.apiKey != ""
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

// Send delivers one message to the given recipients. Callers are expected to
// check Enabled first; a disabled client returns an error.
func (c *EmailClient) Send(ctx context.Context, to []string, subject, htmlBody, textBody string) error {
	if !c.Enabled() {
		return fmt.Errorf("notify: email client disabled, no api key")
	}

	payload, err := json.Marshal(sendRequest{
		From:    c.from,
		To:      to,
		Subject: subject,
		HTML:    htmlBody,
		Text:    textBody,
	})
	if err != nil {
		return fmt.Errorf("notify: marshal send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("notify: create send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("notify: send email: status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
