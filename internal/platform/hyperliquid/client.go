// Package hyperliquid is the REST client for the Hyperliquid info API, which
// serves mark prices and per-account clearinghouse state.
package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alanyoungcy/hypertrack/internal/domain"
)

// InfoClient queries the exchange info endpoint. All queries share one URL
// and are distinguished by a "type" field in the POST body.
type InfoClient struct {
	infoURL    string
	httpClient *http.Client
}

// NewInfoClient creates an info API client.
//
// infoURL is the info endpoint, e.g. "https://api.hyperliquid.xyz/info".
func NewInfoClient(infoURL string, timeout time.Duration) *InfoClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &InfoClient{
		infoURL: infoURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// AllMids returns the current mid price for every listed coin in a single
// batched call.
func (c *InfoClient) AllMids(ctx context.Context) (map[string]float64, error) {
	body, err := c.doPost(ctx, infoRequest{Type: "allMids"})
	if err != nil {
		return nil, fmt.Errorf("hyperliquid: all mids: %w", err)
	}

	var raw map[string]string
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("hyperliquid: decode all mids: %w", err)
	}

	mids := make(map[string]float64, len(raw))
	for coin, px := range raw {
		mids[coin] = parseFloat(px)
	}
	return mids, nil
}

// OpenPositions returns every open position for the given account address.
// Entries the exchange reports with zero size are discarded.
func (c *InfoClient) OpenPositions(ctx context.Context, address string) ([]APIPosition, error) {
	body, err := c.doPost(ctx, infoRequest{Type: "clearinghouseState", User: address})
	if err != nil {
		return nil, fmt.Errorf("hyperliquid: clearinghouse state %s: %w", address, err)
	}

	var state APIClearinghouseState
	if err := json.Unmarshal(body, &state); err != nil {
		return nil, fmt.Errorf("hyperliquid: decode clearinghouse state: %w", err)
	}

	positions := make([]APIPosition, 0, len(state.AssetPositions))
	for _, ap := range state.AssetPositions {
		if parseFloat(ap.Position.Szi) == 0 {
			continue
		}
		positions = append(positions, ap.Position)
	}
	return positions, nil
}

// RawPositions returns the account's open positions converted to the domain
// model.
func (c *InfoClient) RawPositions(ctx context.Context, address string) ([]domain.RawPosition, error) {
	apiPositions, err := c.OpenPositions(ctx, address)
	if err != nil {
		return nil, err
	}

	positions := make([]domain.RawPosition, 0, len(apiPositions))
	for _, ap := range apiPositions {
		if raw, ok := ap.ToRaw(address); ok {
			positions = append(positions, raw)
		}
	}
	return positions, nil
}

// doPost issues one info query and returns the raw response body.
func (c *InfoClient) doPost(ctx context.Context, reqBody infoRequest) ([]byte, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.infoURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 256))
	}

	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
