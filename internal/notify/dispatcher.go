package notify

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/hypertrack/internal/domain"
)

// EmailSender is the transport the dispatcher sends through.
type EmailSender interface {
	Enabled() bool
	Send(ctx context.Context, to []string, subject, htmlBody, textBody string) error
}

// Dispatcher delivers new-position alerts to the recipient list with bounded
// retries and records every outcome in the audit log. An audit or store
// failure never blocks the alert path.
type Dispatcher struct {
	sender      EmailSender
	recipients  domain.RecipientStore
	auditLog    domain.NotificationLogStore
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(
	sender EmailSender,
	recipients domain.RecipientStore,
	auditLog domain.NotificationLogStore,
	maxAttempts int,
	baseDelay, maxDelay time.Duration,
	logger *slog.Logger,
) *Dispatcher {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	if maxDelay < baseDelay {
		maxDelay = baseDelay
	}
	return &Dispatcher{
		sender:      sender,
		recipients:  recipients,
		auditLog:    auditLog,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
		logger:      logger.With(slog.String("component", "notify")),
		now:         time.Now,
	}
}

// NotifyNewPosition sends one alert about a freshly opened position. It
// returns true only when the transport accepted the message. An empty
// recipient list short-circuits to false without touching the transport.
func (d *Dispatcher) NotifyNewPosition(ctx context.Context, addr domain.TrackedAddress, pos domain.RawPosition) bool {
	sent, attempts := d.deliver(ctx, addr, pos)

	entry := domain.NotificationLogEntry{
		ID:         uuid.NewString(),
		Address:    pos.Address,
		Coin:       pos.Coin,
		Side:       pos.Side(),
		Size:       pos.Size,
		EntryPrice: pos.EntryPrice,
		Sent:       sent,
		Attempts:   attempts,
		SentAt:     d.now(),
	}
	if err := d.auditLog.Append(ctx, entry); err != nil {
		d.logger.ErrorContext(ctx, "notification audit append failed",
			slog.String("coin", pos.Coin),
			slog.String("error", err.Error()),
		)
	}

	return sent
}

// deliver attempts the send and reports whether it succeeded along with the
// number of transport attempts made (0 when the transport was never touched).
func (d *Dispatcher) deliver(ctx context.Context, addr domain.TrackedAddress, pos domain.RawPosition) (bool, int) {
	recipients, err := d.recipients.List(ctx)
	if err != nil {
		d.logger.ErrorContext(ctx, "recipient list load failed",
			slog.String("error", err.Error()),
		)
		return false, 0
	}
	if len(recipients) == 0 {
		d.logger.DebugContext(ctx, "no alert recipients configured, skipping send")
		return false, 0
	}

	to := make([]string, len(recipients))
	for i, r := range recipients {
		to[i] = r.Email
	}

	subject, htmlBody, textBody := buildAlert(addr, pos)

	if !d.sender.Enabled() {
		d.logger.InfoContext(ctx, "email transport disabled, alert logged only",
			slog.String("subject", subject),
			slog.Int("recipients", len(to)),
		)
		return false, 0
	}

	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		err := d.sender.Send(ctx, to, subject, htmlBody, textBody)
		if err == nil {
			d.logger.InfoContext(ctx, "alert sent",
				slog.String("coin", pos.Coin),
				slog.String("address", pos.Address),
				slog.Int("recipients", len(to)),
				slog.Int("attempt", attempt),
			)
			return true, attempt
		}

		d.logger.WarnContext(ctx, "alert send failed",
			slog.String("coin", pos.Coin),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", d.maxAttempts),
			slog.String("error", err.Error()),
		)

		if attempt == d.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return false, attempt
		case <-time.After(d.backoff(attempt)):
		}
	}
	return false, d.maxAttempts
}

// backoff doubles the base delay per attempt, capped at maxDelay.
func (d *Dispatcher) backoff(attempt int) time.Duration {
	delay := time.Duration(float64(d.baseDelay) * math.Pow(2, float64(attempt-1)))
	if delay > d.maxDelay {
		delay = d.maxDelay
	}
	return delay
}

// buildAlert renders the deterministic subject and bodies for one alert.
func buildAlert(addr domain.TrackedAddress, pos domain.RawPosition) (subject, htmlBody, textBody string) {
	label := addr.Label()

	subject = fmt.Sprintf("New %s position: %s by %s", pos.Side(), pos.Coin, label)

	textBody = fmt.Sprintf(
		"Trader %s opened a new position.\n\nCoin: %s\nSide: %s\nSize: %.6f\nEntry price: %.6f\nLeverage: %dx\nAddress: %s\n",
		label, pos.Coin, pos.Side(), pos.Size, pos.EntryPrice, pos.Leverage, pos.Address,
	)

	htmlBody = fmt.Sprintf(
		`<h2>New position opened</h2>
<p><strong>%s</strong> opened a new %s position.</p>
<table>
<tr><td>Coin</td><td>%s</td></tr>
<tr><td>Side</td><td>%s</td></tr>
<tr><td>Size</td><td>%.6f</td></tr>
<tr><td>Entry price</td><td>%.6f</td></tr>
<tr><td>Leverage</td><td>%dx</td></tr>
<tr><td>Address</td><td><code>%s</code></td></tr>
</table>`,
		label, pos.Side(), pos.Coin, pos.Side(), pos.Size, pos.EntryPrice, pos.Leverage, pos.Address,
	)

	return subject, htmlBody, textBody
}
