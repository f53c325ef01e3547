// Package pipeline contains the long-running background loops: the poll
// cycle scheduler and the cold-storage archive loop.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alanyoungcy/hypertrack/internal/config"
	"github.com/alanyoungcy/hypertrack/internal/domain"
	"github.com/alanyoungcy/hypertrack/internal/service"
)

// CycleRunner executes one full poll cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) (service.CycleSummary, error)
}

// Poller schedules poll cycles on a runtime-mutable interval. At most one
// cycle runs at a time: a tick or manual refresh that arrives while a cycle
// is still in flight is skipped and logged, never queued behind it.
type Poller struct {
	runner CycleRunner
	logger *slog.Logger

	inFlight atomic.Bool
	refresh  chan struct{}
	reset    chan struct{}

	mu       sync.Mutex
	interval time.Duration
}

// NewPoller creates a Poller with the given initial interval.
func NewPoller(runner CycleRunner, interval time.Duration, logger *slog.Logger) *Poller {
	return &Poller{
		runner:   runner,
		logger:   logger.With(slog.String("component", "poller")),
		refresh:  make(chan struct{}, 1),
		reset:    make(chan struct{}, 1),
		interval: interval,
	}
}

// Interval returns the current poll interval.
func (p *Poller) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// SetInterval switches the poll interval at runtime. Only the supported
// interval values are accepted; the running ticker picks up the change
// without waiting out the old period.
func (p *Poller) SetInterval(seconds int) error {
	if !config.IntervalValid(seconds) {
		return domain.ErrInvalidInput
	}

	p.mu.Lock()
	p.interval = time.Duration(seconds) * time.Second
	p.mu.Unlock()

	select {
	case p.reset <- struct{}{}:
	default:
	}

	p.logger.Info("poll interval changed", slog.Int("seconds", seconds))
	return nil
}

// TriggerRefresh requests an immediate cycle. Returns ErrCycleInFlight when
// a cycle is already running; the pending cycle's results arrive anyway.
func (p *Poller) TriggerRefresh() error {
	if p.inFlight.Load() {
		return domain.ErrCycleInFlight
	}
	select {
	case p.refresh <- struct{}{}:
	default:
	}
	return nil
}

// Run drives the poll loop until the context is cancelled. One cycle runs
// immediately on start.
func (p *Poller) Run(ctx context.Context) error {
	p.tryRun(ctx, "startup")

	ticker := time.NewTicker(p.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poll loop stopped")
			return ctx.Err()
		case <-ticker.C:
			p.tryRun(ctx, "tick")
		case <-p.refresh:
			p.tryRun(ctx, "manual_refresh")
		case <-p.reset:
			ticker.Reset(p.Interval())
		}
	}
}

// tryRun starts a cycle unless one is already in flight. The in-flight flag
// is the single-flight guard: the compare-and-swap either claims the slot or
// proves another cycle holds it.
func (p *Poller) tryRun(ctx context.Context, trigger string) {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.logger.Warn("previous cycle still running, skipping",
			slog.String("trigger", trigger),
		)
		return
	}

	go func() {
		defer p.inFlight.Store(false)

		if _, err := p.runner.RunCycle(ctx); err != nil {
			p.logger.Error("poll cycle failed",
				slog.String("trigger", trigger),
				slog.String("error", err.Error()),
			)
		}
	}()
}
