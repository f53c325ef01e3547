package pipeline

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/hypertrack/internal/domain"
	"github.com/alanyoungcy/hypertrack/internal/service"
)

// blockingRunner holds each cycle open until release is closed.
type blockingRunner struct {
	started chan struct{}
	release chan struct{}
	runs    atomic.Int32
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{
		started: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (r *blockingRunner) RunCycle(ctx context.Context) (service.CycleSummary, error) {
	r.runs.Add(1)
	r.started <- struct{}{}
	select {
	case <-r.release:
	case <-ctx.Done():
	}
	return service.CycleSummary{}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestTryRunSkipsWhileCycleInFlight(t *testing.T) {
	runner := newBlockingRunner()
	p := NewPoller(runner, 30*time.Second, testLogger())

	ctx := context.Background()

	p.tryRun(ctx, "tick")
	<-runner.started

	// Overlapping attempts are skipped, not queued.
	p.tryRun(ctx, "tick")
	p.tryRun(ctx, "manual_refresh")

	close(runner.release)

	require.Eventually(t, func() bool {
		return !p.inFlight.Load()
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), runner.runs.Load())
}

func TestTryRunAllowsNextCycleAfterCompletion(t *testing.T) {
	runner := newBlockingRunner()
	close(runner.release)
	p := NewPoller(runner, 30*time.Second, testLogger())

	ctx := context.Background()
	p.tryRun(ctx, "tick")
	<-runner.started

	require.Eventually(t, func() bool {
		return !p.inFlight.Load()
	}, time.Second, 5*time.Millisecond)

	p.tryRun(ctx, "tick")
	<-runner.started
	assert.Equal(t, int32(2), runner.runs.Load())
}

func TestSetIntervalValidation(t *testing.T) {
	p := NewPoller(newBlockingRunner(), 60*time.Second, testLogger())

	require.NoError(t, p.SetInterval(30))
	assert.Equal(t, 30*time.Second, p.Interval())

	require.NoError(t, p.SetInterval(300))
	assert.Equal(t, 300*time.Second, p.Interval())

	err := p.SetInterval(45)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 300*time.Second, p.Interval())

	err = p.SetInterval(0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTriggerRefreshRejectedWhileInFlight(t *testing.T) {
	runner := newBlockingRunner()
	p := NewPoller(runner, 30*time.Second, testLogger())

	require.NoError(t, p.TriggerRefresh())

	p.tryRun(context.Background(), "tick")
	<-runner.started

	err := p.TriggerRefresh()
	assert.ErrorIs(t, err, domain.ErrCycleInFlight)

	close(runner.release)
}

func TestRunExecutesStartupCycle(t *testing.T) {
	runner := newBlockingRunner()
	close(runner.release)
	p := NewPoller(runner, 30*time.Second, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	<-runner.started
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
	assert.GreaterOrEqual(t, runner.runs.Load(), int32(1))
}
