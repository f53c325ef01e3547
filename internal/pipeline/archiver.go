package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ArchiveRunner moves aged records to cold storage.
type ArchiveRunner interface {
	ArchiveHistory(ctx context.Context, before time.Time) (int64, error)
	ArchiveNotificationLog(ctx context.Context, before time.Time) (int64, error)
}

// Archiver periodically offloads old close records and audit entries to
// object storage.
type Archiver struct {
	archiver      ArchiveRunner
	retentionDays int
	logger        *slog.Logger
}

// NewArchiver creates an Archiver with the given retention window.
func NewArchiver(archiver ArchiveRunner, retentionDays int, logger *slog.Logger) *Archiver {
	return &Archiver{
		archiver:      archiver,
		retentionDays: retentionDays,
		logger:        logger.With(slog.String("component", "archiver")),
	}
}

// Run executes a single archive pass over everything older than the
// retention cutoff.
func (a *Archiver) Run(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-time.Duration(a.retentionDays) * 24 * time.Hour)
	a.logger.Info("starting archive run",
		slog.Time("cutoff", cutoff),
		slog.Int("retention_days", a.retentionDays),
	)

	historyArchived, err := a.archiver.ArchiveHistory(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("archiving close records before %v: %w", cutoff, err)
	}

	alertsArchived, err := a.archiver.ArchiveNotificationLog(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("archiving notification log before %v: %w", cutoff, err)
	}

	a.logger.Info("archive run complete",
		slog.Int64("history_archived", historyArchived),
		slog.Int64("alerts_archived", alertsArchived),
	)
	return nil
}

// RunLoop runs the archiver on a fixed interval until the context is
// cancelled. One pass runs immediately on start.
func (a *Archiver) RunLoop(ctx context.Context, interval time.Duration) error {
	if err := a.Run(ctx); err != nil {
		a.logger.Error("archive run failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("archive loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := a.Run(ctx); err != nil {
				a.logger.Error("archive run failed", slog.String("error", err.Error()))
			}
		}
	}
}
