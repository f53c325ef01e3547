package service

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/hypertrack/internal/domain"
)

// PositionFetcher retrieves the open positions for one account address.
type PositionFetcher interface {
	RawPositions(ctx context.Context, address string) ([]domain.RawPosition, error)
}

// SnapshotService fetches the open-position snapshot for a set of tracked
// addresses with bounded upstream concurrency: addresses are partitioned
// into fixed-size batches, requests within a batch run concurrently, and a
// small fixed pause separates batches.
type SnapshotService struct {
	fetcher    PositionFetcher
	batchSize  int
	batchPause time.Duration
	logger     *slog.Logger
}

// NewSnapshotService creates a SnapshotService.
func NewSnapshotService(fetcher PositionFetcher, batchSize int, batchPause time.Duration, logger *slog.Logger) *SnapshotService {
	if batchSize < 1 {
		batchSize = 3
	}
	if batchPause < 0 {
		batchPause = 0
	}
	return &SnapshotService{
		fetcher:    fetcher,
		batchSize:  batchSize,
		batchPause: batchPause,
		logger:     logger.With(slog.String("component", "snapshot_service")),
	}
}

// FetchAll returns one AccountSnapshot per address. A failed address is
// logged and contributes zero positions for this cycle; it never aborts the
// batch or the cycle.
func (s *SnapshotService) FetchAll(ctx context.Context, addresses []domain.TrackedAddress) ([]domain.AccountSnapshot, error) {
	snapshots := make([]domain.AccountSnapshot, len(addresses))

	for start := 0; start < len(addresses); start += s.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + s.batchSize
		if end > len(addresses) {
			end = len(addresses)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			idx := i
			addr := addresses[i].Address
			g.Go(func() error {
				positions, err := s.fetcher.RawPositions(gctx, addr)
				if err != nil {
					s.logger.WarnContext(gctx, "snapshot fetch failed, skipping address",
						slog.String("address", addr),
						slog.String("error", err.Error()),
					)
					snapshots[idx] = domain.AccountSnapshot{Address: addr}
					return nil
				}
				snapshots[idx] = domain.AccountSnapshot{Address: addr, Positions: positions}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		// Pace the upstream between batches.
		if end < len(addresses) && s.batchPause > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.batchPause):
			}
		}
	}

	return snapshots, nil
}
