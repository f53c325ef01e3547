package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/hypertrack/internal/domain"
)

// TrackedPositionStore implements domain.TrackedPositionStore using
// PostgreSQL.
type TrackedPositionStore struct {
	pool *pgxpool.Pool
}

// NewTrackedPositionStore creates a new TrackedPositionStore backed by the
// given connection pool.
func NewTrackedPositionStore(pool *pgxpool.Pool) *TrackedPositionStore {
	return &TrackedPositionStore{pool: pool}
}

const positionSelectCols = `position_key, address, coin, side, size, entry_price,
	leverage, status, is_active, created_at, last_updated,
	closed_at, final_pnl, holding_minutes`

func scanPositionRow(row pgx.Row) (domain.TrackedPosition, error) {
	var p domain.TrackedPosition
	var side, status string

	err := row.Scan(
		&p.Key, &p.Address, &p.Coin, &side,
		&p.Size, &p.EntryPrice, &p.Leverage,
		&status, &p.IsActive,
		&p.CreatedAt, &p.LastUpdated,
		&p.ClosedAt, &p.FinalPnL, &p.HoldingMinutes,
	)
	if err != nil {
		return domain.TrackedPosition{}, err
	}
	p.Side = domain.Side(side)
	p.Status = domain.PositionStatus(status)
	return p, nil
}

func scanPositionRows(rows pgx.Rows) ([]domain.TrackedPosition, error) {
	var positions []domain.TrackedPosition
	for rows.Next() {
		p, err := scanPositionRow(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// Upsert inserts or refreshes the record for a position key. On conflict the
// mutable fields (size, entry, leverage, status, lifecycle timestamps) are
// replaced, which makes repeated upserts with identical data a no-op.
func (s *TrackedPositionStore) Upsert(ctx context.Context, p domain.TrackedPosition) error {
	const query = `
		INSERT INTO tracked_positions (
			position_key, address, coin, side, size, entry_price,
			leverage, status, is_active, created_at, last_updated,
			closed_at, final_pnl, holding_minutes
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13, $14
		)
		ON CONFLICT (position_key) DO UPDATE SET
			side            = EXCLUDED.side,
			size            = EXCLUDED.size,
			entry_price     = EXCLUDED.entry_price,
			leverage        = EXCLUDED.leverage,
			status          = EXCLUDED.status,
			is_active       = EXCLUDED.is_active,
			created_at      = EXCLUDED.created_at,
			last_updated    = EXCLUDED.last_updated,
			closed_at       = EXCLUDED.closed_at,
			final_pnl       = EXCLUDED.final_pnl,
			holding_minutes = EXCLUDED.holding_minutes`

	_, err := s.pool.Exec(ctx, query,
		p.Key, p.Address, p.Coin, string(p.Side),
		p.Size, p.EntryPrice, p.Leverage,
		string(p.Status), p.IsActive,
		p.CreatedAt, p.LastUpdated,
		p.ClosedAt, p.FinalPnL, p.HoldingMinutes,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert position %s: %w", p.Key, err)
	}
	return nil
}

// Close marks a position as closed, recording the final PnL and holding
// duration. The status guard keeps a second close from overwriting the first.
func (s *TrackedPositionStore) Close(ctx context.Context, key string, finalPnL, exitPrice float64, closedAt time.Time, holdingMinutes int64) error {
	const query = `
		UPDATE tracked_positions SET
			status          = 'closed',
			is_active       = FALSE,
			closed_at       = $2,
			final_pnl       = $3,
			holding_minutes = $4,
			last_updated    = NOW()
		WHERE position_key = $1 AND status <> 'closed'`

	tag, err := s.pool.Exec(ctx, query, key, closedAt, finalPnL, holdingMinutes)
	if err != nil {
		return fmt.Errorf("postgres: close position %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByKey retrieves a single position by its key.
func (s *TrackedPositionStore) GetByKey(ctx context.Context, key string) (domain.TrackedPosition, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+positionSelectCols+` FROM tracked_positions WHERE position_key = $1`, key)

	p, err := scanPositionRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TrackedPosition{}, domain.ErrNotFound
		}
		return domain.TrackedPosition{}, fmt.Errorf("postgres: get position %s: %w", key, err)
	}
	return p, nil
}

// GetOpen returns every non-closed tracked position.
func (s *TrackedPositionStore) GetOpen(ctx context.Context) ([]domain.TrackedPosition, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+positionSelectCols+` FROM tracked_positions
		 WHERE status <> 'closed' AND is_active
		 ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: get open positions: %w", err)
	}
	defer rows.Close()

	positions, err := scanPositionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan open positions: %w", err)
	}
	return positions, nil
}

// GetNew returns positions still inside their "new" window. A record the
// reconciler has already marked active never reappears here, whatever its
// created_at says.
func (s *TrackedPositionStore) GetNew(ctx context.Context, window time.Duration) ([]domain.TrackedPosition, error) {
	cutoff := time.Now().UTC().Add(-window)

	rows, err := s.pool.Query(ctx,
		`SELECT `+positionSelectCols+` FROM tracked_positions
		 WHERE status = 'new' AND is_active AND created_at >= $1
		 ORDER BY created_at DESC`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("postgres: get new positions: %w", err)
	}
	defer rows.Close()

	positions, err := scanPositionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan new positions: %w", err)
	}
	return positions, nil
}

// GetClosed returns every closed tracked position, most recently closed
// first.
func (s *TrackedPositionStore) GetClosed(ctx context.Context) ([]domain.TrackedPosition, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+positionSelectCols+` FROM tracked_positions
		 WHERE status = 'closed'
		 ORDER BY closed_at DESC NULLS LAST`)
	if err != nil {
		return nil, fmt.Errorf("postgres: get closed positions: %w", err)
	}
	defer rows.Close()

	positions, err := scanPositionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan closed positions: %w", err)
	}
	return positions, nil
}

// GetAll returns every tracked position regardless of status.
func (s *TrackedPositionStore) GetAll(ctx context.Context) ([]domain.TrackedPosition, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+positionSelectCols+` FROM tracked_positions
		 ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: get all positions: %w", err)
	}
	defer rows.Close()

	positions, err := scanPositionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan all positions: %w", err)
	}
	return positions, nil
}

// Compile-time interface check.
var _ domain.TrackedPositionStore = (*TrackedPositionStore)(nil)
