package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/hypertrack/internal/domain"
)

// HistoryStore implements domain.HistoryStore using PostgreSQL.
type HistoryStore struct {
	pool *pgxpool.Pool
}

// NewHistoryStore creates a new HistoryStore backed by the given connection
// pool.
func NewHistoryStore(pool *pgxpool.Pool) *HistoryStore {
	return &HistoryStore{pool: pool}
}

// Append inserts one close record. History rows are never updated.
func (s *HistoryStore) Append(ctx context.Context, rec domain.PositionHistory) error {
	const query = `
		INSERT INTO position_history (
			id, position_key, address, coin, side, size,
			entry_price, exit_price, pnl, pnl_percent,
			holding_minutes, closed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12
		)`

	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.Key, rec.Address, rec.Coin, string(rec.Side), rec.Size,
		rec.EntryPrice, rec.ExitPrice, rec.PnL, rec.PnLPercent,
		rec.HoldingMinutes, rec.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: append history %s: %w", rec.Key, err)
	}
	return nil
}

// List returns close records, most recent first, optionally filtered by
// address. limit <= 0 means no limit.
func (s *HistoryStore) List(ctx context.Context, address string, limit int) ([]domain.PositionHistory, error) {
	query := `SELECT id, position_key, address, coin, side, size,
		entry_price, exit_price, pnl, pnl_percent, holding_minutes, closed_at
		FROM position_history`
	args := []any{}

	if address != "" {
		query += ` WHERE address = $1`
		args = append(args, address)
	}
	query += ` ORDER BY closed_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list history: %w", err)
	}
	defer rows.Close()

	var records []domain.PositionHistory
	for rows.Next() {
		var rec domain.PositionHistory
		var side string
		if err := rows.Scan(
			&rec.ID, &rec.Key, &rec.Address, &rec.Coin, &side, &rec.Size,
			&rec.EntryPrice, &rec.ExitPrice, &rec.PnL, &rec.PnLPercent,
			&rec.HoldingMinutes, &rec.ClosedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan history: %w", err)
		}
		rec.Side = domain.Side(side)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListBefore returns close records with closed_at strictly before the given
// cutoff, oldest first. Used by the cold-storage archiver.
func (s *HistoryStore) ListBefore(ctx context.Context, before time.Time) ([]domain.PositionHistory, error) {
	const query = `SELECT id, position_key, address, coin, side, size,
		entry_price, exit_price, pnl, pnl_percent, holding_minutes, closed_at
		FROM position_history
		WHERE closed_at < $1
		ORDER BY closed_at ASC`

	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list history before: %w", err)
	}
	defer rows.Close()

	var records []domain.PositionHistory
	for rows.Next() {
		var rec domain.PositionHistory
		var side string
		if err := rows.Scan(
			&rec.ID, &rec.Key, &rec.Address, &rec.Coin, &side, &rec.Size,
			&rec.EntryPrice, &rec.ExitPrice, &rec.PnL, &rec.PnLPercent,
			&rec.HoldingMinutes, &rec.ClosedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan history: %w", err)
		}
		rec.Side = domain.Side(side)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Analytics aggregates lifetime stats across tracked positions and close
// records, optionally scoped to one address.
func (s *HistoryStore) Analytics(ctx context.Context, address string) (domain.PositionAnalytics, error) {
	var a domain.PositionAnalytics

	countQuery := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status <> 'closed'),
			COUNT(*) FILTER (WHERE status = 'closed')
		FROM tracked_positions`
	histQuery := `
		SELECT
			COALESCE(SUM(pnl), 0),
			COALESCE(AVG(CASE WHEN pnl > 0 THEN 1.0 ELSE 0.0 END), 0),
			COALESCE(AVG(holding_minutes), 0)
		FROM position_history`

	var args []any
	if address != "" {
		countQuery += ` WHERE address = $1`
		histQuery += ` WHERE address = $1`
		args = append(args, address)
	}

	err := s.pool.QueryRow(ctx, countQuery, args...).Scan(
		&a.TotalPositions, &a.OpenPositions, &a.ClosedPositions,
	)
	if err != nil {
		return domain.PositionAnalytics{}, fmt.Errorf("postgres: analytics counts: %w", err)
	}

	err = s.pool.QueryRow(ctx, histQuery, args...).Scan(
		&a.TotalPnL, &a.WinRate, &a.AvgHoldingMinutes,
	)
	if err != nil {
		return domain.PositionAnalytics{}, fmt.Errorf("postgres: analytics aggregates: %w", err)
	}

	return a, nil
}

// Compile-time interface check.
var _ domain.HistoryStore = (*HistoryStore)(nil)
