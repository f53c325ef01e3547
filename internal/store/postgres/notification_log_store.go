package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/hypertrack/internal/domain"
)

// NotificationLogStore implements domain.NotificationLogStore using
// PostgreSQL.
type NotificationLogStore struct {
	pool *pgxpool.Pool
}

// NewNotificationLogStore creates a new NotificationLogStore backed by the
// given connection pool.
func NewNotificationLogStore(pool *pgxpool.Pool) *NotificationLogStore {
	return &NotificationLogStore{pool: pool}
}

const notificationLogCols = `id, address, coin, side, size, entry_price, sent, attempts, sent_at`

// Append inserts one audit entry.
func (s *NotificationLogStore) Append(ctx context.Context, e domain.NotificationLogEntry) error {
	const query = `
		INSERT INTO notification_log (id, address, coin, side, size, entry_price, sent, attempts, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.pool.Exec(ctx, query,
		e.ID, e.Address, e.Coin, string(e.Side), e.Size, e.EntryPrice, e.Sent, e.Attempts, e.SentAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: append notification log: %w", err)
	}
	return nil
}

// List returns the most recent audit entries.
func (s *NotificationLogStore) List(ctx context.Context, limit int) ([]domain.NotificationLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+notificationLogCols+` FROM notification_log
		 ORDER BY sent_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list notification log: %w", err)
	}
	defer rows.Close()

	return scanNotificationLogRows(rows)
}

// ListBefore returns every audit entry older than the cutoff, used by the
// archiver before pruning.
func (s *NotificationLogStore) ListBefore(ctx context.Context, before time.Time) ([]domain.NotificationLogEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+notificationLogCols+` FROM notification_log
		 WHERE sent_at < $1 ORDER BY sent_at`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list notification log before %v: %w", before, err)
	}
	defer rows.Close()

	return scanNotificationLogRows(rows)
}

// DeleteBefore prunes audit entries older than the cutoff and returns the
// number of rows removed.
func (s *NotificationLogStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM notification_log WHERE sent_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: prune notification log: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanNotificationLogRows(rows pgx.Rows) ([]domain.NotificationLogEntry, error) {
	var entries []domain.NotificationLogEntry
	for rows.Next() {
		var e domain.NotificationLogEntry
		var side string
		if err := rows.Scan(&e.ID, &e.Address, &e.Coin, &side, &e.Size, &e.EntryPrice, &e.Sent, &e.Attempts, &e.SentAt); err != nil {
			return nil, fmt.Errorf("postgres: scan notification log: %w", err)
		}
		e.Side = domain.Side(side)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Compile-time interface check.
var _ domain.NotificationLogStore = (*NotificationLogStore)(nil)
