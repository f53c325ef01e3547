package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/hypertrack/internal/domain"
)

// HiddenPositionStore implements domain.HiddenPositionStore using
// PostgreSQL.
type HiddenPositionStore struct {
	pool *pgxpool.Pool
}

// NewHiddenPositionStore creates a new HiddenPositionStore backed by the
// given connection pool.
func NewHiddenPositionStore(pool *pgxpool.Pool) *HiddenPositionStore {
	return &HiddenPositionStore{pool: pool}
}

// Add marks a position key as hidden. Hiding an already-hidden key is a
// no-op.
func (s *HiddenPositionStore) Add(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO hidden_positions (position_key) VALUES ($1)
		 ON CONFLICT (position_key) DO NOTHING`, key)
	if err != nil {
		return fmt.Errorf("postgres: hide position %s: %w", key, err)
	}
	return nil
}

// Remove unhides a position key.
func (s *HiddenPositionStore) Remove(ctx context.Context, key string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM hidden_positions WHERE position_key = $1`, key)
	if err != nil {
		return fmt.Errorf("postgres: unhide position %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns all hidden position keys.
func (s *HiddenPositionStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT position_key FROM hidden_positions ORDER BY hidden_at`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list hidden positions: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("postgres: scan hidden position: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Compile-time interface check.
var _ domain.HiddenPositionStore = (*HiddenPositionStore)(nil)
