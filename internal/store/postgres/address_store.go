package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/hypertrack/internal/domain"
)

// AddressStore implements domain.AddressStore using PostgreSQL.
type AddressStore struct {
	pool *pgxpool.Pool
}

// NewAddressStore creates a new AddressStore backed by the given connection
// pool.
func NewAddressStore(pool *pgxpool.Pool) *AddressStore {
	return &AddressStore{pool: pool}
}

// Create inserts a new tracked address. Returns domain.ErrAlreadyExists when
// the address is already being watched.
func (s *AddressStore) Create(ctx context.Context, addr domain.TrackedAddress) error {
	const query = `
		INSERT INTO tracked_addresses (address, alias, color, notifications_enabled, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.pool.Exec(ctx, query,
		addr.Address, addr.Alias, addr.Color, addr.NotificationsEnabled, addr.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create address %s: %w", addr.Address, err)
	}
	return nil
}

// Delete removes a tracked address.
func (s *AddressStore) Delete(ctx context.Context, address string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM tracked_addresses WHERE address = $1`, address)
	if err != nil {
		return fmt.Errorf("postgres: delete address %s: %w", address, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetNotifications toggles the alert opt-in for an address.
func (s *AddressStore) SetNotifications(ctx context.Context, address string, enabled bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tracked_addresses SET notifications_enabled = $2 WHERE address = $1`,
		address, enabled)
	if err != nil {
		return fmt.Errorf("postgres: set notifications %s: %w", address, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Get retrieves one tracked address.
func (s *AddressStore) Get(ctx context.Context, address string) (domain.TrackedAddress, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT address, alias, color, notifications_enabled, created_at
		 FROM tracked_addresses WHERE address = $1`, address)

	var a domain.TrackedAddress
	err := row.Scan(&a.Address, &a.Alias, &a.Color, &a.NotificationsEnabled, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TrackedAddress{}, domain.ErrNotFound
		}
		return domain.TrackedAddress{}, fmt.Errorf("postgres: get address %s: %w", address, err)
	}
	return a, nil
}

// List returns all tracked addresses in insertion order.
func (s *AddressStore) List(ctx context.Context) ([]domain.TrackedAddress, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT address, alias, color, notifications_enabled, created_at
		 FROM tracked_addresses ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list addresses: %w", err)
	}
	defer rows.Close()

	var addrs []domain.TrackedAddress
	for rows.Next() {
		var a domain.TrackedAddress
		if err := rows.Scan(&a.Address, &a.Alias, &a.Color, &a.NotificationsEnabled, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan address: %w", err)
		}
		addrs = append(addrs, a)
	}
	return addrs, rows.Err()
}

// Compile-time interface check.
var _ domain.AddressStore = (*AddressStore)(nil)
