package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/hypertrack/internal/domain"
)

// RecipientStore implements domain.RecipientStore using PostgreSQL.
type RecipientStore struct {
	pool *pgxpool.Pool
}

// NewRecipientStore creates a new RecipientStore backed by the given
// connection pool.
func NewRecipientStore(pool *pgxpool.Pool) *RecipientStore {
	return &RecipientStore{pool: pool}
}

// Add inserts an email onto the distribution list. Returns
// domain.ErrAlreadyExists for duplicates.
func (s *RecipientStore) Add(ctx context.Context, email string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO notification_recipients (email) VALUES ($1)`, email)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: add recipient %s: %w", email, err)
	}
	return nil
}

// Remove deletes an email from the distribution list.
func (s *RecipientStore) Remove(ctx context.Context, email string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM notification_recipients WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("postgres: remove recipient %s: %w", email, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns the distribution list in insertion order.
func (s *RecipientStore) List(ctx context.Context) ([]domain.Recipient, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT email, created_at FROM notification_recipients ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recipients: %w", err)
	}
	defer rows.Close()

	var recipients []domain.Recipient
	for rows.Next() {
		var r domain.Recipient
		if err := rows.Scan(&r.Email, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan recipient: %w", err)
		}
		recipients = append(recipients, r)
	}
	return recipients, rows.Err()
}

// Compile-time interface check.
var _ domain.RecipientStore = (*RecipientStore)(nil)
