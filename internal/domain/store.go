package domain

import (
	"context"
	"time"
)

// TrackedPositionStore persists position lifecycle records. Upsert is
// idempotent per position key; Close flips status without deleting.
type TrackedPositionStore interface {
	Upsert(ctx context.Context, pos TrackedPosition) error
	Close(ctx context.Context, key string, finalPnL, exitPrice float64, closedAt time.Time, holdingMinutes int64) error
	GetByKey(ctx context.Context, key string) (TrackedPosition, error)
	GetOpen(ctx context.Context) ([]TrackedPosition, error)
	GetNew(ctx context.Context, window time.Duration) ([]TrackedPosition, error)
	GetClosed(ctx context.Context) ([]TrackedPosition, error)
	GetAll(ctx context.Context) ([]TrackedPosition, error)
}

// HistoryStore persists the append-only close records and serves analytics.
type HistoryStore interface {
	Append(ctx context.Context, rec PositionHistory) error
	List(ctx context.Context, address string, limit int) ([]PositionHistory, error)
	Analytics(ctx context.Context, address string) (PositionAnalytics, error)
}

// AddressStore persists the set of watched exchange accounts.
type AddressStore interface {
	Create(ctx context.Context, addr TrackedAddress) error
	Delete(ctx context.Context, address string) error
	SetNotifications(ctx context.Context, address string, enabled bool) error
	Get(ctx context.Context, address string) (TrackedAddress, error)
	List(ctx context.Context) ([]TrackedAddress, error)
}

// RecipientStore persists the alert email distribution list.
type RecipientStore interface {
	Add(ctx context.Context, email string) error
	Remove(ctx context.Context, email string) error
	List(ctx context.Context) ([]Recipient, error)
}

// HiddenPositionStore persists the set of position keys the user has opted
// to hide from default views. Independent of lifecycle status.
type HiddenPositionStore interface {
	Add(ctx context.Context, key string) error
	Remove(ctx context.Context, key string) error
	List(ctx context.Context) ([]string, error)
}

// NotificationLogStore persists the alert audit trail.
type NotificationLogStore interface {
	Append(ctx context.Context, entry NotificationLogEntry) error
	List(ctx context.Context, limit int) ([]NotificationLogEntry, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
	ListBefore(ctx context.Context, before time.Time) ([]NotificationLogEntry, error)
}
