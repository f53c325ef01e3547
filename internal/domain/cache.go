package domain

import (
	"context"
	"time"
)

// PriceSnapshot is one whole-map price cache generation. The map turns over
// atomically; individual entries are never evicted.
type PriceSnapshot struct {
	Mids      map[string]float64
	FetchedAt time.Time
}

// Age returns how old the snapshot is relative to now.
func (s PriceSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.FetchedAt)
}

// PriceCache stores the last-known mark price map. Get returns ErrNotFound
// when no snapshot has been stored yet.
type PriceCache interface {
	Get(ctx context.Context) (PriceSnapshot, error)
	Set(ctx context.Context, snap PriceSnapshot) error
	Invalidate(ctx context.Context) error
}

// SignalBus provides pub/sub fan-out of tracker events to the dashboard.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
