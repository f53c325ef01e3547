package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alanyoungcy/hypertrack/internal/domain"
	"github.com/redis/go-redis/v9"
)

// priceSnapshotKey is the single key holding the latest whole-map price
// snapshot. The map turns over atomically via one SET; entries are never
// evicted individually.
const priceSnapshotKey = "prices:snapshot"

// snapshotDoc is the stored JSON shape of a price snapshot.
type snapshotDoc struct {
	Mids      map[string]float64 `json:"mids"`
	FetchedAt int64              `json:"fetched_at"` // Unix nanoseconds
}

// PriceCache implements domain.PriceCache with one JSON document per
// snapshot generation, so concurrent writers can only replace the whole map,
// never interleave partial updates.
type PriceCache struct {
	rdb *redis.Client
}

// NewPriceCache creates a PriceCache backed by the given Client.
func NewPriceCache(c *Client) *PriceCache {
	return &PriceCache{rdb: c.Underlying()}
}

// Get retrieves the latest snapshot. It returns domain.ErrNotFound when no
// snapshot has been stored yet.
func (pc *PriceCache) Get(ctx context.Context) (domain.PriceSnapshot, error) {
	raw, err := pc.rdb.Get(ctx, priceSnapshotKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.PriceSnapshot{}, domain.ErrNotFound
		}
		return domain.PriceSnapshot{}, fmt.Errorf("redis: get price snapshot: %w", err)
	}

	var doc snapshotDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.PriceSnapshot{}, fmt.Errorf("redis: decode price snapshot: %w", err)
	}

	return domain.PriceSnapshot{
		Mids:      doc.Mids,
		FetchedAt: time.Unix(0, doc.FetchedAt),
	}, nil
}

// Set replaces the stored snapshot in a single write.
func (pc *PriceCache) Set(ctx context.Context, snap domain.PriceSnapshot) error {
	doc := snapshotDoc{
		Mids:      snap.Mids,
		FetchedAt: snap.FetchedAt.UnixNano(),
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("redis: encode price snapshot: %w", err)
	}
	if err := pc.rdb.Set(ctx, priceSnapshotKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("redis: set price snapshot: %w", err)
	}
	return nil
}

// Invalidate drops the stored snapshot so the next read forces a fetch.
func (pc *PriceCache) Invalidate(ctx context.Context) error {
	if err := pc.rdb.Del(ctx, priceSnapshotKey).Err(); err != nil {
		return fmt.Errorf("redis: invalidate price snapshot: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.PriceCache = (*PriceCache)(nil)
