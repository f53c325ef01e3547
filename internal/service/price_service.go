package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alanyoungcy/hypertrack/internal/domain"
)

// MidsFetcher retrieves the full mark-price map from the exchange in one
// batched call.
type MidsFetcher interface {
	AllMids(ctx context.Context) (map[string]float64, error)
}

// PriceService serves mark prices through a whole-map cache with a hard TTL.
// Within the TTL every caller gets the cached map and no network call is
// made; after it, one batched fetch replaces the entire cache. Upstream
// failures fall back to the previous cache (stale-but-available), or an
// empty map when nothing was ever cached.
type PriceService struct {
	fetcher MidsFetcher
	cache   domain.PriceCache
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewPriceService creates a PriceService with the given TTL.
func NewPriceService(fetcher MidsFetcher, cache domain.PriceCache, ttl time.Duration, logger *slog.Logger) *PriceService {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &PriceService{
		fetcher: fetcher,
		cache:   cache,
		ttl:     ttl,
		logger:  logger.With(slog.String("component", "price_service")),
		now:     time.Now,
	}
}

// Prices returns the current mark-price map. The returned map is the whole
// snapshot; callers index it by coin. Never returns an error: transient
// upstream failures degrade to stale or empty data by design.
func (s *PriceService) Prices(ctx context.Context) map[string]float64 {
	now := s.now()

	cached, err := s.cache.Get(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.WarnContext(ctx, "price cache read failed",
			slog.String("error", err.Error()),
		)
	}

	haveCache := err == nil && len(cached.Mids) > 0
	if haveCache && cached.Age(now) < s.ttl {
		return cached.Mids
	}

	mids, fetchErr := s.fetcher.AllMids(ctx)
	if fetchErr != nil {
		s.logger.WarnContext(ctx, "price fetch failed",
			slog.String("error", fetchErr.Error()),
			slog.Bool("stale_fallback", haveCache),
		)
		if haveCache {
			return cached.Mids
		}
		return map[string]float64{}
	}

	snap := domain.PriceSnapshot{Mids: mids, FetchedAt: now}
	if setErr := s.cache.Set(ctx, snap); setErr != nil {
		s.logger.WarnContext(ctx, "price cache write failed",
			slog.String("error", setErr.Error()),
		)
	}

	return mids
}
