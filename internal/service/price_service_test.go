package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/hypertrack/internal/domain"
)

type flakyMidsFetcher struct {
	mids  map[string]float64
	fail  bool
	calls int
}

func (f *flakyMidsFetcher) AllMids(ctx context.Context) (map[string]float64, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("upstream down")
	}
	return f.mids, nil
}

func newTestPriceService(fetcher MidsFetcher, cache domain.PriceCache, ttl time.Duration) *PriceService {
	return NewPriceService(fetcher, cache, ttl, testLogger())
}

func TestPricesServesFromCacheWithinTTL(t *testing.T) {
	ctx := context.Background()
	fetcher := &flakyMidsFetcher{mids: map[string]float64{"BTC": 50000}}
	cache := &memPriceCache{}
	svc := newTestPriceService(fetcher, cache, 30*time.Second)

	base := time.Now()
	svc.now = func() time.Time { return base }

	first := svc.Prices(ctx)
	assert.InDelta(t, 50000, first["BTC"], 1e-9)
	assert.Equal(t, 1, fetcher.calls)

	// Second call 10s later must not hit the upstream.
	svc.now = func() time.Time { return base.Add(10 * time.Second) }
	second := svc.Prices(ctx)
	assert.InDelta(t, 50000, second["BTC"], 1e-9)
	assert.Equal(t, 1, fetcher.calls)
}

func TestPricesRefetchesAfterTTL(t *testing.T) {
	ctx := context.Background()
	fetcher := &flakyMidsFetcher{mids: map[string]float64{"BTC": 50000}}
	cache := &memPriceCache{}
	svc := newTestPriceService(fetcher, cache, 30*time.Second)

	base := time.Now()
	svc.now = func() time.Time { return base }
	svc.Prices(ctx)
	require.Equal(t, 1, fetcher.calls)

	fetcher.mids = map[string]float64{"BTC": 51000}
	svc.now = func() time.Time { return base.Add(31 * time.Second) }

	refreshed := svc.Prices(ctx)
	assert.Equal(t, 2, fetcher.calls)
	assert.InDelta(t, 51000, refreshed["BTC"], 1e-9)
}

func TestPricesFallsBackToStaleCacheOnFetchFailure(t *testing.T) {
	ctx := context.Background()
	fetcher := &flakyMidsFetcher{mids: map[string]float64{"BTC": 50000}}
	cache := &memPriceCache{}
	svc := newTestPriceService(fetcher, cache, 30*time.Second)

	base := time.Now()
	svc.now = func() time.Time { return base }
	svc.Prices(ctx)

	// Cache is expired and the upstream is failing: the stale snapshot wins
	// over an empty result.
	fetcher.fail = true
	svc.now = func() time.Time { return base.Add(5 * time.Minute) }

	stale := svc.Prices(ctx)
	assert.InDelta(t, 50000, stale["BTC"], 1e-9)
}

func TestPricesReturnsEmptyMapWhenNothingCached(t *testing.T) {
	ctx := context.Background()
	fetcher := &flakyMidsFetcher{fail: true}
	svc := newTestPriceService(fetcher, &memPriceCache{}, 30*time.Second)

	prices := svc.Prices(ctx)
	require.NotNil(t, prices)
	assert.Empty(t, prices)
}
