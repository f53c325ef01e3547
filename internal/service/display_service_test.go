package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/hypertrack/internal/domain"
)

type fakeHiddenStore struct {
	keys map[string]bool
}

func newFakeHiddenStore() *fakeHiddenStore {
	return &fakeHiddenStore{keys: make(map[string]bool)}
}

func (f *fakeHiddenStore) Add(ctx context.Context, key string) error {
	f.keys[key] = true
	return nil
}

func (f *fakeHiddenStore) Remove(ctx context.Context, key string) error {
	delete(f.keys, key)
	return nil
}

func (f *fakeHiddenStore) List(ctx context.Context) ([]string, error) {
	var out []string
	for k := range f.keys {
		out = append(out, k)
	}
	return out, nil
}

func displayPos(addr, coin string, status domain.PositionStatus) domain.DisplayPosition {
	return domain.DisplayPosition{
		Key:          domain.PositionKey(addr, coin),
		Address:      addr,
		Coin:         coin,
		Side:         domain.SideLong,
		Size:         1,
		EntryPrice:   100,
		CurrentPrice: 100,
		Status:       status,
		CreatedAt:    time.Now().Add(-time.Hour),
	}
}

func newTestDisplay(positions *fakePositionStore, hidden *fakeHiddenStore, addrs []domain.TrackedAddress) *DisplayService {
	logger := testLogger()
	prices := NewPriceService(&fakeMidsFetcher{mids: map[string]float64{}}, &memPriceCache{}, 30*time.Second, logger)
	return NewDisplayService(positions, hidden, &fakeAddressStore{addrs: addrs}, prices, logger)
}

func TestMergePositionsPriority(t *testing.T) {
	active := displayPos(addrA, "BTC", domain.PositionStatusActive)
	closed := displayPos(addrA, "BTC", domain.PositionStatusClosed)

	merged := MergePositions(
		[]domain.DisplayPosition{closed},
		[]domain.DisplayPosition{active},
	)

	require.Len(t, merged, 1)
	assert.Equal(t, domain.PositionStatusActive, merged[0].Status)

	// Order of sources must not matter.
	merged = MergePositions(
		[]domain.DisplayPosition{active},
		[]domain.DisplayPosition{closed},
	)
	require.Len(t, merged, 1)
	assert.Equal(t, domain.PositionStatusActive, merged[0].Status)
}

func TestMergePositionsNonzeroPriceTieBreak(t *testing.T) {
	stale := displayPos(addrA, "BTC", domain.PositionStatusActive)
	stale.CurrentPrice = 0
	fresh := displayPos(addrA, "BTC", domain.PositionStatusActive)
	fresh.CurrentPrice = 50000

	merged := MergePositions(
		[]domain.DisplayPosition{stale},
		[]domain.DisplayPosition{fresh},
	)

	require.Len(t, merged, 1)
	assert.InDelta(t, 50000, merged[0].CurrentPrice, 1e-9)
}

func TestViewHiddenExcludedFromActiveButKeptInAll(t *testing.T) {
	ctx := context.Background()
	positions := newFakePositionStore()
	hidden := newFakeHiddenStore()
	svc := newTestDisplay(positions, hidden, nil)

	visible := displayPos(addrA, "BTC", domain.PositionStatusActive)
	shadowed := displayPos(addrA, "ETH", domain.PositionStatusActive)
	svc.UpdateLive([]domain.DisplayPosition{visible, shadowed})
	require.NoError(t, hidden.Add(ctx, shadowed.Key))

	activeView, err := svc.View(ctx, domain.TabActive, domain.DisplayFilters{})
	require.NoError(t, err)
	require.Len(t, activeView.Positions, 1)
	assert.Equal(t, "BTC", activeView.Positions[0].Coin)

	allView, err := svc.View(ctx, domain.TabAll, domain.DisplayFilters{})
	require.NoError(t, err)
	require.Len(t, allView.Positions, 2)
	for _, p := range allView.Positions {
		if p.Coin == "ETH" {
			assert.True(t, p.Hidden)
		}
	}

	hiddenView, err := svc.View(ctx, domain.TabHidden, domain.DisplayFilters{})
	require.NoError(t, err)
	require.Len(t, hiddenView.Positions, 1)
	assert.Equal(t, "ETH", hiddenView.Positions[0].Coin)
}

func TestViewFiltersCombineWithAnd(t *testing.T) {
	ctx := context.Background()
	svc := newTestDisplay(newFakePositionStore(), newFakeHiddenStore(), nil)

	a := displayPos(addrA, "BTC", domain.PositionStatusActive)
	a.Alias = "whale"
	b := displayPos(addrB, "BTC", domain.PositionStatusActive)
	c := displayPos(addrA, "ETH", domain.PositionStatusActive)
	c.Alias = "whale"
	svc.UpdateLive([]domain.DisplayPosition{a, b, c})

	view, err := svc.View(ctx, domain.TabActive, domain.DisplayFilters{Coin: "btc", Trader: "WHALE"})
	require.NoError(t, err)
	require.Len(t, view.Positions, 1)
	assert.Equal(t, a.Key, view.Positions[0].Key)

	// Substring on address.
	view, err = svc.View(ctx, domain.TabActive, domain.DisplayFilters{Trader: addrB[:10]})
	require.NoError(t, err)
	require.Len(t, view.Positions, 1)
	assert.Equal(t, b.Key, view.Positions[0].Key)
}

func TestViewSortToggleAndSyntheticKeys(t *testing.T) {
	ctx := context.Background()
	svc := newTestDisplay(newFakePositionStore(), newFakeHiddenStore(), nil)

	old := displayPos(addrA, "BTC", domain.PositionStatusActive)
	old.CreatedAt = time.Now().Add(-48 * time.Hour)
	young := displayPos(addrA, "ETH", domain.PositionStatusNew)
	young.CreatedAt = time.Now().Add(-time.Hour)
	svc.UpdateLive([]domain.DisplayPosition{old, young})

	// Default sort is newest first.
	view, err := svc.View(ctx, domain.TabAll, domain.DisplayFilters{})
	require.NoError(t, err)
	require.Len(t, view.Positions, 2)
	assert.Equal(t, "ETH", view.Positions[0].Coin)

	// Selecting duration flips to ascending: oldest first.
	svc.Sort("duration")
	view, err = svc.View(ctx, domain.TabAll, domain.DisplayFilters{})
	require.NoError(t, err)
	assert.Equal(t, "BTC", view.Positions[0].Coin)

	// Status sort ranks new ahead of active when descending.
	svc.Sort("status")
	svc.Sort("status")
	view, err = svc.View(ctx, domain.TabAll, domain.DisplayFilters{})
	require.NoError(t, err)
	assert.Equal(t, domain.PositionStatusNew, view.Positions[0].Status)
}

func TestViewPaginatesAtTen(t *testing.T) {
	ctx := context.Background()
	svc := newTestDisplay(newFakePositionStore(), newFakeHiddenStore(), nil)

	var live []domain.DisplayPosition
	for i := 0; i < 23; i++ {
		p := displayPos(addrA, fmt.Sprintf("COIN%02d", i), domain.PositionStatusActive)
		p.CreatedAt = time.Now().Add(-time.Duration(i) * time.Minute)
		live = append(live, p)
	}
	svc.UpdateLive(live)

	view, err := svc.View(ctx, domain.TabActive, domain.DisplayFilters{})
	require.NoError(t, err)
	assert.Equal(t, 1, view.Page)
	assert.Equal(t, 10, view.PageSize)
	assert.Equal(t, 3, view.TotalPages)
	assert.Equal(t, 23, view.Total)
	assert.Len(t, view.Positions, 10)

	svc.SetPage(domain.TabActive, 3)
	view, err = svc.View(ctx, domain.TabActive, domain.DisplayFilters{})
	require.NoError(t, err)
	assert.Equal(t, 3, view.Page)
	assert.Len(t, view.Positions, 3)

	// Out-of-range page clamps to the last page.
	svc.SetPage(domain.TabActive, 99)
	view, err = svc.View(ctx, domain.TabActive, domain.DisplayFilters{})
	require.NoError(t, err)
	assert.Equal(t, 3, view.Page)
}

func TestViewFilterChangeResetsPages(t *testing.T) {
	ctx := context.Background()
	svc := newTestDisplay(newFakePositionStore(), newFakeHiddenStore(), nil)

	var live []domain.DisplayPosition
	for i := 0; i < 15; i++ {
		live = append(live, displayPos(addrA, fmt.Sprintf("COIN%02d", i), domain.PositionStatusActive))
	}
	svc.UpdateLive(live)

	svc.SetPage(domain.TabActive, 2)
	view, err := svc.View(ctx, domain.TabActive, domain.DisplayFilters{})
	require.NoError(t, err)
	assert.Equal(t, 2, view.Page)

	// A new filter resets pagination back to page 1.
	view, err = svc.View(ctx, domain.TabActive, domain.DisplayFilters{Coin: "COIN"})
	require.NoError(t, err)
	assert.Equal(t, 1, view.Page)
}

func TestViewClosedTabUsesStoredFinalPnL(t *testing.T) {
	ctx := context.Background()
	positions := newFakePositionStore()
	svc := newTestDisplay(positions, newFakeHiddenStore(), nil)

	closedAt := time.Now().Add(-time.Hour)
	finalPnL := 42.0
	rec := trackedPos(addrA, "BTC", domain.PositionStatusClosed, time.Now().Add(-48*time.Hour))
	rec.ClosedAt = &closedAt
	rec.FinalPnL = &finalPnL
	require.NoError(t, positions.Upsert(ctx, rec))

	view, err := svc.View(ctx, domain.TabClosed, domain.DisplayFilters{})
	require.NoError(t, err)
	require.Len(t, view.Positions, 1)
	assert.Equal(t, domain.PositionStatusClosed, view.Positions[0].Status)
	assert.InDelta(t, 42.0, view.Positions[0].PnL, 1e-9)
}
