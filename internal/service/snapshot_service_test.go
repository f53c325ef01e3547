package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/hypertrack/internal/domain"
)

// countingFetcher tracks per-call concurrency so batch bounds can be asserted.
type countingFetcher struct {
	mu        sync.Mutex
	inFlight  int
	peak      int
	failAddrs map[string]bool
	positions map[string][]domain.RawPosition
}

func (f *countingFetcher) RawPositions(ctx context.Context, address string) ([]domain.RawPosition, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.peak {
		f.peak = f.inFlight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.failAddrs[address] {
		return nil, errors.New("request failed")
	}
	return f.positions[address], nil
}

func trackedAddrs(addresses ...string) []domain.TrackedAddress {
	out := make([]domain.TrackedAddress, len(addresses))
	for i, a := range addresses {
		out[i] = domain.TrackedAddress{Address: a}
	}
	return out
}

func TestFetchAllReturnsSnapshotPerAddress(t *testing.T) {
	fetcher := &countingFetcher{
		positions: map[string][]domain.RawPosition{
			addrA: {rawPos(addrA, "BTC", 1, 100)},
		},
	}
	svc := NewSnapshotService(fetcher, 3, 0, testLogger())

	snaps, err := svc.FetchAll(context.Background(), trackedAddrs(addrA, addrB))
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, addrA, snaps[0].Address)
	assert.Len(t, snaps[0].Positions, 1)
	assert.Equal(t, addrB, snaps[1].Address)
	assert.Empty(t, snaps[1].Positions)
}

func TestFetchAllBoundsConcurrencyToBatchSize(t *testing.T) {
	fetcher := &countingFetcher{positions: map[string][]domain.RawPosition{}}
	svc := NewSnapshotService(fetcher, 3, 0, testLogger())

	addrs := trackedAddrs(addrA, addrB,
		"0x"+strings.Repeat("c", 40),
		"0x"+strings.Repeat("d", 40),
		"0x"+strings.Repeat("e", 40),
		"0x"+strings.Repeat("f", 40),
		"0x"+strings.Repeat("1", 40),
	)
	snaps, err := svc.FetchAll(context.Background(), addrs)
	require.NoError(t, err)
	assert.Len(t, snaps, len(addrs))
	assert.LessOrEqual(t, fetcher.peak, 3)
}

func TestFetchAllFailedAddressYieldsEmptySnapshot(t *testing.T) {
	fetcher := &countingFetcher{
		failAddrs: map[string]bool{addrA: true},
		positions: map[string][]domain.RawPosition{
			addrB: {rawPos(addrB, "ETH", 2, 50)},
		},
	}
	svc := NewSnapshotService(fetcher, 3, 0, testLogger())

	snaps, err := svc.FetchAll(context.Background(), trackedAddrs(addrA, addrB))
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Empty(t, snaps[0].Positions)
	assert.Len(t, snaps[1].Positions, 1)
}

func TestFetchAllHonoursContextCancellation(t *testing.T) {
	fetcher := &countingFetcher{positions: map[string][]domain.RawPosition{}}
	svc := NewSnapshotService(fetcher, 1, 0, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.FetchAll(ctx, trackedAddrs(addrA, addrB))
	assert.Error(t, err)
}
