package hyperliquid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllMidsParsesStringPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req infoRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "allMids", req.Type)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"BTC":"50123.5","ETH":"3050.25","BAD":"not-a-number"}`))
	}))
	defer srv.Close()

	client := NewInfoClient(srv.URL, 5*time.Second)

	mids, err := client.AllMids(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 50123.5, mids["BTC"], 1e-9)
	assert.InDelta(t, 3050.25, mids["ETH"], 1e-9)
	assert.Zero(t, mids["BAD"])
}

func TestRawPositionsDropsZeroSizeEntries(t *testing.T) {
	const address = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req infoRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "clearinghouseState", req.Type)
		assert.Equal(t, address, req.User)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"assetPositions": [
				{"type":"oneWay","position":{"coin":"BTC","szi":"1.5","entryPx":"50000","unrealizedPnl":"250","liquidationPx":"40000","leverage":{"type":"cross","value":10}}},
				{"type":"oneWay","position":{"coin":"ETH","szi":"0","entryPx":"3000","unrealizedPnl":"0","liquidationPx":"0","leverage":{"type":"cross","value":5}}},
				{"type":"oneWay","position":{"coin":"SOL","szi":"-20","entryPx":"150","unrealizedPnl":"-30","liquidationPx":"180","leverage":{"type":"isolated","value":3}}}
			]
		}`))
	}))
	defer srv.Close()

	client := NewInfoClient(srv.URL, 5*time.Second)

	positions, err := client.RawPositions(context.Background(), address)
	require.NoError(t, err)
	require.Len(t, positions, 2)

	btc := positions[0]
	assert.Equal(t, "BTC", btc.Coin)
	assert.Equal(t, address, btc.Address)
	assert.InDelta(t, 1.5, btc.Size, 1e-9)
	assert.InDelta(t, 50000, btc.EntryPrice, 1e-9)
	assert.Equal(t, 10, btc.Leverage)

	sol := positions[1]
	assert.Equal(t, "SOL", sol.Coin)
	assert.InDelta(t, -20, sol.Size, 1e-9)
}

func TestDoPostRejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewInfoClient(srv.URL, 5*time.Second)

	_, err := client.AllMids(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestAPIPositionToRawDerivesSide(t *testing.T) {
	long, ok := APIPosition{Coin: "BTC", Szi: "2", EntryPx: "100"}.ToRaw("0xabc")
	require.True(t, ok)
	assert.Equal(t, "LONG", string(long.Side()))

	short, ok := APIPosition{Coin: "BTC", Szi: "-2", EntryPx: "100"}.ToRaw("0xabc")
	require.True(t, ok)
	assert.Equal(t, "SHORT", string(short.Side()))

	_, ok = APIPosition{Coin: "BTC", Szi: "0"}.ToRaw("0xabc")
	assert.False(t, ok)
}
