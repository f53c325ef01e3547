package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/hypertrack/internal/domain"
	"github.com/alanyoungcy/hypertrack/internal/service"
)

type fakeViewer struct {
	page      service.ViewPage
	lastTab   domain.Tab
	lastFilt  domain.DisplayFilters
	pageCalls map[domain.Tab]int
	sortKeys  []string
}

func (f *fakeViewer) View(ctx context.Context, tab domain.Tab, filters domain.DisplayFilters) (service.ViewPage, error) {
	f.lastTab = tab
	f.lastFilt = filters
	return f.page, nil
}

func (f *fakeViewer) SetPage(tab domain.Tab, page int) {
	if f.pageCalls == nil {
		f.pageCalls = make(map[domain.Tab]int)
	}
	f.pageCalls[tab] = page
}

func (f *fakeViewer) Sort(key string) {
	f.sortKeys = append(f.sortKeys, key)
}

type fakeHidden struct {
	keys map[string]bool
}

func (f *fakeHidden) Add(ctx context.Context, key string) error {
	if f.keys == nil {
		f.keys = make(map[string]bool)
	}
	f.keys[key] = true
	return nil
}

func (f *fakeHidden) Remove(ctx context.Context, key string) error {
	delete(f.keys, key)
	return nil
}

func (f *fakeHidden) List(ctx context.Context) ([]string, error) { return nil, nil }

func newTestMux(viewer *fakeViewer, hidden *fakeHidden) *http.ServeMux {
	h := NewPositionHandler(viewer, hidden, slog.New(slog.DiscardHandler))
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/positions", h.ListPositions)
	mux.HandleFunc("POST /api/positions/sort", h.SetSort)
	mux.HandleFunc("POST /api/positions/{key}/hide", h.HidePosition)
	mux.HandleFunc("DELETE /api/positions/{key}/hide", h.UnhidePosition)
	return mux
}

func TestListPositionsDefaultsToActiveTab(t *testing.T) {
	viewer := &fakeViewer{page: service.ViewPage{Page: 1, PageSize: 10, TotalPages: 1}}
	mux := newTestMux(viewer, &fakeHidden{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/positions", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.TabActive, viewer.lastTab)

	var resp positionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Positions)
	assert.Equal(t, 10, resp.PageSize)
}

func TestListPositionsPassesFiltersAndPage(t *testing.T) {
	viewer := &fakeViewer{page: service.ViewPage{Page: 2, PageSize: 10, TotalPages: 3}}
	mux := newTestMux(viewer, &fakeHidden{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/positions?tab=all&coin=BTC&trader=whale&page=2", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.TabAll, viewer.lastTab)
	assert.Equal(t, domain.DisplayFilters{Coin: "BTC", Trader: "whale"}, viewer.lastFilt)
	assert.Equal(t, 2, viewer.pageCalls[domain.TabAll])
}

func TestListPositionsRejectsUnknownTab(t *testing.T) {
	mux := newTestMux(&fakeViewer{}, &fakeHidden{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/positions?tab=bogus", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetSortTogglesKey(t *testing.T) {
	viewer := &fakeViewer{}
	mux := newTestMux(viewer, &fakeHidden{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/positions/sort", strings.NewReader(`{"key":"pnl"}`))
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"pnl"}, viewer.sortKeys)
}

func TestHideAndUnhidePosition(t *testing.T) {
	hidden := &fakeHidden{}
	mux := newTestMux(&fakeViewer{}, hidden)

	key := "0xabc-BTC"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/positions/"+key+"/hide", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, hidden.keys[key])

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/positions/"+key+"/hide", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, hidden.keys[key])
}
