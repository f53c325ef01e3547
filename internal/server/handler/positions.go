package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/hypertrack/internal/domain"
	"github.com/alanyoungcy/hypertrack/internal/service"
)

// PositionViewer serves the merged, paginated dashboard views.
type PositionViewer interface {
	View(ctx context.Context, tab domain.Tab, filters domain.DisplayFilters) (service.ViewPage, error)
	SetPage(tab domain.Tab, page int)
	Sort(key string)
}

// PositionHandler serves the position views and the hide/unhide toggles.
type PositionHandler struct {
	viewer PositionViewer
	hidden domain.HiddenPositionStore
	logger *slog.Logger
}

// NewPositionHandler creates a PositionHandler.
func NewPositionHandler(viewer PositionViewer, hidden domain.HiddenPositionStore, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{
		viewer: viewer,
		hidden: hidden,
		logger: logger,
	}
}

// positionsResponse wraps one page of a tab view.
type positionsResponse struct {
	Tab        domain.Tab               `json:"tab"`
	Positions  []domain.DisplayPosition `json:"positions"`
	Page       int                      `json:"page"`
	PageSize   int                      `json:"page_size"`
	TotalPages int                      `json:"total_pages"`
	Total      int                      `json:"total"`
}

// ListPositions serves one page of a dashboard tab.
// GET /api/positions?tab=active&coin=BTC&trader=whale&page=2
func (h *PositionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	tab := domain.Tab(q.Get("tab"))
	if tab == "" {
		tab = domain.TabActive
	}
	switch tab {
	case domain.TabActive, domain.TabNew, domain.TabClosed, domain.TabHidden, domain.TabAll:
	default:
		writeError(w, http.StatusBadRequest, "unknown tab")
		return
	}

	filters := domain.DisplayFilters{
		Coin:   q.Get("coin"),
		Trader: q.Get("trader"),
	}

	if page := queryInt(r, "page", 0); page > 0 {
		h.viewer.SetPage(tab, page)
	}

	view, err := h.viewer.View(r.Context(), tab, filters)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "position view failed",
			slog.String("tab", string(tab)),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	positions := view.Positions
	if positions == nil {
		positions = []domain.DisplayPosition{}
	}

	writeJSON(w, http.StatusOK, positionsResponse{
		Tab:        tab,
		Positions:  positions,
		Page:       view.Page,
		PageSize:   view.PageSize,
		TotalPages: view.TotalPages,
		Total:      view.Total,
	})
}

// sortRequest selects the sort column.
type sortRequest struct {
	Key string `json:"key"`
}

// SetSort selects the sort key; re-selecting the current key flips direction.
// POST /api/positions/sort
func (h *PositionHandler) SetSort(w http.ResponseWriter, r *http.Request) {
	var req sortRequest
	if err := decodeJSON(r, &req); err != nil || req.Key == "" {
		writeError(w, http.StatusBadRequest, "sort key required")
		return
	}
	h.viewer.Sort(req.Key)
	writeJSON(w, http.StatusOK, map[string]string{"sort": req.Key})
}

// HidePosition adds a position key to the hidden set.
// POST /api/positions/{key}/hide
func (h *PositionHandler) HidePosition(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "position key required")
		return
	}

	if err := h.hidden.Add(r.Context(), key); err != nil {
		h.logger.ErrorContext(r.Context(), "hide position failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"key": key, "hidden": true})
}

// UnhidePosition removes a position key from the hidden set.
// DELETE /api/positions/{key}/hide
func (h *PositionHandler) UnhidePosition(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "position key required")
		return
	}

	if err := h.hidden.Remove(r.Context(), key); err != nil {
		h.logger.ErrorContext(r.Context(), "unhide position failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"key": key, "hidden": false})
}
