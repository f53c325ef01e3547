package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/hypertrack/internal/domain"
)

// AnalyticsHandler serves lifetime stats and the close-record history.
type AnalyticsHandler struct {
	history domain.HistoryStore
	logger  *slog.Logger
}

// NewAnalyticsHandler creates an AnalyticsHandler.
func NewAnalyticsHandler(history domain.HistoryStore, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		history: history,
		logger:  logger,
	}
}

// GetAnalytics returns aggregate stats, optionally scoped to one address.
// GET /api/analytics?address=0x...
func (h *AnalyticsHandler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address != "" {
		address = domain.NormalizeAddress(address)
		if err := domain.ValidateAddress(address); err != nil {
			writeDomainError(w, err)
			return
		}
	}

	analytics, err := h.history.Analytics(r.Context(), address)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "analytics query failed",
			slog.String("address", address),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics)
}

// ListHistory returns close records, most recent first.
// GET /api/history?address=0x...&limit=100
func (h *AnalyticsHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address != "" {
		address = domain.NormalizeAddress(address)
		if err := domain.ValidateAddress(address); err != nil {
			writeDomainError(w, err)
			return
		}
	}

	limit := queryInt(r, "limit", 100)
	if limit < 1 || limit > 1000 {
		limit = 100
	}

	records, err := h.history.List(r.Context(), address, limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "history query failed",
			slog.String("address", address),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	if records == nil {
		records = []domain.PositionHistory{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": records})
}
