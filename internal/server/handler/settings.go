package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/hypertrack/internal/config"
)

// PollController exposes the runtime-mutable poll schedule.
type PollController interface {
	Interval() time.Duration
	SetInterval(seconds int) error
	TriggerRefresh() error
}

// SettingsHandler serves the poll interval settings and the manual refresh
// trigger.
type SettingsHandler struct {
	poller PollController
	logger *slog.Logger
}

// NewSettingsHandler creates a SettingsHandler.
func NewSettingsHandler(poller PollController, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{
		poller: poller,
		logger: logger,
	}
}

// GetInterval returns the current poll interval and the accepted values.
// GET /api/settings/interval
func (h *SettingsHandler) GetInterval(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"interval_seconds": int(h.poller.Interval().Seconds()),
		"valid_intervals":  config.ValidIntervals,
	})
}

type intervalRequest struct {
	Seconds int `json:"seconds"`
}

// SetInterval switches the poll interval at runtime.
// PUT /api/settings/interval
func (h *SettingsHandler) SetInterval(w http.ResponseWriter, r *http.Request) {
	var req intervalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.poller.SetInterval(req.Seconds); err != nil {
		writeError(w, http.StatusBadRequest, "interval must be one of 30, 60, 300 seconds")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"interval_seconds": req.Seconds})
}

// TriggerRefresh requests an immediate poll cycle.
// POST /api/refresh
func (h *SettingsHandler) TriggerRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.poller.TriggerRefresh(); err != nil {
		writeDomainError(w, err)
		return
	}
	h.logger.InfoContext(r.Context(), "manual refresh requested")
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refresh scheduled"})
}
