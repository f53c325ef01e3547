package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/hypertrack/internal/domain"
)

// AddressHandler serves the tracked-address CRUD endpoints.
type AddressHandler struct {
	addresses domain.AddressStore
	logger    *slog.Logger
}

// NewAddressHandler creates an AddressHandler.
func NewAddressHandler(addresses domain.AddressStore, logger *slog.Logger) *AddressHandler {
	return &AddressHandler{
		addresses: addresses,
		logger:    logger,
	}
}

type addressPayload struct {
	Address              string `json:"address"`
	Alias                string `json:"alias"`
	Color                string `json:"color"`
	NotificationsEnabled bool   `json:"notifications_enabled"`
}

// ListAddresses returns every tracked address.
// GET /api/addresses
func (h *AddressHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	addrs, err := h.addresses.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list addresses failed",
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	if addrs == nil {
		addrs = []domain.TrackedAddress{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"addresses": addrs})
}

// CreateAddress starts tracking a new address.
// POST /api/addresses
func (h *AddressHandler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	var req addressPayload
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	addr := domain.NormalizeAddress(req.Address)
	if err := domain.ValidateAddress(addr); err != nil {
		writeDomainError(w, err)
		return
	}

	rec := domain.TrackedAddress{
		Address:              addr,
		Alias:                req.Alias,
		Color:                req.Color,
		NotificationsEnabled: req.NotificationsEnabled,
		CreatedAt:            time.Now().UTC(),
	}
	if err := h.addresses.Create(r.Context(), rec); err != nil {
		h.logger.ErrorContext(r.Context(), "create address failed",
			slog.String("address", addr),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

// DeleteAddress stops tracking an address.
// DELETE /api/addresses/{address}
func (h *AddressHandler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	addr := domain.NormalizeAddress(r.PathValue("address"))
	if err := domain.ValidateAddress(addr); err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.addresses.Delete(r.Context(), addr); err != nil {
		h.logger.ErrorContext(r.Context(), "delete address failed",
			slog.String("address", addr),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"address": addr, "status": "deleted"})
}

type notificationsRequest struct {
	Enabled bool `json:"enabled"`
}

// SetNotifications toggles new-position alerts for one address.
// PUT /api/addresses/{address}/notifications
func (h *AddressHandler) SetNotifications(w http.ResponseWriter, r *http.Request) {
	addr := domain.NormalizeAddress(r.PathValue("address"))
	if err := domain.ValidateAddress(addr); err != nil {
		writeDomainError(w, err)
		return
	}

	var req notificationsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.addresses.SetNotifications(r.Context(), addr, req.Enabled); err != nil {
		h.logger.ErrorContext(r.Context(), "set notifications failed",
			slog.String("address", addr),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"address":               addr,
		"notifications_enabled": req.Enabled,
	})
}
