package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/alanyoungcy/hypertrack/internal/domain"
)

// RecipientHandler serves the alert distribution list endpoints.
type RecipientHandler struct {
	recipients domain.RecipientStore
	auditLog   domain.NotificationLogStore
	logger     *slog.Logger
}

// NewRecipientHandler creates a RecipientHandler.
func NewRecipientHandler(recipients domain.RecipientStore, auditLog domain.NotificationLogStore, logger *slog.Logger) *RecipientHandler {
	return &RecipientHandler{
		recipients: recipients,
		auditLog:   auditLog,
		logger:     logger,
	}
}

// ListRecipients returns the alert distribution list.
// GET /api/recipients
func (h *RecipientHandler) ListRecipients(w http.ResponseWriter, r *http.Request) {
	recipients, err := h.recipients.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list recipients failed",
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	if recipients == nil {
		recipients = []domain.Recipient{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"recipients": recipients})
}

type recipientRequest struct {
	Email string `json:"email"`
}

// AddRecipient adds an email to the distribution list.
// POST /api/recipients
func (h *RecipientHandler) AddRecipient(w http.ResponseWriter, r *http.Request) {
	var req recipientRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := domain.ValidateEmail(email); err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.recipients.Add(r.Context(), email); err != nil {
		h.logger.ErrorContext(r.Context(), "add recipient failed",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"email": email})
}

// RemoveRecipient removes an email from the distribution list.
// DELETE /api/recipients/{email}
func (h *RecipientHandler) RemoveRecipient(w http.ResponseWriter, r *http.Request) {
	email := strings.ToLower(strings.TrimSpace(r.PathValue("email")))
	if err := domain.ValidateEmail(email); err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.recipients.Remove(r.Context(), email); err != nil {
		h.logger.ErrorContext(r.Context(), "remove recipient failed",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"email": email, "status": "removed"})
}

// ListNotificationLog returns recent alert audit entries.
// GET /api/notifications/log?limit=50
func (h *RecipientHandler) ListNotificationLog(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	if limit < 1 || limit > 500 {
		limit = 50
	}

	entries, err := h.auditLog.List(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list notification log failed",
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.NotificationLogEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
