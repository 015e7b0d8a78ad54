package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/odvoz/internal/model"
	"github.com/erazemk/odvoz/internal/notify"
)

// NotificationsHandler serves the caller's mailbox.
type NotificationsHandler struct {
	Sink notify.Sink
}

// List handles GET /api/notifications.
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	p, _ := GetPrincipal(r.Context())

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			jsonFieldError(w, "limit", "limit must be a non-negative number")
			return
		}
		limit = n
	}

	list, err := h.Sink.List(r.Context(), p.Mailbox(), limit)
	if err != nil {
		slog.Error("failed to list notifications", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	if list == nil {
		list = []model.Notification{}
	}
	jsonResponse(w, http.StatusOK, list)
}

// MarkRead handles PUT /api/notifications/{id}/read.
func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	p, _ := GetPrincipal(r.Context())

	found, err := h.Sink.MarkRead(r.Context(), r.PathValue("id"), p.Mailbox())
	if err != nil {
		slog.Error("failed to mark notification read", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update notification")
		return
	}
	if !found {
		jsonError(w, http.StatusNotFound, "notification not found")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "notification marked as read"})
}
