package api

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/odvoz/internal/model"
	"github.com/erazemk/odvoz/internal/pickup"
	"github.com/erazemk/odvoz/internal/store"
)

// FeedbackHandler handles the contact inbox.
type FeedbackHandler struct {
	DB       *sql.DB
	Notifier pickup.Notifier
}

type createFeedbackRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type feedbackResponseRequest struct {
	Response string `json:"admin_response"`
}

// Create handles POST /api/feedback and tells every admin about it.
func (h *FeedbackHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createFeedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = model.NormalizeEmail(req.Email)
	req.Message = strings.TrimSpace(req.Message)
	switch {
	case req.Email == "":
		jsonFieldError(w, "email", "email is required")
		return
	case req.Message == "":
		jsonFieldError(w, "message", "message is required")
		return
	}

	fb, err := store.CreateFeedback(r.Context(), h.DB, strings.TrimSpace(req.Name), req.Email,
		strings.TrimSpace(req.Phone), req.Message)
	if err != nil {
		slog.Error("failed to store feedback", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to store feedback")
		return
	}

	from := fb.Name
	if from == "" {
		from = fb.Email
	}
	admins, err := store.ListAdminIDs(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to list admins for notification", "error", err)
	}
	for _, id := range admins {
		h.Notifier.Enqueue(model.NotifyUser(id, fmt.Sprintf("New user feedback received from %s.", from)))
	}

	slog.Info("feedback received", "feedback", fb.ID, "email", fb.Email)
	jsonResponse(w, http.StatusCreated, fb)
}

// List handles GET /api/feedback. An email query parameter narrows the
// list to one sender.
func (h *FeedbackHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := store.ListFeedback(r.Context(), h.DB, r.URL.Query().Get("email"))
	if err != nil {
		slog.Error("failed to list feedback", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list feedback")
		return
	}
	if list == nil {
		list = []model.Feedback{}
	}
	jsonResponse(w, http.StatusOK, list)
}

// Respond handles PUT /api/feedback/{id}/response. The sender is notified
// when they have a user account.
func (h *FeedbackHandler) Respond(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req feedbackResponseRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Response = strings.TrimSpace(req.Response)
	if req.Response == "" {
		jsonFieldError(w, "admin_response", "response is required")
		return
	}

	fb, err := store.GetFeedback(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get feedback", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get feedback")
		return
	}
	if fb == nil {
		jsonError(w, http.StatusNotFound, "feedback not found")
		return
	}

	if err := store.SetFeedbackResponse(r.Context(), h.DB, id, req.Response); err != nil {
		slog.Error("failed to store feedback response", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update feedback")
		return
	}
	fb.AdminResponse = req.Response

	sender, err := store.GetUserByEmail(r.Context(), h.DB, fb.Email)
	if err != nil {
		slog.Error("failed to look up feedback sender", "error", err)
	}
	if sender != nil {
		h.Notifier.Enqueue(model.NotifyUser(sender.ID, "Admin replied to your feedback: "+req.Response))
	}

	p, _ := GetPrincipal(r.Context())
	slog.Info("feedback answered", "user", p.ID, "feedback", id)
	jsonResponse(w, http.StatusOK, fb)
}
