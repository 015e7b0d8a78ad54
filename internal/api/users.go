package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/odvoz/internal/model"
	"github.com/erazemk/odvoz/internal/store"
)

// UsersHandler handles requester signup and user administration.
type UsersHandler struct {
	DB *sql.DB
}

// ReceiversHandler handles receiver signup and administration.
type ReceiversHandler struct {
	DB *sql.DB
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type approvalRequest struct {
	Approved bool `json:"approved"`
}

// validate trims the request and returns the first missing or malformed
// field.
func (req *signupRequest) validate() (field, message string) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = model.NormalizeEmail(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)

	switch {
	case req.Name == "":
		return "name", "name is required"
	case req.Email == "":
		return "email", "email is required"
	case !strings.Contains(req.Email, "@"):
		return "email", "email is not valid"
	case req.Phone == "":
		return "phone", "phone is required"
	case req.Password == "":
		return "password", "password is required"
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		return "password", err.Error()
	}
	return "", ""
}

// emailInUse reports whether either account table already holds email.
func emailInUse(r *http.Request, db *sql.DB, email string) (bool, error) {
	u, err := store.GetUserByEmail(r.Context(), db, email)
	if err != nil || u != nil {
		return u != nil, err
	}
	rcv, err := store.GetReceiverByEmail(r.Context(), db, email)
	return rcv != nil, err
}

// decodeSignup reads and validates a signup body and returns the password
// hash. It writes the error response and returns false on failure.
func decodeSignup(w http.ResponseWriter, r *http.Request, db *sql.DB) (*signupRequest, string, bool) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return nil, "", false
	}
	if field, msg := req.validate(); field != "" {
		jsonFieldError(w, field, msg)
		return nil, "", false
	}

	taken, err := emailInUse(r, db, req.Email)
	if err != nil {
		slog.Error("failed to check email", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return nil, "", false
	}
	if taken {
		jsonError(w, http.StatusConflict, "email already registered")
		return nil, "", false
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return nil, "", false
	}
	return &req, string(hash), true
}

// Signup handles POST /api/users. Requester accounts are usable at once.
func (h *UsersHandler) Signup(w http.ResponseWriter, r *http.Request) {
	req, hash, ok := decodeSignup(w, r, h.DB)
	if !ok {
		return
	}

	tx, err := h.DB.BeginTx(r.Context(), nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	defer tx.Rollback()

	user, err := store.CreateUser(r.Context(), tx, req.Name, req.Email, req.Phone, hash, model.RoleUser)
	if errors.Is(err, store.ErrEmailTaken) {
		jsonError(w, http.StatusConflict, "email already registered")
		return
	}
	if err != nil {
		slog.Error("failed to create user", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	if _, err := store.SetUserApproved(r.Context(), tx, user.ID, true); err != nil {
		slog.Error("failed to approve user", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit user signup", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	user.Approved = true

	slog.Info("user signed up", "user", user.ID, "email", user.Email)
	jsonResponse(w, http.StatusCreated, user)
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to list users", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	jsonResponse(w, http.StatusOK, users)
}

// Get handles GET /api/users/{id}.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := store.GetUser(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		slog.Error("failed to get user", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	if user == nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

// SetApproval handles PUT /api/users/{id}/approval.
func (h *UsersHandler) SetApproval(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req approvalRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, _ := GetPrincipal(r.Context())
	if id == p.ID && !req.Approved {
		jsonError(w, http.StatusBadRequest, "cannot revoke your own approval")
		return
	}

	found, err := store.SetUserApproved(r.Context(), h.DB, id, req.Approved)
	if err != nil {
		slog.Error("failed to update user approval", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update user")
		return
	}
	if !found {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil || user == nil {
		jsonError(w, http.StatusInternalServerError, "failed to get user")
		return
	}

	slog.Info("user approval updated", "user", p.ID, "target_user", id, "approved", req.Approved)
	jsonResponse(w, http.StatusOK, user)
}

// Signup handles POST /api/receivers. Receivers wait for admin approval
// before they can log in.
func (h *ReceiversHandler) Signup(w http.ResponseWriter, r *http.Request) {
	req, hash, ok := decodeSignup(w, r, h.DB)
	if !ok {
		return
	}

	rcv, err := store.CreateReceiver(r.Context(), h.DB, req.Name, req.Email, req.Phone, hash)
	if errors.Is(err, store.ErrEmailTaken) {
		jsonError(w, http.StatusConflict, "email already registered")
		return
	}
	if err != nil {
		slog.Error("failed to create receiver", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create receiver")
		return
	}

	slog.Info("receiver signed up", "receiver", rcv.ID, "email", rcv.Email)
	jsonResponse(w, http.StatusCreated, rcv)
}

// List handles GET /api/receivers.
func (h *ReceiversHandler) List(w http.ResponseWriter, r *http.Request) {
	receivers, err := store.ListReceivers(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to list receivers", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list receivers")
		return
	}
	if receivers == nil {
		receivers = []model.Receiver{}
	}
	jsonResponse(w, http.StatusOK, receivers)
}

// SetApproval handles PUT /api/receivers/{id}/approval.
func (h *ReceiversHandler) SetApproval(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req approvalRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	found, err := store.SetReceiverApproved(r.Context(), h.DB, id, req.Approved)
	if err != nil {
		slog.Error("failed to update receiver approval", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update receiver")
		return
	}
	if !found {
		jsonError(w, http.StatusNotFound, "receiver not found")
		return
	}

	rcv, err := store.GetReceiver(r.Context(), h.DB, id)
	if err != nil || rcv == nil {
		jsonError(w, http.StatusInternalServerError, "failed to get receiver")
		return
	}

	p, _ := GetPrincipal(r.Context())
	slog.Info("receiver approval updated", "user", p.ID, "receiver", id, "approved", req.Approved)
	jsonResponse(w, http.StatusOK, rcv)
}
