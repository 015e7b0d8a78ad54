package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/odvoz/internal/auth"
	"github.com/erazemk/odvoz/internal/model"
	"github.com/erazemk/odvoz/internal/store"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	DB        *sql.DB
	JWTSecret string
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	ID    string `json:"id"`
	Role  string `json:"role"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// account is the credential view shared by users and receivers.
type account struct {
	id       string
	email    string
	role     string
	hash     string
	approved bool
}

// findAccount looks email up among users first, then receivers.
func (h *AuthHandler) findAccount(ctx context.Context, email string) (*account, error) {
	u, err := store.GetUserByEmail(ctx, h.DB, email)
	if err != nil {
		return nil, err
	}
	if u != nil {
		return &account{u.ID, u.Email, u.Role, u.PasswordHash, u.Approved}, nil
	}

	rcv, err := store.GetReceiverByEmail(ctx, h.DB, email)
	if err != nil {
		return nil, err
	}
	if rcv != nil {
		return &account{rcv.ID, rcv.Email, model.RoleReceiver, rcv.PasswordHash, rcv.Approved}, nil
	}
	return nil, nil
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "email and password required")
		return
	}

	acc, err := h.findAccount(r.Context(), req.Email)
	if err != nil {
		slog.Error("failed to look up account", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if acc == nil {
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.hash), []byte(req.Password)); err != nil {
		slog.Warn("login failed", "email", acc.email, "remote", r.RemoteAddr)
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !acc.approved {
		jsonError(w, http.StatusForbidden, "account is awaiting approval")
		return
	}

	token, err := auth.GenerateToken(h.JWTSecret, acc.id, acc.email, acc.role)
	if err != nil {
		slog.Error("failed to generate token", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	slog.Info("account logged in", "email", acc.email, "role", acc.role)
	jsonResponse(w, http.StatusOK, loginResponse{Token: token, ID: acc.id, Role: acc.role})
}

// Logout handles POST /api/auth/logout by revoking the presented token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusBadRequest, "no token to revoke")
		return
	}

	expires := time.Now().Add(auth.TokenExpiry)
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	if err := store.RevokeToken(r.Context(), h.DB, claims.ID, expires); err != nil {
		slog.Error("failed to revoke token", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to log out")
		return
	}

	slog.Info("account logged out", "email", claims.Email)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// ChangePassword handles PUT /api/auth/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	p, ok := GetPrincipal(r.Context())
	if !ok {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.CurrentPassword == "" || req.NewPassword == "" {
		jsonError(w, http.StatusBadRequest, "current and new password required")
		return
	}
	if err := model.ValidatePassword(req.NewPassword); err != nil {
		jsonFieldError(w, "new_password", err.Error())
		return
	}

	var current string
	if p.IsReceiver() {
		rcv, err := store.GetReceiver(r.Context(), h.DB, p.ID)
		if err != nil || rcv == nil {
			jsonError(w, http.StatusInternalServerError, "internal error")
			return
		}
		current = rcv.PasswordHash
	} else {
		u, err := store.GetUser(r.Context(), h.DB, p.ID)
		if err != nil || u == nil {
			jsonError(w, http.StatusInternalServerError, "internal error")
			return
		}
		current = u.PasswordHash
	}

	if err := bcrypt.CompareHashAndPassword([]byte(current), []byte(req.CurrentPassword)); err != nil {
		jsonError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	if p.IsReceiver() {
		err = store.UpdateReceiverPassword(r.Context(), h.DB, p.ID, string(hash))
	} else {
		err = store.UpdateUserPassword(r.Context(), h.DB, p.ID, string(hash))
	}
	if err != nil {
		slog.Error("failed to update password", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update password")
		return
	}

	slog.Info("account changed own password", "account", p.ID, "role", p.Role)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password updated"})
}
