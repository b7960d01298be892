package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tudasmester/elira-backend/internal/config"
	"github.com/tudasmester/elira-backend/internal/crypto"
	"github.com/tudasmester/elira-backend/internal/logging"
	"github.com/tudasmester/elira-backend/internal/models"
	"github.com/tudasmester/elira-backend/internal/services"
	"github.com/tudasmester/elira-backend/internal/session"
	"github.com/tudasmester/elira-backend/internal/store"
)

// AuthHandler handles user registration and login.
type AuthHandler struct {
	cfg     *config.Config
	store   *store.Store
	auth    *services.AuthService
	tracker *session.Tracker
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(cfg *config.Config, st *store.Store, auth *services.AuthService, tracker *session.Tracker) *AuthHandler {
	return &AuthHandler{cfg: cfg, store: st, auth: auth, tracker: tracker}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "valid email is required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	if _, err := h.store.GetUserByEmail(r.Context(), req.Email); err == nil {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to create user", err)
		return
	}

	user, err := h.store.CreateUser(r.Context(), req.Email, req.Name, hash, false)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to create user", err)
		return
	}

	h.login(w, r, user)
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), strings.TrimSpace(strings.ToLower(req.Email)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			logging.LogSecurityEvent(r.Context(), logging.SecurityEventBadCredentials, "login with unknown email")
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "login failed", err)
		return
	}

	if !crypto.CheckPassword(req.Password, user.PasswordHash) {
		logging.LogSecurityEvent(r.Context(), logging.SecurityEventBadCredentials, "login with wrong password")
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	h.login(w, r, user)
}

// login issues a token and seeds the session activity record.
func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request, user *models.User) {
	role := services.RoleUser
	if user.IsAdmin {
		role = services.RoleAdmin
	}

	sessionID := uuid.NewString()
	token, err := h.auth.GenerateToken(user.ID, sessionID, role)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to issue token", err)
		return
	}

	h.tracker.Touch(sessionID, user.ID)

	writeJSON(w, http.StatusOK, models.LoginResponse{
		Token:     token,
		UserID:    user.ID,
		Name:      user.Name,
		IsAdmin:   user.IsAdmin,
		ExpiresIn: int64(h.cfg.SessionExpiry.Seconds()),
	})
}
