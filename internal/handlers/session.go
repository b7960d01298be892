package handlers

import (
	"net/http"

	"github.com/tudasmester/elira-backend/internal/config"
	"github.com/tudasmester/elira-backend/internal/middleware"
	"github.com/tudasmester/elira-backend/internal/models"
	"github.com/tudasmester/elira-backend/internal/session"
)

// SessionHandler exposes the session lifecycle endpoints backed by the
// activity tracker.
type SessionHandler struct {
	cfg     *config.Config
	tracker *session.Tracker
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(cfg *config.Config, tracker *session.Tracker) *SessionHandler {
	return &SessionHandler{cfg: cfg, tracker: tracker}
}

// Extend handles POST /api/session/extend. The activity middleware has
// already touched the session; this endpoint exists so a client can extend
// explicitly from the warning banner and learn the new expiry.
func (h *SessionHandler) Extend(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	h.tracker.Touch(claims.SessionID, claims.UserID)

	writeJSON(w, http.StatusOK, models.SessionExtendResponse{
		Message:   "session extended",
		ExpiresIn: int64(h.cfg.SessionExpiry.Seconds()),
	})
}

// Status handles GET /api/session/status. NeedsWarning is one-shot per
// warning window; clients show the banner when it flips true.
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	st := h.tracker.Status(claims.SessionID)

	writeJSON(w, http.StatusOK, models.SessionStatusResponse{
		RemainingTime: int64(st.Remaining.Seconds()),
		LastActivity:  st.LastActivity,
		NeedsWarning:  st.InWarning,
	})
}

// Logout handles POST /api/session/logout.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	h.tracker.Evict(claims.SessionID)

	writeJSON(w, http.StatusOK, models.SessionLogoutResponse{Message: "logged out"})
}
