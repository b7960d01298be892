package middleware

import (
	"net/http"

	"github.com/tudasmester/elira-backend/internal/logging"
	"github.com/tudasmester/elira-backend/internal/session"
)

// ActivityMiddleware enforces inactivity timeouts on authenticated requests.
// Must be used after AuthMiddleware. An expired (or unknown) session yields
// 401, forcing re-authentication; otherwise the session's activity timestamp
// is advanced.
func ActivityMiddleware(tracker *session.Tracker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r.Context())
			if claims == nil {
				http.Error(w, `{"error":"authentication required"}`, http.StatusUnauthorized)
				return
			}

			if tracker.IsExpired(claims.SessionID) {
				tracker.Evict(claims.SessionID)
				logging.LogSecurityEvent(r.Context(), logging.SecurityEventSessionExpired, "session expired due to inactivity")
				http.Error(w, `{"error":"session expired"}`, http.StatusUnauthorized)
				return
			}

			tracker.Touch(claims.SessionID, claims.UserID)
			next.ServeHTTP(w, r)
		})
	}
}
