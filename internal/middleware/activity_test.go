package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tudasmester/elira-backend/internal/services"
	"github.com/tudasmester/elira-backend/internal/session"
)

func doActivityRequest(tracker *session.Tracker, claims *services.Claims) *httptest.ResponseRecorder {
	handler := ActivityMiddleware(tracker)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/courses", nil)
	if claims != nil {
		req = req.WithContext(context.WithValue(req.Context(), ClaimsKey, claims))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestActivityMiddlewareTouchesLiveSession(t *testing.T) {
	tracker := session.NewTracker(session.DefaultThresholds)
	tracker.Touch("sess-1", "alice")

	claims := &services.Claims{UserID: "alice", SessionID: "sess-1", Role: services.RoleUser}
	rec := doActivityRequest(tracker, claims)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	st := tracker.Status("sess-1")
	if st.Remaining < session.DefaultThresholds.Expiry-time.Second {
		t.Errorf("Remaining = %v, want close to full expiry after touch", st.Remaining)
	}
}

func TestActivityMiddlewareRejectsUnknownSession(t *testing.T) {
	tracker := session.NewTracker(session.DefaultThresholds)

	claims := &services.Claims{UserID: "alice", SessionID: "never-seen", Role: services.RoleUser}
	rec := doActivityRequest(tracker, claims)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for unknown session", rec.Code)
	}
	if tracker.Count() != 0 {
		t.Errorf("Count() = %d, want 0 (rejected session must not be created)", tracker.Count())
	}
}

func TestActivityMiddlewareRejectsWithoutClaims(t *testing.T) {
	tracker := session.NewTracker(session.DefaultThresholds)

	rec := doActivityRequest(tracker, nil)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 without claims", rec.Code)
	}
}

func TestActivityMiddlewareEvictsExpiredSession(t *testing.T) {
	tracker := session.NewTracker(session.Thresholds{Expiry: time.Nanosecond, Warning: 0})
	tracker.Touch("sess-1", "alice")
	time.Sleep(time.Millisecond)

	claims := &services.Claims{UserID: "alice", SessionID: "sess-1", Role: services.RoleUser}
	rec := doActivityRequest(tracker, claims)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for expired session", rec.Code)
	}
	if tracker.Count() != 0 {
		t.Errorf("Count() = %d, want 0 after eviction", tracker.Count())
	}
}
