// Package session tracks per-session activity to enforce inactivity timeouts.
//
// Liveness is computed lazily on read against two thresholds rather than with
// one timer per session: a session is Active while elapsed inactivity is below
// the warning mark, Warning between the warning mark and expiry, and Expired
// past expiry. A periodic sweep removes expired records.
package session

import (
	"sync"
	"time"
)

// Thresholds is the named configuration pair for session liveness.
// A session expires after Expiry of inactivity; the warning window opens
// Warning before expiry.
type Thresholds struct {
	Expiry  time.Duration
	Warning time.Duration
}

// DefaultThresholds matches the production policy: 30 minutes to expiry,
// warning during the final 5 minutes.
var DefaultThresholds = Thresholds{
	Expiry:  30 * time.Minute,
	Warning: 5 * time.Minute,
}

// record holds activity state for one login session.
type record struct {
	userID        string
	lastActivity  time.Time
	warningIssued bool
}

// Status is the result of a liveness query.
type Status struct {
	Remaining    time.Duration
	LastActivity time.Time
	InWarning    bool
}

// Tracker is an in-memory table of session activity timestamps.
// All methods are safe for concurrent use.
type Tracker struct {
	mu         sync.Mutex
	sessions   map[string]*record
	thresholds Thresholds
	now        func() time.Time
}

// NewTracker creates a Tracker with the given thresholds.
func NewTracker(thresholds Thresholds) *Tracker {
	return &Tracker{
		sessions:   make(map[string]*record),
		thresholds: thresholds,
		now:        time.Now,
	}
}

// Touch records activity for a session, creating the record on first sight.
// Advancing lastActivity moves the session out of the warning window, so the
// one-shot warning latch is cleared. Never fails.
func (t *Tracker) Touch(sessionID, userID string) {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.sessions[sessionID]
	if !ok {
		t.sessions[sessionID] = &record{userID: userID, lastActivity: now}
		return
	}
	rec.lastActivity = now
	rec.warningIssued = false
	if userID != "" {
		rec.userID = userID
	}
}

// Status reports remaining time and whether the session has just crossed into
// the warning window. The warning is one-shot: the first read inside the
// window reports InWarning true and latches; later reads report false until
// a Touch resets the latch. An absent session reports zero remaining time.
func (t *Tracker) Status(sessionID string) Status {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.sessions[sessionID]
	if !ok {
		return Status{}
	}

	elapsed := now.Sub(rec.lastActivity)
	remaining := t.thresholds.Expiry - elapsed
	if remaining < 0 {
		remaining = 0
	}

	st := Status{
		Remaining:    remaining,
		LastActivity: rec.lastActivity,
	}

	warnAt := t.thresholds.Expiry - t.thresholds.Warning
	if elapsed >= warnAt && elapsed < t.thresholds.Expiry && !rec.warningIssued {
		rec.warningIssued = true
		st.InWarning = true
	}

	return st
}

// IsExpired reports whether the session has been inactive past the expiry
// threshold. An absent record is treated as expired, forcing re-authentication.
func (t *Tracker) IsExpired(sessionID string) bool {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.sessions[sessionID]
	if !ok {
		return true
	}
	return now.Sub(rec.lastActivity) >= t.thresholds.Expiry
}

// Evict removes a session record. Idempotent.
func (t *Tracker) Evict(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, sessionID)
}

// EvictExpired scans the table once and removes every record past the expiry
// threshold. Returns the number of evicted sessions.
func (t *Tracker) EvictExpired() int {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	evicted := 0
	for id, rec := range t.sessions {
		if now.Sub(rec.lastActivity) >= t.thresholds.Expiry {
			delete(t.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Count returns the number of tracked sessions.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}
