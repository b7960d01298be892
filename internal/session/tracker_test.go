package session

import (
	"sync"
	"testing"
	"time"
)

// fakeClock lets tests drive the tracker's notion of time.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestTracker() (*Tracker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	tracker := NewTracker(DefaultThresholds)
	tracker.now = clock.Now
	return tracker, clock
}

func TestStatusBeforeWarningWindow(t *testing.T) {
	tracker, clock := newTestTracker()
	tracker.Touch("s1", "alice")

	clock.Advance(20 * time.Minute)

	st := tracker.Status("s1")
	if st.InWarning {
		t.Error("InWarning = true at 20min, want false")
	}
	if st.Remaining != 10*time.Minute {
		t.Errorf("Remaining = %v, want 10m", st.Remaining)
	}
}

func TestWarningIsOneShot(t *testing.T) {
	tracker, clock := newTestTracker()
	tracker.Touch("s1", "alice")

	clock.Advance(26 * time.Minute)

	if st := tracker.Status("s1"); !st.InWarning {
		t.Error("first Status() at 26min InWarning = false, want true")
	}
	if st := tracker.Status("s1"); st.InWarning {
		t.Error("second Status() at 26min InWarning = true, want false (latched)")
	}
}

func TestTouchResetsWarningLatch(t *testing.T) {
	tracker, clock := newTestTracker()
	tracker.Touch("s1", "alice")

	clock.Advance(26 * time.Minute)
	tracker.Status("s1") // latch the warning
	tracker.Touch("s1", "alice")

	// Back inside the active window; a fresh warning fires on the next crossing.
	if st := tracker.Status("s1"); st.InWarning {
		t.Error("InWarning = true right after Touch, want false")
	}
	clock.Advance(26 * time.Minute)
	if st := tracker.Status("s1"); !st.InWarning {
		t.Error("InWarning = false after re-entering window, want true")
	}
}

func TestIsExpired(t *testing.T) {
	tracker, clock := newTestTracker()
	tracker.Touch("s1", "alice")

	tests := []struct {
		name    string
		advance time.Duration
		want    bool
	}{
		{"active at 10min", 10 * time.Minute, false},
		{"warning at 26min", 16 * time.Minute, false},
		{"expired at 31min", 5 * time.Minute, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock.Advance(tt.advance)
			if got := tracker.IsExpired("s1"); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAbsentSessionIsExpired(t *testing.T) {
	tracker, _ := newTestTracker()

	if !tracker.IsExpired("never-seen") {
		t.Error("IsExpired() = false for absent session, want true")
	}

	st := tracker.Status("never-seen")
	if st.Remaining != 0 || st.InWarning {
		t.Errorf("Status() for absent session = %+v, want zero value", st)
	}
}

func TestEvictExpiredLeavesFreshSessions(t *testing.T) {
	tracker, clock := newTestTracker()

	tracker.Touch("stale1", "alice")
	tracker.Touch("stale2", "bob")
	clock.Advance(31 * time.Minute)
	tracker.Touch("fresh1", "carol")
	clock.Advance(5 * time.Minute)
	tracker.Touch("fresh2", "dave")

	if n := tracker.EvictExpired(); n != 2 {
		t.Errorf("EvictExpired() = %d, want 2", n)
	}

	if tracker.IsExpired("fresh1") || tracker.IsExpired("fresh2") {
		t.Error("fresh sessions reported expired after sweep")
	}
	if !tracker.IsExpired("stale1") || !tracker.IsExpired("stale2") {
		t.Error("stale sessions still present after sweep")
	}
	if tracker.Count() != 2 {
		t.Errorf("Count() = %d, want 2", tracker.Count())
	}
}

func TestExplicitEvictIsIdempotent(t *testing.T) {
	tracker, _ := newTestTracker()
	tracker.Touch("s1", "alice")

	tracker.Evict("s1")
	tracker.Evict("s1")

	if !tracker.IsExpired("s1") {
		t.Error("IsExpired() = false after Evict, want true")
	}
}

func TestConcurrentTouchAndSweep(t *testing.T) {
	tracker := NewTracker(DefaultThresholds)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n%26))
			tracker.Touch(id, "user")
			tracker.Status(id)
			tracker.EvictExpired()
		}(i)
	}
	wg.Wait()
}

func TestSweeperRuns(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	tracker := NewTracker(Thresholds{Expiry: time.Millisecond, Warning: 0})
	tracker.now = clock.Now

	tracker.Touch("s1", "alice")
	clock.Advance(time.Second)

	sweeper := NewSweeper(tracker, 5*time.Millisecond)
	sweeper.Start()
	defer sweeper.Stop()

	deadline := time.After(time.Second)
	for tracker.Count() != 0 {
		select {
		case <-deadline:
			t.Fatal("sweeper did not evict expired session")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
