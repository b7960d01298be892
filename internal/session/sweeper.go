package session

import (
	"log/slog"
	"time"
)

// Sweeper periodically evicts expired sessions from a Tracker.
type Sweeper struct {
	tracker  *Tracker
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// NewSweeper creates a Sweeper; call Start to begin sweeping.
func NewSweeper(tracker *Tracker, interval time.Duration) *Sweeper {
	return &Sweeper{
		tracker:  tracker,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop in a background goroutine.
func (s *Sweeper) Start() {
	go s.run()
}

// Stop terminates the sweep loop and waits for it to exit.
func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Sweeper) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.tracker.EvictExpired(); n > 0 {
				slog.Debug("evicted expired sessions", slog.Int("count", n))
			}
		case <-s.stop:
			return
		}
	}
}
