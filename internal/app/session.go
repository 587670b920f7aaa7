package app

import (
	"sync"

	"github.com/ayusman/abhinaya/internal/config"
)

// Session is the shared, mutable run state: whether tracking is on and
// which tunables are in force. The tray, the HTTP API and the config
// watcher write to it; the pipeline reads a Snapshot once per tick.
type Session struct {
	mu       sync.RWMutex
	enabled  bool
	tracking config.Tracking
	revision uint64
	last     *Event

	listeners []func(Snapshot)
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	Enabled  bool            `json:"enabled"`
	Revision uint64          `json:"revision"`
	Tracking config.Tracking `json:"tracking"`
}

// NewSession creates a session with the given tunables.
func NewSession(tracking config.Tracking, enabled bool) *Session {
	return &Session{
		enabled:  enabled,
		tracking: tracking,
		revision: 1,
	}
}

// Enabled reports whether tracking is on.
func (s *Session) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// SetEnabled turns tracking on or off.
func (s *Session) SetEnabled(enabled bool) {
	s.mu.Lock()
	s.enabled = enabled
	s.mu.Unlock()
	s.notify()
}

// Toggle flips tracking and returns the new state.
func (s *Session) Toggle() bool {
	s.mu.Lock()
	s.enabled = !s.enabled
	enabled := s.enabled
	s.mu.Unlock()
	s.notify()
	return enabled
}

// OnChange registers fn to be called with the new state after every
// change to Enabled or Tracking, whoever made it.
func (s *Session) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Session) notify() {
	s.mu.RLock()
	listeners := s.listeners
	s.mu.RUnlock()

	snap := s.Snapshot()
	for _, fn := range listeners {
		fn(snap)
	}
}

// Tracking returns the tunables in force.
func (s *Session) Tracking() config.Tracking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tracking
}

// SetTracking validates and installs new tunables. The pipeline rebuilds
// its tracker, starting from fresh filter state, on the next tick.
func (s *Session) SetTracking(t config.Tracking) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.tracking = t
	s.revision++
	s.mu.Unlock()
	s.notify()
	return nil
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Enabled:  s.enabled,
		Revision: s.revision,
		Tracking: s.tracking,
	}
}

// Record stores the latest pipeline event.
func (s *Session) Record(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &ev
}

// Last returns the latest pipeline event, if any.
func (s *Session) Last() (Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return Event{}, false
	}
	return *s.last, true
}
