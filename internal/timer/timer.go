// Package timer keeps named, replaceable delayed callbacks.
package timer

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type entry struct {
	timer clockwork.Timer
}

func (e *entry) stop() {
	if e != nil && e.timer != nil {
		e.timer.Stop()
	}
}

// Service schedules callbacks by name. At most one timer per name is armed;
// a callback only runs if its timer was not cancelled or replaced.
type Service struct {
	clock clockwork.Clock

	mu     sync.Mutex
	timers map[string]*entry
}

// New creates a Service on clock. A nil clock means the real clock.
func New(clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		clock:  clock,
		timers: make(map[string]*entry),
	}
}

// After arms name to run fn once d has passed, replacing any timer of the
// same name.
func (s *Service) After(name string, d time.Duration, fn func()) {
	e := &entry{}

	s.mu.Lock()
	old := s.timers[name]
	s.timers[name] = e
	s.mu.Unlock()
	old.stop()

	// The clock may fire a zero delay before AfterFunc returns, so the lock
	// is not held across the call.
	t := s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		if s.timers[name] != e {
			s.mu.Unlock()
			return
		}
		delete(s.timers, name)
		s.mu.Unlock()

		fn()
	})

	s.mu.Lock()
	e.timer = t
	current := s.timers[name] == e
	s.mu.Unlock()
	if !current {
		t.Stop()
	}
}

// Cancel disarms the named timers, or all of them when called without names.
func (s *Service) Cancel(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(names) == 0 {
		for name, e := range s.timers {
			e.stop()
			delete(s.timers, name)
		}
		return
	}
	for _, name := range names {
		s.timers[name].stop()
		delete(s.timers, name)
	}
}

// Active reports whether name is armed.
func (s *Service) Active(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[name]
	return ok
}

func (s *Service) armed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
