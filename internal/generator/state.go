package generator

import (
	"sync"
	"time"

	"finitefield.org/logo-web/internal/logo"
)

// State is the per-session generator state.
type State struct {
	CooldownEnd *time.Time
	Loading     bool
	Results     []string
	Custom      logo.CustomColors
	Last        logo.FormValues
	Prompt      string
	touched     time.Time
}

// NewState returns the initial state.
func NewState() State {
	return State{Custom: logo.DefaultCustomColors()}
}

// Cooling reports whether a cooldown deadline is set and not yet reached.
func (s State) Cooling(now time.Time) bool {
	return s.CooldownEnd != nil && now.Before(*s.CooldownEnd)
}

// RemainingSeconds returns the whole seconds left on the cooldown, rounded up.
func (s State) RemainingSeconds(now time.Time) int {
	if !s.Cooling(now) {
		return 0
	}
	ms := s.CooldownEnd.Sub(now).Milliseconds()
	return int((ms + 999) / 1000)
}

func (s State) clone() State {
	out := s
	if s.CooldownEnd != nil {
		end := *s.CooldownEnd
		out.CooldownEnd = &end
	}
	out.Results = append([]string(nil), s.Results...)
	return out
}

// StateStore keeps State values by session id.
type StateStore struct {
	idle time.Duration

	mu     sync.Mutex
	states map[string]*State
}

// NewStateStore constructs a store that forgets sessions idle for longer than idle.
func NewStateStore(idle time.Duration) *StateStore {
	return &StateStore{idle: idle, states: make(map[string]*State)}
}

// update runs fn on the state for id, creating it when missing.
func (s *StateStore) update(id string, now time.Time, fn func(*State)) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	if !ok {
		fresh := NewState()
		st = &fresh
		s.states[id] = st
	}
	st.touched = now
	if fn != nil {
		fn(st)
	}
	return st.clone()
}

func (s *StateStore) get(id string) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	if !ok {
		return NewState(), false
	}
	return st.clone(), true
}

func (s *StateStore) delete(id string) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	if !ok {
		return State{}, false
	}
	delete(s.states, id)
	return *st, true
}

// expire drops idle, non-loading states and returns them.
func (s *StateStore) expire(now time.Time) []State {
	if s.idle <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []State
	for id, st := range s.states {
		if st.Loading || now.Sub(st.touched) < s.idle {
			continue
		}
		out = append(out, *st)
		delete(s.states, id)
	}
	return out
}
