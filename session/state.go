package session

import (
	"sync"

	"go.pilab.hu/portal/domain"
)

// State is the application state shared by the protected views.
type State struct {
	Authenticated bool
	Profile       *domain.User
}

// Action is a typed state change. The set is closed.
type Action interface {
	isAction()
}

type (
	// SessionEstablished follows a successful login or refresh.
	SessionEstablished struct{}
	// SessionCleared follows logout, refresh failure or a 401.
	SessionCleared struct{}
	// SetProfile caches the signed-in user's profile.
	SetProfile struct{ User *domain.User }
	// ResetProfile drops the cached profile.
	ResetProfile struct{}
)

func (SessionEstablished) isAction() {}
func (SessionCleared) isAction()     {}
func (SetProfile) isAction()         {}
func (ResetProfile) isAction()       {}

// Reduce applies a to s. It has no side effects.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SessionEstablished:
		s.Authenticated = true
	case SessionCleared:
		s.Authenticated = false
	case SetProfile:
		if a.User != nil {
			u := *a.User
			s.Profile = &u
		}
	case ResetProfile:
		s.Profile = nil
	}
	return s
}

// Dispatcher owns a State and serializes changes through Reduce.
type Dispatcher struct {
	mu        sync.RWMutex
	state     State
	listeners []func(State)
}

// NewDispatcher creates a dispatcher holding the zero State.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Dispatch applies the actions in order and notifies listeners once.
func (d *Dispatcher) Dispatch(actions ...Action) State {
	d.mu.Lock()
	for _, a := range actions {
		d.state = Reduce(d.state, a)
	}
	s := d.state
	listeners := append([]func(State){}, d.listeners...)
	d.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
	return s
}

// Snapshot returns a copy of the current state.
func (d *Dispatcher) Snapshot() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// Subscribe registers fn to be called after every dispatch.
func (d *Dispatcher) Subscribe(fn func(State)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, fn)
}
