package policies

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded is returned when a view was closed or replaced while its
// data was loading. The loaded data is discarded.
var ErrSuperseded = errors.New("policies: view superseded")

// DetailLoader loads a policy detail.
type DetailLoader interface {
	Detail(ctx context.Context, userPolicyID string) (*Detail, error)
}

// ViewState is what the detail view shows.
type ViewState struct {
	PolicyID string
	Loading  bool
	Detail   *Detail
	Err      error
}

// Viewer holds the currently open detail view. Every Open and Close
// invalidates the previous view, and loads for an invalidated view never
// change the state.
type Viewer struct {
	loader DetailLoader

	mu    sync.Mutex
	token uint64
	state ViewState
}

func NewViewer(loader DetailLoader) *Viewer {
	return &Viewer{loader: loader}
}

// Open shows userPolicyID and loads it.
func (v *Viewer) Open(ctx context.Context, userPolicyID string) (ViewState, error) {
	v.mu.Lock()
	v.token++
	token := v.token
	v.state = ViewState{PolicyID: userPolicyID, Loading: true}
	v.mu.Unlock()

	d, err := v.loader.Detail(ctx, userPolicyID)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.token != token {
		return ViewState{}, ErrSuperseded
	}
	v.state = ViewState{PolicyID: userPolicyID, Detail: d, Err: err}
	return v.state, err
}

// Close leaves the view.
func (v *Viewer) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.token++
	v.state = ViewState{}
}

// Current returns the view state.
func (v *Viewer) Current() ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}
