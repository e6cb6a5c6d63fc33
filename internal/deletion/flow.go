// Package deletion gates destructive widget removal behind an explicit
// request and confirm step.
package deletion

import (
	"context"
	"errors"
	"sync"
)

// ErrNothingPending is returned by Confirm when no deletion was requested.
var ErrNothingPending = errors.New("no deletion pending confirmation")

// Remover performs the destructive removal once confirmed.
type Remover interface {
	Remove(ctx context.Context, id string) error
}

// Flow holds at most one deletion awaiting confirmation.
type Flow struct {
	mu      sync.Mutex
	remover Remover
	pending string
	open    bool
}

// NewFlow creates a closed Flow.
func NewFlow(remover Remover) *Flow {
	return &Flow{remover: remover}
}

// Request asks for confirmation to delete id, replacing any earlier target.
func (f *Flow) Request(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = id
	f.open = true
}

// Pending returns the widget id awaiting confirmation.
func (f *Flow) Pending() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending, f.open
}

// Cancel closes the gate without removing anything.
func (f *Flow) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = ""
	f.open = false
}

// Confirm closes the gate and removes the pending widget, returning its id
// and the outcome of the removal. Without a pending request it does nothing
// and returns ErrNothingPending.
func (f *Flow) Confirm(ctx context.Context) (string, error) {
	f.mu.Lock()
	id, open := f.pending, f.open
	f.pending = ""
	f.open = false
	f.mu.Unlock()

	if !open {
		return "", ErrNothingPending
	}
	return id, f.remover.Remove(ctx, id)
}
