package workspace

import (
	"errors"
	"sync"
)

// Tracker remembers live workspaces so they can be swept when the owner
// shuts down. It is a leak guard only: normal cleanup happens per request.
type Tracker struct {
	mu   sync.Mutex
	live map[*Workspace]struct{}
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{live: make(map[*Workspace]struct{})}
}

// Track registers ws.
func (t *Tracker) Track(ws *Workspace) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.live[ws] = struct{}{}
}

// Untrack forgets ws without destroying it.
func (t *Tracker) Untrack(ws *Workspace) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.live, ws)
}

// Len reports how many workspaces are tracked.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.live)
}

// DestroyAll destroys and forgets every tracked workspace.
func (t *Tracker) DestroyAll() error {
	t.mu.Lock()
	live := make([]*Workspace, 0, len(t.live))
	for ws := range t.live {
		live = append(live, ws)
	}
	clear(t.live)
	t.mu.Unlock()

	var errs []error
	for _, ws := range live {
		if err := ws.Destroy(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
