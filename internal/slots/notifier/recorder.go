package notifier

import (
	"context"
	"sync"

	"testdrive/pkg/model"
)

// Recorder keeps every change it is given. Used by tests.
type Recorder struct {
	mu      sync.Mutex
	changes []model.SlotChange
}

func (r *Recorder) Notify(_ context.Context, change model.SlotChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, change)
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Changes() []model.SlotChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.SlotChange, len(r.changes))
	copy(out, r.changes)
	return out
}

func (r *Recorder) Actions() []model.ChangeAction {
	changes := r.Changes()
	actions := make([]model.ChangeAction, len(changes))
	for i, c := range changes {
		actions[i] = c.Action
	}
	return actions
}
