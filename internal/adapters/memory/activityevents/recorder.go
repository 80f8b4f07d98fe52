package activityevents

import (
	"context"
	"sync"

	"github.com/fitness-tracker/fitness-platform/internal/ports/out/activityevents"
)

// Recorder keeps published events in memory so tests can assert on them.
// It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []activityevents.Event
	// Err, when set, is returned from Publish instead of recording.
	Err error
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Publish(ctx context.Context, ev activityevents.Event) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of the recorded events in publish order.
func (r *Recorder) Events() []activityevents.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]activityevents.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Discard drops every event. It is used when no broker is configured.
type Discard struct{}

func (Discard) Publish(context.Context, activityevents.Event) error { return nil }
