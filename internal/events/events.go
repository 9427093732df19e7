// Package events carries mutation notifications to realtime subscribers.
// Delivery is fire-and-forget: no acknowledgement, replay, or ordering across
// events, and every subscriber receives every event.
package events

import (
	"context"
	"sync"

	"trackerd/internal/metrics"
)

// Event names pushed after successful mutations.
const (
	IssueCreated    = "issue:created"
	IssueUpdated    = "issue:updated"
	IssueAssigned   = "issue:assigned"
	IssueUnassigned = "issue:unassigned"
	IssueDeleted    = "issue:deleted"

	ProjectCreated    = "project:created"
	ProjectDeleted    = "project:deleted"
	ProjectAssigned   = "project:assigned"
	ProjectUnassigned = "project:unassigned"
)

// Publisher is injected into the services at construction so tests can
// substitute a recording or no-op implementation.
type Publisher interface {
	Publish(ctx context.Context, event string, payload any)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, string, any) {}

// Multi fans an event out to several publishers in order.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event string, payload any) {
	for _, p := range m {
		p.Publish(ctx, event, payload)
	}
}

// Recorded is one captured event.
type Recorded struct {
	Event   string
	Payload any
}

// Recorder captures events for test assertions.
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
}

func (r *Recorder) Publish(_ context.Context, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Recorded{Event: event, Payload: payload})
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Recorded, len(r.events))
	copy(out, r.events)
	return out
}

// Names returns the captured event names in publish order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.events))
	for i, e := range r.events {
		names[i] = e.Event
	}
	return names
}

// counted wraps a publisher with the published-events metric.
type counted struct {
	next Publisher
}

// Counted instruments a publisher with prometheus counters.
func Counted(next Publisher) Publisher {
	return counted{next: next}
}

func (c counted) Publish(ctx context.Context, event string, payload any) {
	metrics.EventsPublished.WithLabelValues(event).Inc()
	c.next.Publish(ctx, event, payload)
}
