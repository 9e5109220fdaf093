package events

import (
	"context"
	"sync"
)

// Publisher delivers ledger events to interested consumers.
type Publisher interface {
	Publish(ctx context.Context, event *LedgerEvent) error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *LedgerEvent) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []LedgerEvent
}

func (r *Recorder) Publish(_ context.Context, event *LedgerEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	return nil
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []LedgerEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]LedgerEvent(nil), r.events...)
}
