// Package bus broadcasts terminal-wide events. Session changes and sync
// conflicts are published here so every surface (HTTP clients polling,
// attached displays, other terminal processes) observes the same transition.
package bus

import (
	"context"
	"sync"
	"time"
)

const (
	// EventSessionChanged fires on login, operator switch, and logout.
	EventSessionChanged = "session-changed"
	// EventSyncConflict fires when a queued write is rejected or conflicts
	// during flush and needs operator attention.
	EventSyncConflict = "sync-conflict"
	// EventDeleteReverted fires when a conditional delete failed remote
	// re-validation and the record was restored locally.
	EventDeleteReverted = "delete-reverted"
)

// Event is the envelope carried on the bus.
type Event struct {
	Type       string    `json:"type"`
	OperatorID string    `json:"operatorId,omitempty"`
	Collection string    `json:"collection,omitempty"`
	RecordID   string    `json:"recordId,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	At         time.Time `json:"at"`
}

// Publisher is the write side of the bus. Publishing is best-effort: a bus
// failure never fails the operation that triggered the event.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Subscriber is the read side. Subscribe returns a channel closed when ctx
// is cancelled.
type Subscriber interface {
	Subscribe(ctx context.Context) <-chan Event
}

// Bus is a full pub/sub endpoint.
type Bus interface {
	Publisher
	Subscriber
}

// Memory is an in-process fanout bus. It backs tests and terminals running
// without Redis; slow subscribers drop events rather than block publishers.
type Memory struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewMemory() *Memory {
	return &Memory{subs: make(map[chan Event]struct{})}
}

func (m *Memory) Publish(_ context.Context, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for ch := range m.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (m *Memory) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, 16)
	m.mu.Lock()
	m.subs[ch] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subs, ch)
		m.mu.Unlock()
		close(ch)
	}()
	return ch
}
