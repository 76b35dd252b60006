package sinks

import (
	"context"
	"sync"

	"trailstate/server/tsslog"
)

// Memory collects events for assertions in tests.
type Memory struct {
	mu     sync.Mutex
	events []tsslog.Event
}

// NewMemory constructs an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{events: make([]tsslog.Event, 0)}
}

// Write implements tsslog.Sink.
func (m *Memory) Write(event tsslog.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := event
	if event.Extra != nil {
		copied.Extra = make(map[string]any, len(event.Extra))
		for k, v := range event.Extra {
			copied.Extra[k] = v
		}
	}
	m.events = append(m.events, copied)
	return nil
}

// Close implements tsslog.Sink.
func (m *Memory) Close(context.Context) error { return nil }

// Events returns a snapshot of collected events.
func (m *Memory) Events() []tsslog.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]tsslog.Event, len(m.events))
	copy(out, m.events)
	return out
}

// EventsByCategory returns a snapshot of only the collected events matching
// cat, so a test asserting on the coordinator's rewind/invalidate telemetry
// doesn't have to filter CategoryCoordinator/CategoryMirror noise itself.
func (m *Memory) EventsByCategory(cat tsslog.Category) []tsslog.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]tsslog.Event, 0, len(m.events))
	for _, e := range m.events {
		if e.Category == cat {
			out = append(out, e)
		}
	}
	return out
}
