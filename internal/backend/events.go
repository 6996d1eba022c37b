package backend

import (
	"sync"

	"github.com/rs/zerolog"
)

// Event names published by the gate and the watchdog.
const (
	EventSpawnStart    = "spawn_start"
	EventSpawnReady    = "spawn_ready"
	EventSpawnTimeout  = "spawn_timeout"
	EventSpawnExit     = "spawn_exit"
	EventRestart       = "restart"
	EventRestartGiveUp = "restart_giveup"
	EventModeChange    = "mode_change"
)

// Event represents a backend lifecycle event.
// Minimal and stable: name + pid and optional fields via key/values.
type Event struct {
	Name   string
	PID    int
	Fields map[string]any
}

// EventPublisher receives backend events. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// MemoryPublisher stores events in-memory for tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryPublisher() *MemoryPublisher { return &MemoryPublisher{} }

func (p *MemoryPublisher) Publish(e Event) {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
}

func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// Names returns the event names in publish order.
func (p *MemoryPublisher) Names() []string {
	evs := p.Events()
	out := make([]string, len(evs))
	for i, e := range evs {
		out[i] = e.Name
	}
	return out
}

// LogPublisher writes each event as a structured log line.
type LogPublisher struct{ Log zerolog.Logger }

func (p LogPublisher) Publish(e Event) {
	ev := p.Log.Info().Str("event", e.Name)
	if e.PID > 0 {
		ev = ev.Int("pid", e.PID)
	}
	ev.Fields(e.Fields).Msg("backend event")
}

// MultiPublisher fans an event out to several publishers.
type MultiPublisher []EventPublisher

func (m MultiPublisher) Publish(e Event) {
	for _, p := range m {
		if p != nil {
			p.Publish(e)
		}
	}
}

func orNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}
