package domain

import (
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTickStart      EventType = "tick_start"
	EventTickStop       EventType = "tick_stop"
	EventTickException  EventType = "tick_exception"
	EventHaltStart      EventType = "halt_start"
	EventHaltStop       EventType = "halt_stop"
	EventHaltException  EventType = "halt_exception"
	EventAgentTickStart EventType = "agent_tick_start"
	EventAgentTickStop  EventType = "agent_tick_stop"
)

// Event is a telemetry record emitted by the node execution wrapper and the agent.
type Event struct {
	Type      EventType     `json:"type"`
	Timestamp time.Time     `json:"timestamp"`
	NodeKind  string        `json:"node_kind,omitempty"`
	AgentID   string        `json:"agent_id,omitempty"`
	Sequence  uint64        `json:"sequence"`
	Duration  time.Duration `json:"duration,omitempty"`
	Status    Status        `json:"status,omitzero"`
	Err       error         `json:"-"`
}

// IsException reports whether the event records a recovered fault.
func (e Event) IsException() bool {
	return e.Type == EventTickException || e.Type == EventHaltException
}
