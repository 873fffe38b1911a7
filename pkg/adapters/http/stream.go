package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/canopy/pkg/domain"
)

// StreamEvent is the JSON payload pushed to SSE subscribers.
type StreamEvent struct {
	Type      domain.EventType `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	NodeKind  string           `json:"node_kind,omitempty"`
	Sequence  uint64           `json:"sequence"`
	Duration  time.Duration    `json:"duration_ns,omitempty"`
	Status    string           `json:"status,omitempty"`
	Error     string           `json:"error,omitempty"`
}

func streamEvent(e domain.Event) StreamEvent {
	se := StreamEvent{
		Type:      e.Type,
		Timestamp: e.Timestamp,
		NodeKind:  e.NodeKind,
		Sequence:  e.Sequence,
		Duration:  e.Duration,
	}
	if e.Status.Kind() != 0 {
		se.Status = e.Status.Kind().String()
	}
	if e.Err != nil {
		se.Error = e.Err.Error()
	} else if e.Status.IsError() {
		se.Error = e.Status.Reason().Error()
	}
	return se
}

// StreamManager handles active SSE connections. It is also an EventSink:
// install it on agents and every event is broadcast to the subscribers of
// the event's agent.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- StreamEvent]struct{} // AgentID -> set of channels
	buffer      int
	logger      *slog.Logger
}

type StreamOption func(*StreamManager)

// WithStreamLogger receives a warning for every event dropped on a full subscriber.
func WithStreamLogger(logger *slog.Logger) StreamOption {
	return func(sm *StreamManager) { sm.logger = logger }
}

func NewStreamManager(opts ...StreamOption) *StreamManager {
	sm := &StreamManager{
		subscribers: make(map[string]map[chan<- StreamEvent]struct{}),
		buffer:      64,
	}
	for _, opt := range opts {
		opt(sm)
	}
	if sm.logger == nil {
		sm.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return sm
}

func (sm *StreamManager) Subscribe(agentID string) (<-chan StreamEvent, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan StreamEvent, sm.buffer)
	if _, ok := sm.subscribers[agentID]; !ok {
		sm.subscribers[agentID] = make(map[chan<- StreamEvent]struct{})
	}
	sm.subscribers[agentID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[agentID]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(sm.subscribers, agentID)
				}
			}
		})
	}
}

// Subscribers returns the number of open subscriptions for an agent.
func (sm *StreamManager) Subscribers(agentID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[agentID])
}

// Emit broadcasts an event without blocking the emitting agent.
func (sm *StreamManager) Emit(_ context.Context, e domain.Event) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	subs, ok := sm.subscribers[e.AgentID]
	if !ok {
		return
	}
	msg := streamEvent(e)
	for ch := range subs {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("subscriber buffer full, dropping event", "agent_id", e.AgentID, "type", e.Type)
		}
	}
}

// SubscribeEvents handles GET /agents/{id}/events (SSE).
// The optional "types" query parameter is a comma separated event type filter.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	if s.Streams == nil {
		http.Error(w, "event streaming disabled", http.StatusNotFound)
		return
	}
	a, ok := s.agent(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	var filter map[domain.EventType]bool
	if raw := r.URL.Query().Get("types"); raw != "" {
		filter = make(map[domain.EventType]bool)
		for t := range strings.SplitSeq(raw, ",") {
			filter[domain.EventType(strings.TrimSpace(t))] = true
		}
	}

	ch, cancel := s.Streams.Subscribe(a.ID())
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-a.Done():
			fmt.Fprintf(w, "event: closed\ndata: %s\n\n", a.ID())
			flusher.Flush()
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if filter != nil && !filter[msg.Type] {
				continue
			}
			data, err := json.Marshal(msg)
			if err != nil {
				s.logger.Error("SSE: event encode failed", "err", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
