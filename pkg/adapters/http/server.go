package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/canopy/pkg/agent"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/session"
	"github.com/aretw0/canopy/pkg/tree"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Template is the tree new agents are started from by POST /agents.
type Template struct {
	Tree    tree.Tree
	Options []agent.Option

	// Blackboard, when set, builds the starting blackboard from the request values.
	// Its errors are reported as 422.
	Blackboard func(values map[string]any) (domain.Blackboard, error)
}

// Server exposes a session.Manager over HTTP.
type Server struct {
	Manager  *session.Manager
	Streams  *StreamManager
	Template *Template

	logger   *slog.Logger
	gatherer prometheus.Gatherer
	base     context.Context
}

// Option configures the handler.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGatherer exposes the gatherer on GET /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithStreams enables GET /agents/{id}/events. The same StreamManager must be
// installed as a sink on the agents for events to flow.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithTemplate enables POST /agents. Agents started this way live until they are
// deleted or ctx is cancelled.
func WithTemplate(ctx context.Context, t tree.Tree, opts ...agent.Option) Option {
	return func(s *Server) {
		s.base = ctx
		s.Template = &Template{Tree: t, Options: opts}
	}
}

// NewHandler creates the HTTP handler for the agents held by manager.
func NewHandler(manager *session.Manager, opts ...Option) http.Handler {
	s := &Server{
		Manager: manager,
		logger:  slog.New(slog.DiscardHandler),
		base:    context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/healthz", s.GetHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/agents", func(r chi.Router) {
		r.Get("/", s.ListAgents)
		r.Post("/", s.StartAgent)
		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", s.StopAgent)
			r.Post("/tick", s.Tick)
			r.Post("/halt", s.Halt)
			r.Post("/mode", s.SetMode)
			r.Get("/stats", s.Stats)
			r.Get("/events", s.SubscribeEvents)
			r.Get("/blackboard", s.GetBlackboard)
			r.Get("/blackboard/{key}", s.GetKey)
			r.Put("/blackboard/{key}", s.PutKey)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// StatusResponse is the body returned by POST /agents/{id}/tick.
type StatusResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func statusResponse(st domain.Status) StatusResponse {
	resp := StatusResponse{Status: st.Kind().String()}
	if st.IsError() {
		resp.Reason = st.Reason().Error()
	}
	return resp
}

// GetHealth handles GET /healthz.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "agents": s.Manager.Len()})
}

// ListAgents handles GET /agents.
func (s *Server) ListAgents(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{"agents": s.Manager.List()})
}

type startRequest struct {
	ID         string         `json:"id"`
	Mode       *agent.Mode    `json:"mode,omitempty"`
	Blackboard map[string]any `json:"blackboard,omitempty"`
}

// StartAgent handles POST /agents.
func (s *Server) StartAgent(w http.ResponseWriter, r *http.Request) {
	if s.Template == nil {
		http.Error(w, "agent creation disabled", http.StatusMethodNotAllowed)
		return
	}
	var body startRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("StartAgent: invalid request body", "err", err)
		return
	}
	if strings.TrimSpace(body.ID) == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	opts := append([]agent.Option{}, s.Template.Options...)
	if body.Mode != nil {
		opts = append(opts, agent.WithMode(*body.Mode))
	}
	switch {
	case s.Template.Blackboard != nil:
		bb, err := s.Template.Blackboard(body.Blackboard)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		opts = append(opts, agent.WithBlackboard(bb))
	case body.Blackboard != nil:
		opts = append(opts, agent.WithBlackboard(domain.NewBlackboard(body.Blackboard)))
	}
	a, err := s.Manager.Start(s.base, body.ID, s.Template.Tree, opts...)
	if err != nil {
		s.fail(w, "StartAgent", err)
		return
	}
	stats, err := a.Stats(r.Context())
	if err != nil {
		s.fail(w, "StartAgent", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, stats)
}

// StopAgent handles DELETE /agents/{id}.
func (s *Server) StopAgent(w http.ResponseWriter, r *http.Request) {
	if err := s.Manager.Stop(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, "StopAgent", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Tick handles POST /agents/{id}/tick.
func (s *Server) Tick(w http.ResponseWriter, r *http.Request) {
	a, ok := s.agent(w, r)
	if !ok {
		return
	}
	st, err := a.Tick(r.Context())
	if err != nil && st.Kind() == 0 {
		s.fail(w, "Tick", err)
		return
	}
	if err != nil {
		// The tick ran; only the checkpoint failed.
		s.logger.Warn("Tick: checkpoint failed", "agent_id", a.ID(), "err", err)
	}
	s.writeJSON(w, http.StatusOK, statusResponse(st))
}

// Halt handles POST /agents/{id}/halt.
func (s *Server) Halt(w http.ResponseWriter, r *http.Request) {
	a, ok := s.agent(w, r)
	if !ok {
		return
	}
	if err := a.Halt(r.Context()); err != nil {
		s.fail(w, "Halt", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type modeRequest struct {
	Mode string `json:"mode"`
}

// SetMode handles POST /agents/{id}/mode.
func (s *Server) SetMode(w http.ResponseWriter, r *http.Request) {
	a, ok := s.agent(w, r)
	if !ok {
		return
	}
	var body modeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("SetMode: invalid request body", "err", err)
		return
	}
	mode, err := agent.ParseMode(body.Mode)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := a.SetMode(r.Context(), mode); err != nil {
		s.fail(w, "SetMode", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"mode": mode.String()})
}

// Stats handles GET /agents/{id}/stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	a, ok := s.agent(w, r)
	if !ok {
		return
	}
	stats, err := a.Stats(r.Context())
	if err != nil {
		s.fail(w, "Stats", err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

// GetBlackboard handles GET /agents/{id}/blackboard.
func (s *Server) GetBlackboard(w http.ResponseWriter, r *http.Request) {
	a, ok := s.agent(w, r)
	if !ok {
		return
	}
	bb, err := a.Blackboard(r.Context())
	if err != nil {
		s.fail(w, "GetBlackboard", err)
		return
	}
	s.writeJSON(w, http.StatusOK, bb)
}

// GetKey handles GET /agents/{id}/blackboard/{key}.
func (s *Server) GetKey(w http.ResponseWriter, r *http.Request) {
	a, ok := s.agent(w, r)
	if !ok {
		return
	}
	key := chi.URLParam(r, "key")
	v, found, err := a.Get(r.Context(), key)
	if err != nil {
		s.fail(w, "GetKey", err)
		return
	}
	if !found {
		http.Error(w, fmt.Sprintf("key %q not found", key), http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"key": key, "value": v})
}

type putRequest struct {
	Value any `json:"value"`
}

// PutKey handles PUT /agents/{id}/blackboard/{key}.
func (s *Server) PutKey(w http.ResponseWriter, r *http.Request) {
	a, ok := s.agent(w, r)
	if !ok {
		return
	}
	var body putRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("PutKey: invalid request body", "err", err)
		return
	}
	if err := a.Put(r.Context(), chi.URLParam(r, "key"), body.Value); err != nil {
		s.fail(w, "PutKey", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) agent(w http.ResponseWriter, r *http.Request) (*agent.Agent, bool) {
	a, err := s.Manager.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "lookup", err)
		return nil, false
	}
	return a, true
}

// fail maps engine errors to HTTP status codes.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrAgentNotFound):
		code = http.StatusNotFound
	case errors.Is(err, session.ErrAgentExists):
		code = http.StatusConflict
	case errors.Is(err, domain.ErrAgentStopped):
		code = http.StatusGone
	case errors.Is(err, domain.ErrInvalidNode):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = http.StatusServiceUnavailable
	}
	if code >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", "err", err)
	}
	http.Error(w, err.Error(), code)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
