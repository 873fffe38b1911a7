package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/aretw0/canopy/pkg/agent"
	"github.com/aretw0/canopy/pkg/tree"
)

var (
	// ErrAgentNotFound is returned when no agent runs under the requested ID.
	ErrAgentNotFound = errors.New("agent not found")
	// ErrAgentExists is returned when starting an ID that is already running.
	ErrAgentExists = errors.New("agent already exists")
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager keeps a set of running agents keyed by ID.
// It uses reference counting to garbage collect unused per-ID locks.
type Manager struct {
	mu     sync.RWMutex
	agents map[string]*agent.Agent

	locksMu sync.Mutex
	locks   map[string]*lockEntry

	defaults []agent.Option
	logger   *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithAgentOptions sets options applied to every agent before the per-call ones.
func WithAgentOptions(opts ...agent.Option) Option {
	return func(m *Manager) {
		m.defaults = append(m.defaults, opts...)
	}
}

// NewManager creates an empty Manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		agents: make(map[string]*agent.Agent),
		locks:  make(map[string]*lockEntry),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller must lock entry.mu, then call release(id) after unlocking.
func (m *Manager) acquire(id string) *lockEntry {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(id string) {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

// withLock executes fn while holding the lock for id.
func (m *Manager) withLock(id string, fn func() error) error {
	entry := m.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(id)
	}()
	return fn()
}

// Start launches an agent under id. The agent lives until stopped or ctx is cancelled.
func (m *Manager) Start(ctx context.Context, id string, t tree.Tree, opts ...agent.Option) (*agent.Agent, error) {
	if id == "" {
		return nil, fmt.Errorf("start agent: empty id")
	}
	var started *agent.Agent
	err := m.withLock(id, func() error {
		if _, err := m.Get(id); err == nil {
			return fmt.Errorf("%w: %s", ErrAgentExists, id)
		}

		all := slices.Concat(m.defaults, opts, []agent.Option{agent.WithID(id)})
		a, err := agent.Start(ctx, t, all...)
		if err != nil {
			return err
		}

		m.mu.Lock()
		m.agents[id] = a
		m.mu.Unlock()

		go m.forget(id, a)
		started = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("agent started", "agent_id", id)
	return started, nil
}

// forget drops the agent from the map once its goroutine exits.
func (m *Manager) forget(id string, a *agent.Agent) {
	<-a.Done()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.agents[id] == a {
		delete(m.agents, id)
	}
}

// Get returns the running agent with the given id.
func (m *Manager) Get(id string) (*agent.Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.agents[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	return a, nil
}

// List returns the IDs of running agents, sorted.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.agents))
}

// Len returns the number of running agents.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.agents)
}

// Stop stops the agent and removes it.
func (m *Manager) Stop(ctx context.Context, id string) error {
	return m.withLock(id, func() error {
		a, err := m.Get(id)
		if err != nil {
			return err
		}
		stopErr := a.Stop(ctx)

		m.mu.Lock()
		if m.agents[id] == a {
			delete(m.agents, id)
		}
		m.mu.Unlock()

		if stopErr != nil {
			m.logger.Warn("agent stopped with error", "agent_id", id, "err", stopErr)
			return fmt.Errorf("stop agent %s: %w", id, stopErr)
		}
		m.logger.Info("agent stopped", "agent_id", id)
		return nil
	})
}

// StopAll stops every running agent and reports all failures.
func (m *Manager) StopAll(ctx context.Context) error {
	var errs []error
	for _, id := range m.List() {
		if err := m.Stop(ctx, id); err != nil && !errors.Is(err, ErrAgentNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
