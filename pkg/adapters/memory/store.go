package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/aretw0/canopy/pkg/domain"
)

// Store keeps blackboard checkpoints in a map. It is safe for concurrent use
// and is lost with the process.
type Store struct {
	mu          sync.RWMutex
	checkpoints map[string]domain.Blackboard
}

func NewStore() *Store {
	return &Store{checkpoints: make(map[string]domain.Blackboard)}
}

func (s *Store) Save(_ context.Context, agentID string, bb domain.Blackboard) error {
	// Snapshot detaches the stored top-level map from the caller.
	detached := domain.NewBlackboard(bb.Snapshot())

	s.mu.Lock()
	s.checkpoints[agentID] = detached
	s.mu.Unlock()
	return nil
}

func (s *Store) Load(_ context.Context, agentID string) (domain.Blackboard, error) {
	s.mu.RLock()
	bb, ok := s.checkpoints[agentID]
	s.mu.RUnlock()
	if !ok {
		return domain.Blackboard{}, domain.ErrBlackboardNotFound
	}
	return bb, nil
}

func (s *Store) Delete(_ context.Context, agentID string) error {
	s.mu.Lock()
	delete(s.checkpoints, agentID)
	s.mu.Unlock()
	return nil
}

// List returns the stored agent IDs in lexical order.
func (s *Store) List(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.checkpoints)), nil
}
