package ports

import (
	"context"

	"github.com/aretw0/canopy/pkg/domain"
)

// BlackboardStore defines the interface for checkpointing an agent's blackboard.
// Only the blackboard is stored; tree run-state is never persisted.
type BlackboardStore interface {
	// Save persists the blackboard for a given agent ID.
	Save(ctx context.Context, id string, bb domain.Blackboard) error

	// Load retrieves the blackboard for a given agent ID.
	// Returns domain.ErrBlackboardNotFound if nothing was saved.
	Load(ctx context.Context, id string) (domain.Blackboard, error)

	// Delete removes the blackboard for a given agent ID.
	Delete(ctx context.Context, id string) error

	// List returns the IDs with a saved blackboard.
	List(ctx context.Context) ([]string, error)
}
