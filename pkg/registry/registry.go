// Package registry provides an in-process ActionExecutor backed by Go functions.
package registry

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/ports"
)

// ErrActionNotFound is returned when no function is registered under the requested name.
var ErrActionNotFound = errors.New("action not found")

// ActionFunc defines the signature for an action implementation.
// Returning an error that wraps domain.ErrActionFailed makes the Action node fail
// rather than error.
type ActionFunc func(ctx context.Context, req domain.ActionRequest) (map[string]any, error)

// Registry manages the available actions.
type Registry struct {
	mu       sync.RWMutex
	actions  map[string]ActionFunc
	fallback ports.ActionExecutor
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		actions: make(map[string]ActionFunc),
	}
}

// Register adds an action to the registry.
// If an action with the same name exists, it is overwritten.
func (r *Registry) Register(name string, fn ActionFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[name] = fn
}

// WithFallback delegates unknown action names to next.
func (r *Registry) WithFallback(next ports.ActionExecutor) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = next
	return r
}

// Has reports whether name is registered locally.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.actions[name]
	return ok
}

// Names returns the registered action names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Execute looks up an action by name and executes it.
func (r *Registry) Execute(ctx context.Context, req domain.ActionRequest) (map[string]any, error) {
	r.mu.RLock()
	fn, ok := r.actions[req.Name]
	fallback := r.fallback
	r.mu.RUnlock()

	if !ok {
		if fallback != nil {
			return fallback.Execute(ctx, req)
		}
		return nil, fmt.Errorf("%w: %s", ErrActionNotFound, req.Name)
	}
	return fn(ctx, req)
}
