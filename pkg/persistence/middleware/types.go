// Package middleware wraps a ports.BlackboardStore to transform checkpoints on their
// way to and from the underlying store.
package middleware

import "github.com/aretw0/canopy/pkg/ports"

// Middleware allows wrapping a BlackboardStore to add behavior.
type Middleware func(ports.BlackboardStore) ports.BlackboardStore

// Chain applies mws so that the first one is the outermost.
func Chain(store ports.BlackboardStore, mws ...Middleware) ports.BlackboardStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
