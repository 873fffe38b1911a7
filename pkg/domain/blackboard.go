package domain

import (
	"encoding/json"
	"maps"
	"slices"
)

// Blackboard is the shared key-value state visible to every node during a tick.
//
// It is immutable: Set, Merge and Delete return a new Blackboard and never touch
// the receiver, so two ticks holding different versions can never silently diverge.
// The zero value is an empty, ready to use blackboard.
//
// Values are copied shallowly. Callers storing maps or slices must not mutate them
// after handing them over.
type Blackboard struct {
	data map[string]any
}

// NewBlackboard creates a blackboard seeded with a copy of initial.
func NewBlackboard(initial map[string]any) Blackboard {
	if len(initial) == 0 {
		return Blackboard{}
	}
	return Blackboard{data: maps.Clone(initial)}
}

// Get retrieves a value and reports whether the key exists.
func (b Blackboard) Get(key string) (any, bool) {
	v, ok := b.data[key]
	return v, ok
}

// GetOr retrieves a value, falling back to def when the key is absent.
func (b Blackboard) GetOr(key string, def any) any {
	if v, ok := b.data[key]; ok {
		return v
	}
	return def
}

// Has returns true if the key exists in the blackboard.
func (b Blackboard) Has(key string) bool {
	_, ok := b.data[key]
	return ok
}

// Keys returns all keys, sorted.
func (b Blackboard) Keys() []string {
	return slices.Sorted(maps.Keys(b.data))
}

// Len returns the number of keys in the blackboard.
func (b Blackboard) Len() int {
	return len(b.data)
}

// Set returns a copy of the blackboard with key bound to value.
func (b Blackboard) Set(key string, value any) Blackboard {
	next := make(map[string]any, len(b.data)+1)
	maps.Copy(next, b.data)
	next[key] = value
	return Blackboard{data: next}
}

// Merge returns a copy of the blackboard with every entry of values applied on top.
func (b Blackboard) Merge(values map[string]any) Blackboard {
	if len(values) == 0 {
		return b
	}
	next := make(map[string]any, len(b.data)+len(values))
	maps.Copy(next, b.data)
	maps.Copy(next, values)
	return Blackboard{data: next}
}

// Delete returns a copy of the blackboard without key.
func (b Blackboard) Delete(key string) Blackboard {
	if !b.Has(key) {
		return b
	}
	next := maps.Clone(b.data)
	delete(next, key)
	return Blackboard{data: next}
}

// Snapshot returns a shallow copy of the underlying data.
// The returned map is never nil.
func (b Blackboard) Snapshot() map[string]any {
	if b.data == nil {
		return map[string]any{}
	}
	return maps.Clone(b.data)
}

func (b Blackboard) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Snapshot())
}

func (b *Blackboard) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*b = NewBlackboard(m)
	return nil
}
