package domain

import (
	"reflect"
)

// BlackboardDiff represents the changes between two blackboard versions.
// It is designed to be serialized to JSON for partial updates on the client.
type BlackboardDiff struct {
	// Changed contains only added or modified keys.
	Changed map[string]any `json:"changed,omitempty"`

	// Deleted lists keys present in the old version but absent from the new one.
	Deleted []string `json:"deleted,omitempty"`
}

// Diff calculates the difference between two blackboards.
// It returns nil when nothing changed.
func Diff(oldBB, newBB Blackboard) *BlackboardDiff {
	diff := &BlackboardDiff{}

	// Check for Added or Modified
	for _, k := range newBB.Keys() {
		newVal, _ := newBB.Get(k)
		oldVal, exists := oldBB.Get(k)
		if !exists || !reflect.DeepEqual(oldVal, newVal) {
			if diff.Changed == nil {
				diff.Changed = make(map[string]any)
			}
			diff.Changed[k] = newVal
		}
	}

	// Check for Deletions
	for _, k := range oldBB.Keys() {
		if !newBB.Has(k) {
			diff.Deleted = append(diff.Deleted, k)
		}
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *BlackboardDiff) IsEmpty() bool {
	return d == nil || (len(d.Changed) == 0 && len(d.Deleted) == 0)
}

// Keys returns the touched keys (changed first, then deleted).
func (d *BlackboardDiff) Keys() []string {
	if d == nil {
		return nil
	}
	keys := make([]string, 0, len(d.Changed)+len(d.Deleted))
	keys = append(keys, sortedKeys(d.Changed)...)
	return append(keys, d.Deleted...)
}

func sortedKeys(m map[string]any) []string {
	return NewBlackboard(m).Keys()
}
