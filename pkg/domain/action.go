package domain

import (
	"fmt"
	"maps"
)

// EffectsKey is the result entry holding effect descriptors for Action nodes
// configured with an effect applier.
const EffectsKey = "effects"

// ActionRequest is what an Action node hands to the external action runtime.
type ActionRequest struct {
	Name     string         `json:"name"`
	Params   map[string]any `json:"params,omitempty"`
	Context  map[string]any `json:"context,omitempty"`
	Sequence uint64         `json:"sequence"`
}

// FromBlackboard is a parameter placeholder resolved at tick time against the
// current tick's blackboard.
type FromBlackboard struct {
	Key string `json:"from_blackboard" yaml:"from_blackboard" mapstructure:"from_blackboard"`
}

// ResolveParams returns a copy of params where every FromBlackboard placeholder,
// including those nested in maps and slices, is replaced by its blackboard value.
func ResolveParams(params map[string]any, bb Blackboard) (map[string]any, error) {
	if params == nil {
		return nil, nil
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		resolved, err := resolveValue(v, bb)
		if err != nil {
			return nil, fmt.Errorf("param %q: %w", k, err)
		}
		out[k] = resolved
	}
	return out, nil
}

func resolveValue(v any, bb Blackboard) (any, error) {
	switch val := v.(type) {
	case FromBlackboard:
		resolved, ok := bb.Get(val.Key)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrBlackboardKeyMissing, val.Key)
		}
		return resolved, nil
	case *FromBlackboard:
		if val == nil {
			return nil, fmt.Errorf("%w: nil placeholder", ErrBlackboardKeyMissing)
		}
		return resolveValue(*val, bb)
	case map[string]any:
		return ResolveParams(val, bb)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			resolved, err := resolveValue(item, bb)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return v, nil
	}
}

// CloneContext returns a shallow copy of an action's static context.
func CloneContext(ctx map[string]any) map[string]any {
	return maps.Clone(ctx)
}
