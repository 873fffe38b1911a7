package schema

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Validate checks if data conforms to the schema.
// Returns an error with all validation failures found, in key order.
func Validate(schema Schema, data map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	var errs []error
	for _, key := range slices.Sorted(maps.Keys(schema)) {
		value, exists := data[key]
		if !exists {
			errs = append(errs, &Issue{Path: key, Reason: "required"})
			continue
		}
		if err := schema[key].Validate(value); err != nil {
			errs = append(errs, &Issue{Path: key, Reason: err.Error(), Value: value})
		}
	}

	if len(errs) > 0 {
		return Issues(errs)
	}
	return nil
}

// CheckBlackboard validates the tree inputs against values layered over the
// definition's initial blackboard.
func (d *Definition) CheckBlackboard(values map[string]any) error {
	merged := maps.Clone(d.Blackboard)
	if merged == nil {
		merged = make(map[string]any, len(values))
	}
	maps.Copy(merged, values)
	if err := Validate(d.Inputs, merged); err != nil {
		return fmt.Errorf("%w: %w", ErrInputMismatch, err)
	}
	return nil
}

// Validate checks the whole definition and reports every problem found.
func (d *Definition) Validate() error {
	var errs []error
	if strings.TrimSpace(d.Name) == "" {
		errs = append(errs, &Issue{Path: "name", Reason: "required"})
	}
	for _, key := range slices.Sorted(maps.Keys(d.Inputs)) {
		if v, ok := d.Blackboard[key]; ok {
			if err := d.Inputs[key].Validate(v); err != nil {
				errs = append(errs, &Issue{Path: "blackboard." + key, Reason: err.Error(), Value: v})
			}
		}
	}
	errs = append(errs, validateNode("root", d.Root)...)

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidDefinition, Issues(errs))
	}
	return nil
}

func validateNode(path string, n NodeSpec) []error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, &Issue{Path: path, Reason: fmt.Sprintf(format, args...)})
	}

	switch n.Type {
	case KindSequence, KindSelector:
		if n.Child != nil {
			fail("%s takes children, not child", n.Type)
		}
	case KindInverter, KindSucceeder, KindFailer, KindRepeat:
		if n.Child == nil {
			fail("%s requires a child", n.Type)
		}
		if len(n.Children) > 0 {
			fail("%s takes exactly one child, got children", n.Type)
		}
		if n.Type == KindRepeat && n.Count < 1 {
			fail("repeat count must be >= 1, got %d", n.Count)
		}
	case KindWait:
		d, err := time.ParseDuration(n.Duration)
		switch {
		case err != nil:
			fail("invalid duration %q", n.Duration)
		case d < 0:
			fail("duration must not be negative")
		}
	case KindSetBlackboard:
		if len(n.Values) == 0 {
			fail("set_blackboard requires values")
		}
	case KindAction:
		if strings.TrimSpace(n.Action) == "" {
			fail("action requires an action name")
		}
		errs = append(errs, validatePlaceholders(path+".params", n.Params)...)
	case KindConstant:
		switch strings.ToLower(n.Status) {
		case "success", "failure", "running":
		default:
			fail("constant status must be success, failure or running, got %q", n.Status)
		}
	case "":
		fail("type is required")
	default:
		fail("unknown node type %q", n.Type)
	}

	if isLeaf(n.Type) && (n.Child != nil || len(n.Children) > 0) {
		fail("%s is a leaf and takes no children", n.Type)
	}

	if n.Child != nil {
		errs = append(errs, validateNode(path+".child", *n.Child)...)
	}
	for i, c := range n.Children {
		errs = append(errs, validateNode(fmt.Sprintf("%s.children[%d]", path, i), c)...)
	}
	return errs
}

func isLeaf(kind string) bool {
	switch kind {
	case KindWait, KindSetBlackboard, KindAction, KindConstant:
		return true
	}
	return false
}

// validatePlaceholders rejects {from_blackboard: ...} maps that are not well formed.
func validatePlaceholders(path string, v any) []error {
	var errs []error
	switch val := v.(type) {
	case map[string]any:
		if raw, ok := val["from_blackboard"]; ok {
			key, isString := raw.(string)
			if !isString || key == "" || len(val) != 1 {
				errs = append(errs, &Issue{Path: path, Reason: "from_blackboard placeholder needs a single non-empty key", Value: raw})
			}
			return errs
		}
		for _, k := range slices.Sorted(maps.Keys(val)) {
			errs = append(errs, validatePlaceholders(path+"."+k, val[k])...)
		}
	case []any:
		for i, item := range val {
			errs = append(errs, validatePlaceholders(fmt.Sprintf("%s[%d]", path, i), item)...)
		}
	}
	return errs
}
