package schema

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Type validates a single blackboard value.
type Type interface {
	// Name returns the type as written in a definition ("string", "[int]").
	Name() string
	// Validate checks if a value conforms to this type.
	Validate(value any) error
}

// Schema maps blackboard keys to their expected types.
// Example: {"target": String(), "retries": Int(), "tags": Slice(String())}
type Schema map[string]Type

type scalar struct {
	name  string
	check func(any) error
}

func (t scalar) Name() string { return t.name }

func (t scalar) Validate(value any) error { return t.check(value) }

func expect(name string, value any) error {
	return fmt.Errorf("expected %s, got %T", name, value)
}

// String accepts string values.
func String() Type {
	return scalar{name: "string", check: func(v any) error {
		if _, ok := v.(string); !ok {
			return expect("string", v)
		}
		return nil
	}}
}

// Int accepts integers, and whole floats since JSON numbers decode as float64.
func Int() Type {
	return scalar{name: "int", check: func(v any) error {
		switch n := v.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return nil
		case float64:
			if n == float64(int64(n)) {
				return nil
			}
			return fmt.Errorf("expected int, got float (not a whole number)")
		default:
			return expect("int", v)
		}
	}}
}

// Float accepts any numeric value.
func Float() Type {
	return scalar{name: "float", check: func(v any) error {
		switch v.(type) {
		case float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return nil
		default:
			return expect("float", v)
		}
	}}
}

// Bool accepts booleans.
func Bool() Type {
	return scalar{name: "bool", check: func(v any) error {
		if _, ok := v.(bool); !ok {
			return expect("bool", v)
		}
		return nil
	}}
}

// Duration accepts time.Duration values and strings understood by time.ParseDuration.
func Duration() Type {
	return scalar{name: "duration", check: func(v any) error {
		switch d := v.(type) {
		case time.Duration:
			return nil
		case string:
			if _, err := time.ParseDuration(d); err != nil {
				return fmt.Errorf("expected duration: %w", err)
			}
			return nil
		default:
			return expect("duration", v)
		}
	}}
}

// Any accepts every non-nil value. It only asserts presence.
func Any() Type {
	return scalar{name: "any", check: func(v any) error {
		if v == nil {
			return fmt.Errorf("expected a value, got nil")
		}
		return nil
	}}
}

// SliceType validates slices of a specific element type.
type SliceType struct {
	elem Type
}

func (t SliceType) Name() string {
	return "[" + t.elem.Name() + "]"
}

func (t SliceType) Validate(value any) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return expect("slice", value)
	}
	for i := range rv.Len() {
		if err := t.elem.Validate(rv.Index(i).Interface()); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

// Slice creates a slice type validator for elements of the given type.
func Slice(elem Type) Type {
	return SliceType{elem: elem}
}

// Custom creates a type with a user-defined validation function.
func Custom(name string, validate func(any) error) Type {
	return scalar{name: name, check: validate}
}

// ParseType converts a type name to a Type.
// Supports "string", "int", "float", "bool", "duration", "any" and slices thereof ("[string]").
func ParseType(name string) (Type, error) {
	name = strings.TrimSpace(name)
	if len(name) > 2 && name[0] == '[' && name[len(name)-1] == ']' {
		elem, err := ParseType(name[1 : len(name)-1])
		if err != nil {
			return nil, err
		}
		return Slice(elem), nil
	}

	switch name {
	case "string":
		return String(), nil
	case "int":
		return Int(), nil
	case "float":
		return Float(), nil
	case "bool":
		return Bool(), nil
	case "duration":
		return Duration(), nil
	case "any":
		return Any(), nil
	default:
		return nil, fmt.Errorf("unsupported type: %q", name)
	}
}

// ParseTypeMap converts a map of keys to type names into a Schema.
// Example: {"target": "string", "retries": "int"}
func ParseTypeMap(types map[string]string) (Schema, error) {
	result := make(Schema, len(types))
	for key, name := range types {
		t, err := ParseType(name)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", key, err)
		}
		result[key] = t
	}
	return result, nil
}

// TypeMap is the inverse of ParseTypeMap.
func (s Schema) TypeMap() map[string]string {
	if s == nil {
		return nil
	}
	out := make(map[string]string, len(s))
	for key, t := range s {
		out[key] = t.Name()
	}
	return out
}
