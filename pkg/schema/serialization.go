package schema

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// MarshalJSON serializes the schema as a map of keys to type names.
func (s Schema) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	for key, typ := range s {
		if typ == nil {
			return nil, fmt.Errorf("input %s: type is nil", key)
		}
	}
	return json.Marshal(s.TypeMap())
}

// UnmarshalJSON deserializes the schema from a map of keys to type names.
func (s *Schema) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = nil
		return nil
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return s.fromRaw(raw)
}

// MarshalYAML renders the schema as a map of keys to type names.
func (s Schema) MarshalYAML() (any, error) {
	return s.TypeMap(), nil
}

// UnmarshalYAML parses a map of keys to type names.
func (s *Schema) UnmarshalYAML(value *yaml.Node) error {
	var raw map[string]any
	if err := value.Decode(&raw); err != nil {
		return err
	}
	return s.fromRaw(raw)
}

func (s *Schema) fromRaw(raw map[string]any) error {
	types := make(map[string]string, len(raw))
	for key, value := range raw {
		name, ok := value.(string)
		if !ok {
			return fmt.Errorf("input %s: expected type name, got %T", key, value)
		}
		types[key] = name
	}
	parsed, err := ParseTypeMap(types)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
