package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Node kinds understood by the compiler.
const (
	KindSequence      = "sequence"
	KindSelector      = "selector"
	KindInverter      = "inverter"
	KindSucceeder     = "succeeder"
	KindFailer        = "failer"
	KindRepeat        = "repeat"
	KindWait          = "wait"
	KindSetBlackboard = "set_blackboard"
	KindAction        = "action"
	KindConstant      = "constant"
)

// Format is the encoding of a definition file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath infers the format from a file extension. Unknown extensions map to YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Definition is the declarative form of a behavior tree.
type Definition struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Blackboard  map[string]any `json:"blackboard,omitempty" yaml:"blackboard,omitempty"`
	Inputs      Schema         `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Root        NodeSpec       `json:"root" yaml:"root"`
}

// NodeSpec describes one node. Which fields apply depends on Type:
//
//   - sequence, selector: Children
//   - inverter, succeeder, failer: Child
//   - repeat: Count, Child
//   - wait: Duration
//   - set_blackboard: Values
//   - action: Action, Params, Context, Effects
//   - constant: Status
type NodeSpec struct {
	Type     string         `json:"type" yaml:"type"`
	Name     string         `json:"name,omitempty" yaml:"name,omitempty"`
	Children []NodeSpec     `json:"children,omitempty" yaml:"children,omitempty"`
	Child    *NodeSpec      `json:"child,omitempty" yaml:"child,omitempty"`
	Count    int            `json:"count,omitempty" yaml:"count,omitempty"`
	Duration string         `json:"duration,omitempty" yaml:"duration,omitempty"`
	Values   map[string]any `json:"values,omitempty" yaml:"values,omitempty"`
	Action   string         `json:"action,omitempty" yaml:"action,omitempty"`
	Params   map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
	Context  map[string]any `json:"context,omitempty" yaml:"context,omitempty"`
	Effects  bool           `json:"effects,omitempty" yaml:"effects,omitempty"`
	Status   string         `json:"status,omitempty" yaml:"status,omitempty"`
}

// Nodes returns the children of the spec regardless of its shape.
func (n NodeSpec) Nodes() []NodeSpec {
	if n.Child != nil {
		return append([]NodeSpec{*n.Child}, n.Children...)
	}
	return n.Children
}

// Label is the display name of the node: its Name, or its type and subject.
func (n NodeSpec) Label() string {
	if n.Name != "" {
		return n.Name
	}
	switch n.Type {
	case KindAction:
		return "action: " + n.Action
	case KindWait:
		return "wait " + n.Duration
	case KindRepeat:
		return fmt.Sprintf("repeat x%d", n.Count)
	case KindConstant:
		return n.Status
	default:
		return n.Type
	}
}

// Load reads a definition from path. The format follows the file extension.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}
	def, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Parse decodes a definition. Unknown fields are rejected.
func Parse(data []byte, format Format) (*Definition, error) {
	var def Definition
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("parse json definition: %w", err)
		}
	case FormatYAML, "":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("parse yaml definition: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported definition format %q", format)
	}
	return &def, nil
}

// Encode renders the definition in the given format.
func (d *Definition) Encode(format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(d, "", "  ")
	case FormatYAML, "":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported definition format %q", format)
	}
}
