package dsl

import (
	"fmt"
	"maps"

	"github.com/aretw0/canopy/pkg/schema"
)

// Builder assembles a tree definition around a root node.
type Builder struct {
	def  schema.Definition
	errs []error
}

// Tree starts a definition called name.
func Tree(name string, root *NodeBuilder) *Builder {
	b := &Builder{def: schema.Definition{Name: name}}
	if root != nil {
		b.def.Root = root.Build()
	}
	return b
}

// Describe sets the description.
func (b *Builder) Describe(text string) *Builder {
	b.def.Description = text
	return b
}

// Blackboard seeds an initial blackboard value.
func (b *Builder) Blackboard(key string, value any) *Builder {
	if b.def.Blackboard == nil {
		b.def.Blackboard = make(map[string]any)
	}
	b.def.Blackboard[key] = value
	return b
}

// Input declares a typed blackboard key the tree expects ("string", "[int]", ...).
func (b *Builder) Input(key, typeName string) *Builder {
	t, err := schema.ParseType(typeName)
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("input %s: %w", key, err))
		return b
	}
	if b.def.Inputs == nil {
		b.def.Inputs = make(schema.Schema)
	}
	b.def.Inputs[key] = t
	return b
}

// Build validates and returns the definition.
func (b *Builder) Build() (*schema.Definition, error) {
	if len(b.errs) > 0 {
		return nil, b.errs[0]
	}
	def := b.def
	def.Blackboard = maps.Clone(b.def.Blackboard)
	def.Inputs = maps.Clone(b.def.Inputs)
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// YAML builds the definition and renders it as YAML.
func (b *Builder) YAML() ([]byte, error) {
	return b.encode(schema.FormatYAML)
}

// JSON builds the definition and renders it as indented JSON.
func (b *Builder) JSON() ([]byte, error) {
	return b.encode(schema.FormatJSON)
}

func (b *Builder) encode(format schema.Format) ([]byte, error) {
	def, err := b.Build()
	if err != nil {
		return nil, err
	}
	return def.Encode(format)
}
