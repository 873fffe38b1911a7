// Package compiler turns declarative tree definitions into executable nodes.
package compiler

import (
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/node"
	"github.com/aretw0/canopy/pkg/ports"
	"github.com/aretw0/canopy/pkg/schema"
	"github.com/mitchellh/mapstructure"
)

var (
	// ErrNoExecutor is returned when a definition has action nodes but no executor was given.
	ErrNoExecutor = errors.New("action node requires an executor")

	// ErrNoEffects is returned when an action asks for effects but no applier was given.
	ErrNoEffects = errors.New("action node requires an effect applier")
)

// Options carries the collaborators compiled nodes are wired to.
type Options struct {
	Executor ports.ActionExecutor
	Effects  ports.EffectApplier

	// Clock overrides time.Now for wait nodes.
	Clock func() time.Time
}

// Compile validates def and builds its root node.
func Compile(def *schema.Definition, opts Options) (node.Node, error) {
	if def == nil {
		return nil, fmt.Errorf("compile: nil definition")
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	root, err := compileNode("root", def.Root, opts)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", def.Name, err)
	}
	return root, nil
}

// CompileNode builds a single spec and its subtree without definition-level checks.
func CompileNode(spec schema.NodeSpec, opts Options) (node.Node, error) {
	return compileNode("root", spec, opts)
}

func compileNode(path string, spec schema.NodeSpec, opts Options) (node.Node, error) {
	children := make([]node.Node, 0, len(spec.Children))
	for i, c := range spec.Children {
		n, err := compileNode(fmt.Sprintf("%s.children[%d]", path, i), c, opts)
		if err != nil {
			return nil, err
		}
		children = append(children, n)
	}
	var child node.Node
	if spec.Child != nil {
		n, err := compileNode(path+".child", *spec.Child, opts)
		if err != nil {
			return nil, err
		}
		child = n
	}

	switch spec.Type {
	case schema.KindSequence:
		return node.NewSequence(children...), nil
	case schema.KindSelector:
		return node.NewSelector(children...), nil
	case schema.KindInverter:
		return node.NewInverter(child), nil
	case schema.KindSucceeder:
		return node.NewSucceeder(child), nil
	case schema.KindFailer:
		return node.NewFailer(child), nil
	case schema.KindRepeat:
		return node.NewRepeat(spec.Count, child), nil
	case schema.KindWait:
		d, err := time.ParseDuration(spec.Duration)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return node.NewWait(d, node.WithClock(opts.Clock)), nil
	case schema.KindSetBlackboard:
		return node.NewSetBlackboard(spec.Values), nil
	case schema.KindConstant:
		st, err := domain.ParseStatus(spec.Status)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return node.NewConstant(st), nil
	case schema.KindAction:
		return compileAction(path, spec, opts)
	default:
		return nil, fmt.Errorf("%s: %w: unknown node type %q", path, domain.ErrInvalidNode, spec.Type)
	}
}

func compileAction(path string, spec schema.NodeSpec, opts Options) (node.Node, error) {
	if opts.Executor == nil {
		return nil, fmt.Errorf("%s: %w (%s)", path, ErrNoExecutor, spec.Action)
	}
	params, err := placeholders(spec.Params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	actionOpts := []node.ActionOption{
		node.WithParams(params),
		node.WithActionContext(spec.Context),
	}
	if spec.Effects {
		if opts.Effects == nil {
			return nil, fmt.Errorf("%s: %w (%s)", path, ErrNoEffects, spec.Action)
		}
		actionOpts = append(actionOpts, node.WithEffects(opts.Effects))
	}
	return node.NewAction(spec.Action, opts.Executor, actionOpts...), nil
}

// placeholders converts {from_blackboard: key} maps, at any depth, into domain.FromBlackboard.
func placeholders(params map[string]any) (map[string]any, error) {
	if params == nil {
		return nil, nil
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		converted, err := placeholder(v)
		if err != nil {
			return nil, fmt.Errorf("param %q: %w", k, err)
		}
		out[k] = converted
	}
	return out, nil
}

func placeholder(v any) (any, error) {
	switch val := v.(type) {
	case map[string]any:
		if _, ok := val["from_blackboard"]; ok {
			var fb domain.FromBlackboard
			if err := decodeStrict(val, &fb); err != nil {
				return nil, err
			}
			return fb, nil
		}
		return placeholders(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			converted, err := placeholder(item)
			if err != nil {
				return nil, err
			}
			out[i] = converted
		}
		return out, nil
	default:
		return v, nil
	}
}

func decodeStrict(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
