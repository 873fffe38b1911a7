package canopy

import (
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/canopy/internal/compiler"
	"github.com/aretw0/canopy/pkg/agent"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/ports"
	"github.com/aretw0/canopy/pkg/registry"
	"github.com/aretw0/canopy/pkg/schema"
	"github.com/aretw0/canopy/pkg/tree"
)

// Version is the release of this module.
//
//go:embed VERSION
var Version string

// Option defines a functional option for building trees.
type Option func(*builder)

type builder struct {
	executor ports.ActionExecutor
	effects  ports.EffectApplier
	sink     ports.EventSink
	logger   *slog.Logger
	clock    func() time.Time
}

// WithExecutor sets the runtime for action nodes.
// Without it, actions run against a registry holding the builtin actions.
func WithExecutor(exec ports.ActionExecutor) Option {
	return func(b *builder) {
		b.executor = exec
	}
}

// WithEffects enables action nodes declared with effects.
func WithEffects(effects ports.EffectApplier) Option {
	return func(b *builder) {
		b.effects = effects
	}
}

// WithSink receives node events for every tick of the tree.
func WithSink(sink ports.EventSink) Option {
	return func(b *builder) {
		b.sink = sink
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *builder) {
		b.logger = logger
	}
}

// WithClock overrides time.Now for wait nodes.
func WithClock(clock func() time.Time) Option {
	return func(b *builder) {
		b.clock = clock
	}
}

// Load reads a YAML or JSON definition from path and builds its tree.
func Load(path string, opts ...Option) (tree.Tree, error) {
	def, err := schema.Load(path)
	if err != nil {
		return tree.Tree{}, err
	}
	return New(def, opts...)
}

// New validates and compiles def into a tree.
func New(def *schema.Definition, opts ...Option) (tree.Tree, error) {
	b := &builder{}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if b.executor == nil {
		reg := registry.NewRegistry()
		registry.RegisterBuiltins(reg, b.logger)
		b.executor = reg
	}

	root, err := compiler.Compile(def, compiler.Options{
		Executor: b.executor,
		Effects:  b.effects,
		Clock:    b.clock,
	})
	if err != nil {
		return tree.Tree{}, err
	}

	treeOpts := []tree.Option{tree.WithLogger(b.logger.With("tree", def.Name))}
	if b.sink != nil {
		treeOpts = append(treeOpts, tree.WithSink(b.sink))
	}
	return tree.New(root, treeOpts...)
}

// Blackboard returns the starting blackboard of def with values layered on top,
// checked against the declared inputs.
func Blackboard(def *schema.Definition, values map[string]any) (domain.Blackboard, error) {
	if err := def.CheckBlackboard(values); err != nil {
		return domain.Blackboard{}, err
	}
	initial := maps.Clone(def.Blackboard)
	if initial == nil {
		initial = make(map[string]any, len(values))
	}
	maps.Copy(initial, values)
	return domain.NewBlackboard(initial), nil
}

// AgentOptions returns the agent options that start def with values: its
// blackboard and an ID derived from the definition name.
func AgentOptions(def *schema.Definition, values map[string]any) ([]agent.Option, error) {
	bb, err := Blackboard(def, values)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", def.Name, err)
	}
	return []agent.Option{
		agent.WithID(AgentID(def.Name)),
		agent.WithBlackboard(bb),
	}, nil
}

// AgentID turns a definition name or file path into a stable agent identifier.
func AgentID(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.ToLower(strings.TrimSpace(base))
	id := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ', r == '.':
			return '-'
		}
		return -1
	}, base)
	if id == "" {
		return "canopy"
	}
	return id
}
