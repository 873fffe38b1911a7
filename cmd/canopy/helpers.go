package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/aretw0/canopy"
	"github.com/aretw0/canopy/pkg/adapters/file"
	"github.com/aretw0/canopy/pkg/adapters/memory"
	"github.com/aretw0/canopy/pkg/adapters/process"
	"github.com/aretw0/canopy/pkg/adapters/redis"
	"github.com/aretw0/canopy/pkg/persistence/middleware"
	"github.com/aretw0/canopy/pkg/ports"
	"github.com/aretw0/canopy/pkg/registry"
	"github.com/aretw0/canopy/pkg/schema"
	"github.com/aretw0/canopy/pkg/tree"
)

// buildExecutor returns the builtin actions backed by the processes declared in
// tools.file. Process working directories default to the definition's directory.
func (a *app) buildExecutor(defPath string) (*registry.Registry, error) {
	reg := registry.NewRegistry()
	registry.RegisterBuiltins(reg, a.logger)

	if a.cfg.Tools.File == "" && !a.cfg.Tools.AllowInline {
		return reg, nil
	}
	opts := []process.RunnerOption{
		process.WithInlineExecution(a.cfg.Tools.AllowInline),
		process.WithBaseDir(filepath.Dir(defPath)),
	}
	if a.cfg.Tools.File != "" {
		tools, err := process.LoadTools(a.cfg.Tools.File)
		if err != nil {
			return nil, err
		}
		a.logger.Debug("process tools loaded", "file", a.cfg.Tools.File, "count", len(tools))
		opts = append(opts, process.WithRegistry(tools))
	}
	return reg.WithFallback(process.NewRunner(opts...)), nil
}

// openStore returns the configured blackboard store, or nil for store.kind none.
// Masking and encryption wrap the backend when configured. The returned close
// function is never nil.
func (a *app) openStore(ctx context.Context) (ports.BlackboardStore, func() error, error) {
	noop := func() error { return nil }
	var (
		store     ports.BlackboardStore
		closeFunc = noop
	)
	switch a.cfg.Store.Kind {
	case "memory":
		store = memory.NewStore()
	case "file":
		store = file.New(a.cfg.Store.Dir)
	case "redis":
		st := redis.New(a.cfg.Store.RedisAddr, a.cfg.Store.RedisPassword, a.cfg.Store.RedisDB,
			redis.WithPrefix(a.cfg.Store.Prefix),
			redis.WithTTL(a.cfg.Store.TTL),
		)
		if err := st.Ping(ctx); err != nil {
			_ = st.Close()
			return nil, noop, fmt.Errorf("redis %s: %w", a.cfg.Store.RedisAddr, err)
		}
		store, closeFunc = st, st.Close
	default:
		return nil, noop, nil
	}

	var mws []middleware.Middleware
	if len(a.cfg.Store.MaskKeys) > 0 {
		mw, err := middleware.NewPIIMiddleware(a.cfg.Store.MaskKeys)
		if err != nil {
			_ = closeFunc()
			return nil, noop, err
		}
		mws = append(mws, mw)
	}
	if a.cfg.Store.EncryptionKey != "" {
		key, err := middleware.ParseKey(a.cfg.Store.EncryptionKey)
		if err != nil {
			_ = closeFunc()
			return nil, noop, fmt.Errorf("store.encryption_key: %w", err)
		}
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			_ = closeFunc()
			return nil, noop, err
		}
		mws = append(mws, mw)
	}
	a.logger.Debug("blackboard store", "kind", a.cfg.Store.Kind, "masked", len(a.cfg.Store.MaskKeys) > 0,
		"encrypted", a.cfg.Store.EncryptionKey != "")
	return middleware.Chain(store, mws...), closeFunc, nil
}

// loadTree reads and compiles the definition at path.
func (a *app) loadTree(path string, exec ports.ActionExecutor, opts ...canopy.Option) (*schema.Definition, tree.Tree, error) {
	def, err := schema.Load(path)
	if err != nil {
		return nil, tree.Tree{}, err
	}
	opts = append([]canopy.Option{canopy.WithLogger(a.logger)}, opts...)
	if exec != nil {
		opts = append(opts, canopy.WithExecutor(exec))
	}
	t, err := canopy.New(def, opts...)
	if err != nil {
		return nil, tree.Tree{}, err
	}
	return def, t, nil
}
