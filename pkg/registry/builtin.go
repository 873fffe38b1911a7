package registry

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/aretw0/canopy/pkg/domain"
)

// RegisterBuiltins adds the standard actions:
//
//	echo   returns its params as the result
//	fail   fails with the optional "reason" param
//	sleep  blocks for the "duration" param (e.g. "250ms"), honoring ctx
//	log    logs the "message" param at info level
func RegisterBuiltins(r *Registry, logger *slog.Logger) {
	r.Register("echo", func(_ context.Context, req domain.ActionRequest) (map[string]any, error) {
		return maps.Clone(req.Params), nil
	})

	r.Register("fail", func(_ context.Context, req domain.ActionRequest) (map[string]any, error) {
		if reason, ok := req.Params["reason"]; ok {
			return nil, fmt.Errorf("%v: %w", reason, domain.ErrActionFailed)
		}
		return nil, domain.ErrActionFailed
	})

	r.Register("sleep", func(ctx context.Context, req domain.ActionRequest) (map[string]any, error) {
		raw, _ := req.Params["duration"].(string)
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("sleep: invalid duration %q: %w", raw, err)
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return map[string]any{"slept": d.String()}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})

	r.Register("log", func(ctx context.Context, req domain.ActionRequest) (map[string]any, error) {
		if logger != nil {
			logger.InfoContext(ctx, fmt.Sprint(req.Params["message"]), "action", req.Name, "sequence", req.Sequence)
		}
		return nil, nil
	})
}
