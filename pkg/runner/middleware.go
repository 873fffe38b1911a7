package runner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/ports"
)

// ErrActionDenied is returned by a guarded executor when a policy blocks the action.
// It also wraps domain.ErrActionFailed, so the Action node fails instead of erroring.
var ErrActionDenied = errors.New("action denied")

// ActionInterceptor decides whether an action may run.
// It returns false to block it. A non-nil error is a system failure, not a denial.
type ActionInterceptor func(ctx context.Context, req domain.ActionRequest) (bool, error)

// Guard wraps next so every request passes interceptor first.
func Guard(next ports.ActionExecutor, interceptor ActionInterceptor) ports.ActionExecutor {
	if interceptor == nil {
		return next
	}
	return ports.ActionExecutorFunc(func(ctx context.Context, req domain.ActionRequest) (map[string]any, error) {
		allowed, err := interceptor(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("intercept %s: %w", req.Name, err)
		}
		if !allowed {
			return nil, fmt.Errorf("%w: %s: %w", ErrActionDenied, req.Name, domain.ErrActionFailed)
		}
		return next.Execute(ctx, req)
	})
}

// MultiInterceptor chains interceptors. The first denial or error wins.
func MultiInterceptor(interceptors ...ActionInterceptor) ActionInterceptor {
	return func(ctx context.Context, req domain.ActionRequest) (bool, error) {
		for _, interceptor := range interceptors {
			allowed, err := interceptor(ctx, req)
			if err != nil {
				return false, err
			}
			if !allowed {
				return false, nil
			}
		}
		return true, nil
	}
}

// ConfirmationMiddleware asks the user through handler before every action.
// Only "y" and "yes" allow it.
func ConfirmationMiddleware(handler Handler) ActionInterceptor {
	return func(ctx context.Context, req domain.ActionRequest) (bool, error) {
		msg := fmt.Sprintf("Action request: '%s' (tick %d)\nParams: %v\nAllow execution? [y/N]", req.Name, req.Sequence, req.Params)
		if err := handler.SystemOutput(ctx, msg); err != nil {
			return false, err
		}
		input, err := handler.Input(ctx)
		if err != nil {
			return false, err
		}
		input = strings.TrimSpace(strings.ToLower(input))
		return input == "y" || input == "yes", nil
	}
}

// AllowList permits only the named actions.
func AllowList(names ...string) ActionInterceptor {
	return func(_ context.Context, req domain.ActionRequest) (bool, error) {
		return slices.Contains(names, req.Name), nil
	}
}

// AutoApproveMiddleware allows everything.
func AutoApproveMiddleware() ActionInterceptor {
	return func(context.Context, domain.ActionRequest) (bool, error) {
		return true, nil
	}
}
