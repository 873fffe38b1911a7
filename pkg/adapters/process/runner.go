// Package process provides an ActionExecutor that runs allow-listed local processes.
package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/aretw0/canopy/pkg/domain"
)

// EnvPrefix prefixes the environment variables carrying action params.
const EnvPrefix = "CANOPY_ARG_"

// Inline execution keys read from the action context.
const (
	ContextExecCommand = "exec_command"
	ContextExecArgs    = "exec_args"
)

// DefaultGracePeriod is how long a cancelled process may take to exit after being interrupted.
const DefaultGracePeriod = 5 * time.Second

// ErrNotRegistered is returned for actions that are neither registered nor inline.
var ErrNotRegistered = errors.New("process action not registered")

// Runner executes local processes as actions.
// It follows a strict registry pattern (allow-listing): only registered actions run
// unless inline execution is explicitly enabled.
//
// Params are passed as CANOPY_ARG_<NAME> environment variables, never as flags.
// A zero exit status is Success; stdout holding a JSON object becomes the result,
// anything else is returned under "output". A non-zero exit is an expected failure
// (domain.ErrActionFailed). Failing to start the process, or cancellation, is an error.
type Runner struct {
	registry    map[string]RegisteredProcess
	allowInline bool
	baseDir     string
	grace       time.Duration
}

// RegisteredProcess defines an allowed command execution.
type RegisteredProcess struct {
	Command string
	Args    []string
	Env     map[string]string
	Timeout time.Duration
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithRegistry populates the allow-list from a loaded config.
func WithRegistry(tools map[string]ProcessConfig) RunnerOption {
	return func(r *Runner) {
		for name, tool := range tools {
			timeout, _ := tool.timeout()
			r.registry[name] = RegisteredProcess{
				Command: tool.Command,
				Args:    tool.Args,
				Env:     maps.Clone(tool.Environment),
				Timeout: timeout,
			}
		}
	}
}

// WithInlineExecution enables ad-hoc execution from the action context (dangerous).
func WithInlineExecution(allow bool) RunnerOption {
	return func(r *Runner) {
		r.allowInline = allow
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithGracePeriod sets how long to wait after interrupting a cancelled process before killing it.
func WithGracePeriod(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.grace = d
	}
}

// NewRunner creates a new process Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		registry: make(map[string]RegisteredProcess),
		grace:    DefaultGracePeriod,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the allow-list.
func (r *Runner) Register(name string, command string, args ...string) {
	r.registry[name] = RegisteredProcess{
		Command: command,
		Args:    args,
	}
}

// Has reports whether name is registered.
func (r *Runner) Has(name string) bool {
	_, ok := r.registry[name]
	return ok
}

// Execute implements ports.ActionExecutor.
func (r *Runner) Execute(ctx context.Context, req domain.ActionRequest) (map[string]any, error) {
	proc, ok := r.resolve(req)
	if !ok {
		return nil, fmt.Errorf("%w: %s (and inline execution not enabled/found)", ErrNotRegistered, req.Name)
	}

	if proc.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, proc.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, proc.Command, proc.Args...)
	cmd.Dir = r.baseDir
	cmd.Env = append(cmd.Environ(), environment(proc.Env, req.Params)...)
	if runtime.GOOS != "windows" {
		cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	}
	cmd.WaitDelay = r.grace

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("process %s: %w", req.Name, ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("process %s: %v: %s: %w",
				req.Name, err, strings.TrimSpace(stderr.String()), domain.ErrActionFailed)
		}
		return nil, fmt.Errorf("process %s: %w", req.Name, err)
	}

	return parseOutput(stdout.String()), nil
}

func (r *Runner) resolve(req domain.ActionRequest) (RegisteredProcess, bool) {
	if proc, ok := r.registry[req.Name]; ok {
		return proc, true
	}
	if !r.allowInline {
		return RegisteredProcess{}, false
	}
	command, _ := req.Context[ContextExecCommand].(string)
	if command == "" {
		return RegisteredProcess{}, false
	}
	proc := RegisteredProcess{Command: command}
	switch args := req.Context[ContextExecArgs].(type) {
	case string:
		proc.Args = strings.Fields(args)
	case []any:
		for _, a := range args {
			proc.Args = append(proc.Args, fmt.Sprint(a))
		}
	case []string:
		proc.Args = args
	}
	return proc, true
}

// environment renders static env and params as KEY=VALUE pairs.
// Primitives are formatted directly, complex values as JSON.
func environment(static map[string]string, params map[string]any) []string {
	env := make([]string, 0, len(static)+len(params))
	for k, v := range static {
		env = append(env, k+"="+v)
	}
	for k, v := range params {
		var val string
		switch v.(type) {
		case string, int, int64, float64, bool:
			val = fmt.Sprintf("%v", v)
		case nil:
			val = ""
		default:
			if inJSON, err := json.Marshal(v); err == nil {
				val = string(inJSON)
			} else {
				val = fmt.Sprintf("%v", v)
			}
		}
		env = append(env, fmt.Sprintf("%s%s=%s", EnvPrefix, strings.ToUpper(k), val))
	}
	return env
}

func parseOutput(output string) map[string]any {
	trimmed := strings.TrimSpace(output)
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		var obj map[string]any
		if err := json.Unmarshal([]byte(trimmed), &obj); err == nil {
			return obj
		}
	}
	if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
		var list []any
		if err := json.Unmarshal([]byte(trimmed), &list); err == nil {
			return map[string]any{"output": list}
		}
	}
	return map[string]any{"output": trimmed}
}
