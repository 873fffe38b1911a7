package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidDefinition is wrapped by every error returned from Definition.Validate.
	ErrInvalidDefinition = errors.New("invalid tree definition")

	// ErrInputMismatch is wrapped by CheckBlackboard failures.
	ErrInputMismatch = errors.New("blackboard does not match tree inputs")
)

// Issue is one problem found in a definition or a blackboard.
// Path is a dotted node path ("root.children[1]") or a blackboard key.
type Issue struct {
	Path   string
	Reason string
	Value  any
}

func (i *Issue) Error() string {
	if i.Value == nil {
		return i.Path + ": " + i.Reason
	}
	return fmt.Sprintf("%s: %s (got %T)", i.Path, i.Reason, i.Value)
}

// Issues collects every problem of one validation pass, in report order.
type Issues []error

func (is Issues) Error() string {
	if len(is) == 1 {
		return is[0].Error()
	}
	lines := make([]string, 0, len(is)+1)
	lines = append(lines, fmt.Sprintf("%d problems:", len(is)))
	for i, err := range is {
		lines = append(lines, fmt.Sprintf("  %d. %v", i+1, err))
	}
	return strings.Join(lines, "\n")
}

func (is Issues) Unwrap() []error { return is }

// ValidationErrors lists the individual problems behind err, or nil when err
// did not come from a validation pass.
func ValidationErrors(err error) []error {
	var is Issues
	if errors.As(err, &is) {
		return is
	}
	return nil
}
