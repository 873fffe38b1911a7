package domain

import (
	"errors"
	"fmt"
)

// ErrUnknown is the reason of an Error status built without one.
var ErrUnknown = errors.New("unknown error")

// ErrActionFailed marks an action outcome as an expected business failure.
// Executors wrap it (fmt.Errorf("...: %w", domain.ErrActionFailed)) to make the
// Action node report Failure instead of Error.
var ErrActionFailed = errors.New("action failed")

// ErrBlackboardKeyMissing is returned when a FromBlackboard placeholder references an absent key.
var ErrBlackboardKeyMissing = errors.New("blackboard key missing")

// ErrAgentStopped is returned by agent operations after Stop.
var ErrAgentStopped = errors.New("agent stopped")

// ErrInvalidNode is returned when a tree or node configuration is rejected.
var ErrInvalidNode = errors.New("invalid node")

// ErrBlackboardNotFound is returned when a store has no blackboard for an ID.
var ErrBlackboardNotFound = errors.New("blackboard not found")

// NodeFault wraps a runtime fault (panic) recovered while ticking or halting a node.
type NodeFault struct {
	Kind  string // node kind
	Op    string // "tick" or "halt"
	Value any    // recovered value
}

func (f *NodeFault) Error() string {
	return fmt.Sprintf("%s %s fault: %v", f.Kind, f.Op, f.Value)
}

// Unwrap exposes the recovered value when it is itself an error.
func (f *NodeFault) Unwrap() error {
	if err, ok := f.Value.(error); ok {
		return err
	}
	return nil
}

// ActionFault attaches the identity of an Action node to a fault raised by the executor.
type ActionFault struct {
	Action string
	Err    error
}

func (f *ActionFault) Error() string {
	return fmt.Sprintf("action %q: %v", f.Action, f.Err)
}

func (f *ActionFault) Unwrap() error { return f.Err }
