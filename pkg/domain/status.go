package domain

import (
	"fmt"
	"strings"
)

// StatusKind identifies the variant of a Status.
type StatusKind uint8

const (
	KindSuccess StatusKind = iota + 1
	KindFailure
	KindRunning
	KindError
)

func (k StatusKind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindFailure:
		return "failure"
	case KindRunning:
		return "running"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Status is the result of ticking a node.
// It is a closed sum type: only Error carries a payload (the reason).
// Status values are comparable, so `st == domain.Success` is a valid check.
type Status struct {
	kind   StatusKind
	reason error
}

var (
	Success = Status{kind: KindSuccess}
	Failure = Status{kind: KindFailure}
	Running = Status{kind: KindRunning}
)

// Error builds the Error variant. A nil reason is replaced by ErrUnknown.
func Error(reason error) Status {
	if reason == nil {
		reason = ErrUnknown
	}
	return Status{kind: KindError, reason: reason}
}

// FromBool maps true to Success and false to Failure.
func FromBool(ok bool) Status {
	if ok {
		return Success
	}
	return Failure
}

// FromResult maps a nil error to Success and anything else to Error(err).
func FromResult(err error) Status {
	if err == nil {
		return Success
	}
	return Error(err)
}

// ParseStatus converts a textual status ("success", "failure", "running") into a Status.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "success":
		return Success, nil
	case "failure":
		return Failure, nil
	case "running":
		return Running, nil
	default:
		return Status{}, fmt.Errorf("unknown status %q", s)
	}
}

func (s Status) Kind() StatusKind { return s.kind }

// Reason returns the error carried by the Error variant, nil otherwise.
func (s Status) Reason() error { return s.reason }

func (s Status) IsSuccess() bool { return s.kind == KindSuccess }
func (s Status) IsFailure() bool { return s.kind == KindFailure }
func (s Status) IsRunning() bool { return s.kind == KindRunning }
func (s Status) IsError() bool   { return s.kind == KindError }

// IsCompleted reports whether the status is terminal (Success, Failure or Error).
func (s Status) IsCompleted() bool {
	return s.kind == KindSuccess || s.kind == KindFailure || s.kind == KindError
}

// Invert swaps Success and Failure. Running and Error pass through unchanged.
func (s Status) Invert() Status {
	switch s.kind {
	case KindSuccess:
		return Failure
	case KindFailure:
		return Success
	default:
		return s
	}
}

func (s Status) String() string {
	if s.kind == KindError {
		return fmt.Sprintf("error(%v)", s.reason)
	}
	return s.kind.String()
}

// MarshalText renders the variant name. The error reason is not serialized.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.kind.String()), nil
}

// UnmarshalText parses a variant name. An "error" status decodes with ErrUnknown
// as its reason since reasons are not serialized.
func (s *Status) UnmarshalText(text []byte) error {
	if strings.EqualFold(strings.TrimSpace(string(text)), "error") {
		*s = Error(nil)
		return nil
	}
	st, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = st
	return nil
}
