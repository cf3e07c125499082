package internal

import (
	"errors"
	"fmt"
	"strings"
)

// Failure classifies why the pipeline could not produce a normal
// response. The classification decides which translation path runs.
type Failure int

const (
	// FailureUncaught covers everything without a more specific category,
	// including programming errors such as empty hook returns.
	FailureUncaught Failure = iota

	// FailureNotFound means no route pattern matched the request path.
	FailureNotFound

	// FailurePermissionDenied means the request was understood and
	// refused.
	FailurePermissionDenied

	// FailureMalformedBody means the request body could not be parsed.
	FailureMalformedBody

	// FailureSuspicious flags a potentially forged or tampered request.
	FailureSuspicious

	// FailureExit carries process-termination intent. It is never
	// translated into a response.
	FailureExit
)

// Sentinel failures views and hooks can return (optionally wrapped).
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrMalformedBody    = errors.New("malformed request body")
)

// NotFoundError is returned by a resolver when no pattern matches.
// Tried lists the patterns that were attempted, for diagnostics.
type NotFoundError struct {
	Path  string
	Tried []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no route matches %q", e.Path)
}

// SuspiciousError flags a request that looks forged or tampered with.
// Kind names the check that fired (e.g. "csrf", "host") and routes the
// event to the security log channel.
type SuspiciousError struct {
	Kind   string
	Reason string
}

func (e *SuspiciousError) Error() string {
	if e.Kind == "" {
		return e.Reason
	}
	return e.Kind + ": " + e.Reason
}

// ExitError requests orderly process termination. The pipeline must let
// it unwind through every state unmodified; no hook or translator may
// swallow it.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit requested (code %d)", e.Code)
}

// ProgrammingError marks a contract violation by a view or middleware:
// an empty return where a response was required. It is logged and
// translated as an uncaught failure, never silently repaired.
type ProgrammingError struct {
	Subject string // the offending view pattern or middleware type
	Msg     string
}

func (e *ProgrammingError) Error() string {
	return e.Subject + ": " + e.Msg
}

// PanicError wraps a panic recovered inside a view or hook so it can be
// classified and translated like any other failure.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it is an error, so translation
// reaches the original failure through errors.As and errors.Is.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Classify maps an error to its failure category. Wrapped errors are
// unwrapped; a recovered panic is classified by its panic value first.
func Classify(err error) Failure {
	var pe *PanicError
	if errors.As(err, &pe) {
		if inner, ok := pe.Value.(error); ok {
			if f := Classify(inner); f != FailureUncaught {
				return f
			}
		}
	}

	var (
		nf *NotFoundError
		se *SuspiciousError
		xe *ExitError
	)
	switch {
	case errors.As(err, &xe):
		return FailureExit
	case errors.As(err, &nf):
		return FailureNotFound
	case errors.As(err, &se):
		return FailureSuspicious
	case errors.Is(err, ErrPermissionDenied):
		return FailurePermissionDenied
	case errors.Is(err, ErrMalformedBody):
		return FailureMalformedBody
	default:
		return FailureUncaught
	}
}

// triedList formats attempted patterns for diagnostic output.
func triedList(patterns []string) string {
	if len(patterns) == 0 {
		return "(no patterns registered)"
	}
	return strings.Join(patterns, "\n")
}
