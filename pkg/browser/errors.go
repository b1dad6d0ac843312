package browser

import (
	"errors"
	"fmt"
)

// Failure kinds returned by the indexer, executor and session manager.
var (
	ErrUnsupportedAction  = errors.New("unsupported action")
	ErrInvalidAction      = errors.New("invalid action")
	ErrTargetUnavailable  = errors.New("target unavailable")
	ErrNavigationFailure  = errors.New("navigation failure")
	ErrSessionUnavailable = errors.New("session unavailable")
)

// Causes wrapped by the failure kinds.
var (
	ErrTimeout           = errors.New("operation timeout")
	ErrNoSuchOption      = errors.New("no matching option")
	ErrNavigationBlocked = errors.New("navigation blocked by policy")
	ErrLabelRange        = errors.New("option label out of range")
)

// ActionError describes a failed action.
type ActionError struct {
	Action Action
	// Target is the description of the target element, if any
	Target string
	// Kind is one of the failure kind sentinels
	Kind error
	Err  error
}

func (e *ActionError) Error() string {
	subject := string(e.Action)
	if e.Target != "" {
		subject = fmt.Sprintf("%s on %q", e.Action, e.Target)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", subject, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", subject, e.Kind)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *ActionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newActionError(action Action, target *ElementDescriptor, kind, cause error) *ActionError {
	ae := &ActionError{Action: action, Kind: kind, Err: cause}
	if target != nil {
		ae.Target = target.Description
	}
	return ae
}

// Kind returns the failure kind of err, or nil if err is not one of ours.
func Kind(err error) error {
	for _, kind := range []error{
		ErrUnsupportedAction,
		ErrInvalidAction,
		ErrTargetUnavailable,
		ErrNavigationFailure,
		ErrSessionUnavailable,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// IsRetryable returns true if the step loop should re-index and try again.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTargetUnavailable) || errors.Is(err, ErrNavigationFailure)
}
