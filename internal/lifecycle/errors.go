package lifecycle

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidExecutable  = errors.New("invalid executable")
	ErrInvalidSchedule    = errors.New("invalid schedule")
	ErrInvalidName        = errors.New("invalid timer name")
	ErrInvalidDescription = errors.New("invalid description")
	ErrNameRequired       = errors.New("timer name required")
)

// ValidationError carries the rejected input. It unwraps to its Kind, one of
// the ErrInvalid* sentinels.
type ValidationError struct {
	Kind  error
	Value string
	// Err is the underlying cause, if any (e.g. a cron parse error).
	Err error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v %q: %v", e.Kind, e.Value, e.Err)
	}
	return fmt.Sprintf("%v %q", e.Kind, e.Value)
}

func (e *ValidationError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// OpError is a failed control-plane call.
type OpError struct {
	Op   string
	Unit string
	Err  error
}

func (e *OpError) Error() string {
	if e.Unit == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Unit, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// EnvironmentError is implemented by errors caused by a broken execution
// environment (HOME unset, a tool that cannot be launched, no user bus).
// They are fatal and never retried.
type EnvironmentError interface {
	error
	Environment() bool
}

// IsEnvironment reports whether any error in err's chain is an environment error.
func IsEnvironment(err error) bool {
	var e EnvironmentError
	return errors.As(err, &e) && e.Environment()
}
