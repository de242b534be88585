package lifecycle

import "context"

// Validator answers the two questions add needs before anything is written.
type Validator interface {
	// CheckSchedule reports whether schedule is a valid calendar expression.
	// A rejected schedule is (false, nil); errors mean the check itself failed.
	CheckSchedule(ctx context.Context, schedule string) (bool, error)
	// ExecutableExists reports whether the first token of the command line
	// resolves to a runnable file.
	ExecutableExists(ctx context.Context, executable string) (bool, error)
}

// ControlPlane is the service manager. Unit names carry their suffix.
type ControlPlane interface {
	Reload(ctx context.Context) error
	Enable(ctx context.Context, unit string) error
	Disable(ctx context.Context, unit string) error
	Start(ctx context.Context, unit string) error
	Stop(ctx context.Context, unit string) error
	// Status and List return a report for display. Status may return partial
	// output together with an error.
	Status(ctx context.Context, unit string) (string, error)
	List(ctx context.Context) (string, error)
}

type Gateway interface {
	Validator
	ControlPlane
}

// Combine pairs a validator with a different control plane, e.g. exec-based
// checks with the D-Bus manager.
func Combine(v Validator, cp ControlPlane) Gateway {
	return combined{Validator: v, ControlPlane: cp}
}

type combined struct {
	Validator
	ControlPlane
}
