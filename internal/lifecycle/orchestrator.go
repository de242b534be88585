package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"usertimer/internal/timer"
	logx "usertimer/pkg/logx"
	"usertimer/pkg/systemdmanager"
)

// Options configures an Orchestrator. UnitDir and Gateway are required.
type Options struct {
	// UnitDir is where the .service/.timer pair lives (<home>/.config/systemd/user).
	UnitDir string
	// Home expands "~" in the executable written to ExecStart=.
	Home    string
	Gateway Gateway
	Log     logx.Logger
	// Out receives reports (status, list) and per-operation results.
	Out io.Writer
	// CommandTimeout bounds each gateway call; 0 means unbounded.
	CommandTimeout time.Duration
}

// Orchestrator sequences the per-command workflows. It keeps no state between
// calls; each command re-derives everything from its arguments and the disk.
type Orchestrator struct {
	unitDir string
	home    string
	gw      Gateway
	log     logx.Logger
	out     io.Writer
	timeout time.Duration
}

func New(opts Options) (*Orchestrator, error) {
	if strings.TrimSpace(opts.UnitDir) == "" {
		return nil, errors.New("lifecycle: unit directory required")
	}
	if opts.Gateway == nil {
		return nil, errors.New("lifecycle: gateway required")
	}
	if opts.CommandTimeout < 0 {
		return nil, fmt.Errorf("lifecycle: negative command timeout %s", opts.CommandTimeout)
	}
	out := opts.Out
	if out == nil {
		out = logx.Stdout()
	}
	return &Orchestrator{
		unitDir: opts.UnitDir,
		home:    opts.Home,
		gw:      opts.Gateway,
		log:     opts.Log,
		out:     out,
		timeout: opts.CommandTimeout,
	}, nil
}

func (o *Orchestrator) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.timeout > 0 {
		return context.WithTimeout(ctx, o.timeout)
	}
	return context.WithCancel(ctx)
}

// call runs one control-plane operation and wraps a failure in *OpError.
func (o *Orchestrator) call(ctx context.Context, op, unit string, fn func(context.Context) error) error {
	cctx, cancel := o.bound(ctx)
	defer cancel()

	start := time.Now()
	err := fn(cctx)
	o.log.Debug(actionLine(op, unit, err), logx.Duration("took", time.Since(start)))
	if err != nil {
		return &OpError{Op: op, Unit: unit, Err: err}
	}
	return nil
}

func (o *Orchestrator) report(op, unit string) {
	fmt.Fprintln(o.out, actionLine(op, unit, nil))
}

func actionLine(op, unit string, err error) string {
	if unit == "" {
		unit = "user manager"
	}
	return systemdmanager.FormatActionResult(unit, op, err)
}

// canonical returns the timer unit for a user supplied name. Names that would
// leave the unit directory or that systemd cannot load are rejected.
func canonical(name string) (string, error) {
	base := timer.BaseName(name)
	if base == "" {
		return "", ErrNameRequired
	}
	if err := checkName(name, base); err != nil {
		return "", err
	}
	return base + timer.TimerSuffix, nil
}

func checkName(raw, base string) error {
	if err := timer.CheckName(base); err != nil {
		return &ValidationError{Kind: ErrInvalidName, Value: raw, Err: err}
	}
	return nil
}

// hasControl reports whether s holds a control character; a newline in a
// value would start a new directive in the unit file.
func hasControl(s string) bool {
	return strings.IndexFunc(s, unicode.IsControl) >= 0
}
