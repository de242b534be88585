package lifecycle

import (
	"context"
	"fmt"
	"strings"
)

func (o *Orchestrator) Enable(ctx context.Context, name string) error {
	return o.single(ctx, "enable", name, o.gw.Enable)
}

func (o *Orchestrator) Disable(ctx context.Context, name string) error {
	return o.single(ctx, "disable", name, o.gw.Disable)
}

func (o *Orchestrator) Start(ctx context.Context, name string) error {
	return o.single(ctx, "start", name, o.gw.Start)
}

func (o *Orchestrator) Stop(ctx context.Context, name string) error {
	return o.single(ctx, "stop", name, o.gw.Stop)
}

func (o *Orchestrator) single(ctx context.Context, op, name string, fn func(context.Context, string) error) error {
	unit, err := canonical(name)
	if err != nil {
		return err
	}
	if err := o.call(ctx, op, unit, func(c context.Context) error { return fn(c, unit) }); err != nil {
		return err
	}
	o.report(op, unit)
	return nil
}

// Status prints the manager's report for the timer. Output captured before a
// failure is still printed.
func (o *Orchestrator) Status(ctx context.Context, name string) error {
	unit, err := canonical(name)
	if err != nil {
		return err
	}
	var out string
	err = o.call(ctx, "status", unit, func(c context.Context) error {
		var serr error
		out, serr = o.gw.Status(c, unit)
		return serr
	})
	o.print(out)
	return err
}

// List prints every user timer.
func (o *Orchestrator) List(ctx context.Context) error {
	var out string
	err := o.call(ctx, "list-timers", "", func(c context.Context) error {
		var lerr error
		out, lerr = o.gw.List(c)
		return lerr
	})
	o.print(out)
	return err
}

func (o *Orchestrator) print(s string) {
	if strings.TrimSpace(s) == "" {
		return
	}
	if strings.HasSuffix(s, "\n") {
		fmt.Fprint(o.out, s)
		return
	}
	fmt.Fprintln(o.out, s)
}
