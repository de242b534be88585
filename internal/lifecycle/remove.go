package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"usertimer/internal/timer"
	logx "usertimer/pkg/logx"
)

// Remove disables the timer, deletes its file and, with cascade, the service
// it triggers, then reloads the manager.
//
// A failed disable aborts before anything is deleted. Deletion failures are
// collected and returned, but the reload still runs. Nothing is re-enabled.
func (o *Orchestrator) Remove(ctx context.Context, name string, cascade bool) error {
	unit, err := canonical(name)
	if err != nil {
		return err
	}
	base := timer.BaseName(unit)
	log := o.log.With(logx.String("timer", unit))

	if err := o.call(ctx, "disable", unit, func(c context.Context) error { return o.gw.Disable(c, unit) }); err != nil {
		return err
	}

	timerPath := filepath.Join(o.unitDir, unit)

	// The Unit= reference must be read before the timer file is gone.
	var serviceUnit string
	if cascade {
		serviceUnit = o.referencedService(timerPath, base, log)
	}

	var errs []error
	if err := os.Remove(timerPath); err != nil {
		log.Warn("could not delete timer unit", logx.String("path", timerPath), logx.Err(err))
		errs = append(errs, fmt.Errorf("delete %s: %w", timerPath, err))
	} else {
		log.Debug("deleted timer unit", logx.String("path", timerPath))
	}

	if cascade {
		servicePath := filepath.Join(o.unitDir, serviceUnit)
		if err := os.Remove(servicePath); err != nil {
			log.Warn("could not delete service unit", logx.String("path", servicePath), logx.Err(err))
			errs = append(errs, fmt.Errorf("delete %s: %w", servicePath, err))
		} else {
			log.Debug("deleted service unit", logx.String("path", servicePath))
		}
	}

	if err := o.call(ctx, "daemon-reload", "", o.gw.Reload); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	o.report("remove", unit)
	return nil
}

func (o *Orchestrator) referencedService(timerPath, base string, log logx.Logger) string {
	f, err := os.Open(timerPath)
	if err != nil {
		log.Debug("timer unit unreadable; using default service name", logx.Err(err))
		return timer.ReferencedService(nil, base)
	}
	defer f.Close()
	return timer.ReferencedService(f, base)
}
