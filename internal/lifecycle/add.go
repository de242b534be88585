package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"usertimer/internal/schedule"
	"usertimer/internal/timer"
	logx "usertimer/pkg/logx"
)

// AddRequest is the raw input of add. Nil Name/Description are derived.
type AddRequest struct {
	Executable   string
	Schedule     string
	Name         *string
	Description  *string
	ExecIfMissed bool
}

// Add validates the request, writes the service and then the timer, and
// activates the timer: reload, enable, start.
//
// Nothing is written and nothing is called when an input holds control
// characters or an explicit name is unusable. Nothing is written when any
// other validation fails. If the timer cannot be written,
// a service file created by this call is removed again; a pre-existing one is
// left alone.
func (o *Orchestrator) Add(ctx context.Context, req AddRequest) (timer.Definition, error) {
	executable := strings.TrimSpace(req.Executable)
	if executable == "" || hasControl(executable) {
		return timer.Definition{}, &ValidationError{Kind: ErrInvalidExecutable, Value: req.Executable}
	}
	if hasControl(req.Schedule) {
		return timer.Definition{}, &ValidationError{Kind: ErrInvalidSchedule, Value: req.Schedule}
	}
	if req.Description != nil && hasControl(*req.Description) {
		return timer.Definition{}, &ValidationError{Kind: ErrInvalidDescription, Value: *req.Description}
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		if err := checkName(*req.Name, timer.BaseName(*req.Name)); err != nil {
			return timer.Definition{}, err
		}
	}

	ok, err := o.checkExecutable(ctx, executable)
	if err != nil {
		return timer.Definition{}, err
	}
	if !ok {
		return timer.Definition{}, &ValidationError{Kind: ErrInvalidExecutable, Value: executable}
	}

	parsed, err := schedule.Parse(req.Schedule)
	if err != nil {
		return timer.Definition{}, &ValidationError{Kind: ErrInvalidSchedule, Value: req.Schedule, Err: err}
	}
	if parsed.Kind == schedule.KindCron {
		o.log.Debug("translated cron schedule", logx.String("cron", parsed.Source), logx.String("calendar", parsed.Calendar))
	}
	ok, err = o.checkSchedule(ctx, parsed.Calendar)
	if err != nil {
		return timer.Definition{}, err
	}
	if !ok {
		return timer.Definition{}, &ValidationError{Kind: ErrInvalidSchedule, Value: parsed.Calendar}
	}

	def := timer.New(timer.Spec{
		Executable:   executable,
		Schedule:     parsed.Calendar,
		Name:         req.Name,
		Description:  req.Description,
		ExecIfMissed: req.ExecIfMissed,
	}, o.home)
	if def.Name == "" {
		return timer.Definition{}, ErrNameRequired
	}
	// derived names come from the command and can still be unusable
	if err := checkName(def.Name, def.Name); err != nil {
		return timer.Definition{}, err
	}
	log := o.log.With(logx.String("timer", def.TimerUnit()))

	if err := o.writeUnits(def, log); err != nil {
		return def, err
	}

	if err := o.call(ctx, "daemon-reload", "", o.gw.Reload); err != nil {
		return def, err
	}
	if err := o.call(ctx, "enable", def.TimerUnit(), func(c context.Context) error { return o.gw.Enable(c, def.TimerUnit()) }); err != nil {
		return def, err
	}
	if err := o.call(ctx, "start", def.TimerUnit(), func(c context.Context) error { return o.gw.Start(c, def.TimerUnit()) }); err != nil {
		return def, err
	}
	log.Info("timer added", logx.String("schedule", def.Schedule), logx.Bool("persistent", def.ExecIfMissed))
	o.report("add", def.TimerUnit())
	return def, nil
}

func (o *Orchestrator) checkExecutable(ctx context.Context, executable string) (bool, error) {
	cctx, cancel := o.bound(ctx)
	defer cancel()
	return o.gw.ExecutableExists(cctx, executable)
}

func (o *Orchestrator) checkSchedule(ctx context.Context, calendar string) (bool, error) {
	cctx, cancel := o.bound(ctx)
	defer cancel()
	return o.gw.CheckSchedule(cctx, calendar)
}

// writeUnits writes the service before the timer; the timer is only written
// once its target is on disk.
func (o *Orchestrator) writeUnits(def timer.Definition, log logx.Logger) error {
	if err := os.MkdirAll(o.unitDir, 0o755); err != nil {
		return fmt.Errorf("create unit directory %s: %w", o.unitDir, err)
	}

	servicePath := def.ServicePath(o.unitDir)
	_, statErr := os.Stat(servicePath)
	existed := statErr == nil
	if existed {
		log.Debug("replacing existing service unit", logx.String("path", servicePath))
	}

	if err := os.WriteFile(servicePath, []byte(def.RenderService()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", servicePath, err)
	}
	if fi, err := os.Stat(servicePath); err != nil || !fi.Mode().IsRegular() {
		if err == nil {
			err = fs.ErrInvalid
		}
		return fmt.Errorf("service unit %s missing after write: %w", servicePath, err)
	}
	log.Debug("wrote service unit", logx.String("path", servicePath))

	timerPath := def.TimerPath(o.unitDir)
	if err := os.WriteFile(timerPath, []byte(def.RenderTimer()), 0o644); err != nil {
		werr := fmt.Errorf("write %s: %w", timerPath, err)
		if !existed {
			if rerr := os.Remove(servicePath); rerr != nil && !errors.Is(rerr, fs.ErrNotExist) {
				return errors.Join(werr, fmt.Errorf("roll back %s: %w", servicePath, rerr))
			}
			log.Debug("rolled back service unit", logx.String("path", servicePath))
		}
		return werr
	}
	log.Debug("wrote timer unit", logx.String("path", timerPath))
	return nil
}
