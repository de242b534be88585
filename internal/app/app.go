package app

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"usertimer/internal/config"
	"usertimer/internal/lifecycle"
	logx "usertimer/pkg/logx"
	"usertimer/pkg/systemctl"
	"usertimer/pkg/systemdmanager"
)

// Options are the process-level inputs of one invocation.
type Options struct {
	// ConfigPath is the --config flag; empty means the default location,
	// where a missing file is not an error.
	ConfigPath string
	// LogLevel overrides the configured level. Verbose forces debug.
	LogLevel string
	Verbose  bool

	Stdout io.Writer
	Stderr io.Writer

	// Lookup reads the environment; nil means os.LookupEnv.
	Lookup config.Lookup
	// LoadDotEnv loads <config dir>/.env into the process environment first.
	LoadDotEnv bool

	// Gateway replaces the configured backend (tests).
	Gateway lifecycle.Gateway
}

// App is one wired invocation: config, logging, gateway and orchestrator.
type App struct {
	runtime *config.Runtime

	log  logx.Logger
	logs *logx.Service

	orch    *lifecycle.Orchestrator
	closers []func() error
}

func New(ctx context.Context, opts Options) (*App, error) {
	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = logx.Stderr()
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = logx.Stdout()
	}

	bootLevel := "warn"
	if opts.Verbose {
		bootLevel = "debug"
	}
	bootLog := logx.NewConsole(bootLevel, stderr).With(logx.String("comp", "config"))

	if opts.LoadDotEnv {
		if dir, err := config.ConfigDir(lookup); err == nil {
			loaded, err := config.LoadDotEnv(filepath.Join(dir, ".env"))
			if err != nil {
				return nil, err
			}
			for _, p := range loaded {
				bootLog.Debug("loaded env file", logx.String("path", p))
			}
		}
	}

	cfgPath := strings.TrimSpace(opts.ConfigPath)
	explicit := cfgPath != ""
	if !explicit {
		p, err := config.DefaultConfigPath(lookup)
		if err != nil {
			return nil, err
		}
		cfgPath = p
	}
	cfgm := config.NewConfigManager(cfgPath, !explicit)
	cfgm.SetLogger(bootLog)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	rt, err := config.Resolve(cfg, lookup)
	if err != nil {
		return nil, err
	}
	if lvl := strings.TrimSpace(opts.LogLevel); lvl != "" {
		rt.Logging.Level = lvl
	}
	if opts.Verbose {
		rt.Logging.Level = "debug"
	}
	rt.Logging.Out = stderr

	logs, log := logx.New(rt.Logging)
	log = log.With(logx.String("run", uuid.NewString()))

	a := &App{
		runtime: rt,
		log:     log,
		logs:    logs,
	}
	a.closers = append(a.closers, logs.Close)

	gw := opts.Gateway
	if gw == nil {
		gw, err = a.gateway(ctx)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	orch, err := lifecycle.New(lifecycle.Options{
		UnitDir:        rt.UnitDir,
		Home:           rt.Home,
		Gateway:        gw,
		Log:            log.With(logx.String("comp", "lifecycle")),
		Out:            stdout,
		CommandTimeout: rt.CommandTimeout,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.orch = orch

	log.Debug("usertimer ready",
		logx.String("config", cfgPath),
		logx.String("backend", rt.Backend),
		logx.String("unit_dir", rt.UnitDir),
		logx.Duration("command_timeout", rt.CommandTimeout),
	)
	return a, nil
}

// gateway builds the configured backend. Validation always goes through the
// external tools; the D-Bus manager only replaces the control plane.
func (a *App) gateway(ctx context.Context) (lifecycle.Gateway, error) {
	rt := a.runtime
	client := &systemctl.Client{
		Systemctl:      rt.Tools.Systemctl,
		SystemdAnalyze: rt.Tools.SystemdAnalyze,
		Which:          rt.Tools.Which,
		Home:           rt.Home,
		Log:            a.log.With(logx.String("comp", "systemctl")),
	}
	if rt.Backend != config.BackendDBus {
		return client, nil
	}

	mgr, err := systemdmanager.NewUserManagerContext(ctx, a.log.With(logx.String("comp", "dbus")))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, mgr.Close)
	return lifecycle.Combine(client, mgr), nil
}

func (a *App) Orchestrator() *lifecycle.Orchestrator { return a.orch }
func (a *App) Runtime() *config.Runtime              { return a.runtime }
func (a *App) Logger() logx.Logger                   { return a.log }

// Close releases the D-Bus connection and the log file, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
