// Package cli is the usertimer command tree.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"usertimer/internal/app"
	"usertimer/internal/config"
	"usertimer/internal/lifecycle"
	logx "usertimer/pkg/logx"
)

// Options wire the command tree to its environment.
type Options struct {
	Stdout io.Writer
	Stderr io.Writer
	Lookup config.Lookup
	// LoadDotEnv is forwarded to app.Options.
	LoadDotEnv bool
	// Gateway replaces the configured backend (tests).
	Gateway lifecycle.Gateway
}

type globalFlags struct {
	config   string
	logLevel string
	verbose  bool
}

// NewRootCommand builds the usertimer command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Stdout == nil {
		opts.Stdout = logx.Stdout()
	}
	if opts.Stderr == nil {
		opts.Stderr = logx.Stderr()
	}

	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "usertimer",
		Short: "Manage systemd user timers",
		Long: `Manage scheduled tasks backed by systemd user units.

Each task is a oneshot .service plus a .timer that triggers it, written to
~/.config/systemd/user and driven through the user manager.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(opts.Stdout)
	root.SetErr(opts.Stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&g.config, "config", "", "config file (default $XDG_CONFIG_HOME/usertimer/config.yaml)")
	pf.StringVar(&g.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "print each step and the equivalent systemctl command")

	withApp := func(cmd *cobra.Command, fn func(context.Context, *app.App) error) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := app.New(ctx, app.Options{
			ConfigPath: g.config,
			LogLevel:   g.logLevel,
			Verbose:    g.verbose,
			Stdout:     opts.Stdout,
			Stderr:     opts.Stderr,
			Lookup:     opts.Lookup,
			LoadDotEnv: opts.LoadDotEnv,
			Gateway:    opts.Gateway,
		})
		if err != nil {
			return err
		}
		defer a.Close()

		err = fn(ctx, a)
		if err != nil {
			a.Logger().Debug("command failed", logx.String("cmd", cmd.Name()), logx.Err(err))
		}
		return err
	}

	root.AddCommand(
		newAddCommand(withApp),
		newNameCommand("enable", "Enable and start a timer", func(o *lifecycle.Orchestrator) nameFunc { return o.Enable }, withApp),
		newNameCommand("disable", "Stop and disable a timer", func(o *lifecycle.Orchestrator) nameFunc { return o.Disable }, withApp),
		newNameCommand("start", "Start a timer", func(o *lifecycle.Orchestrator) nameFunc { return o.Start }, withApp),
		newNameCommand("stop", "Stop a timer", func(o *lifecycle.Orchestrator) nameFunc { return o.Stop }, withApp),
		newNameCommand("status", "Show the status of a timer", func(o *lifecycle.Orchestrator) nameFunc { return o.Status }, withApp),
		newRemoveCommand(withApp),
		newListCommand(withApp),
	)
	return root
}

// Execute runs the command tree and returns the process exit status.
func Execute(ctx context.Context, args []string, opts Options) int {
	root := NewRootCommand(opts)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		if lifecycle.IsEnvironment(err) {
			fmt.Fprintln(root.ErrOrStderr(), "fatal:", err)
		} else {
			fmt.Fprintln(root.ErrOrStderr(), "error:", err)
		}
		return 1
	}
	return 0
}
