package cli

import (
	"context"
	"fmt"
	"strings"

	shellquote "github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"usertimer/internal/app"
	"usertimer/internal/lifecycle"
)

type runner func(cmd *cobra.Command, fn func(context.Context, *app.App) error) error

type nameFunc func(ctx context.Context, name string) error

func newAddCommand(run runner) *cobra.Command {
	var (
		executable   string
		when         string
		name         string
		description  string
		execIfMissed bool
	)
	cmd := &cobra.Command{
		Use:   "add -w SCHEDULE (-e EXECUTABLE | -- COMMAND [ARGS...])",
		Short: "Create, enable and start a timer",
		Example: `  usertimer add -e ~/bin/backup.sh -w daily
  usertimer add -w "Mon..Fri 09:00" -n standup -- notify-send "stand-up"
  usertimer add -w "cron:*/15 * * * *" -e "~/bin/sync.sh --quiet"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			command, err := commandLine(executable, args)
			if err != nil {
				return err
			}
			req := lifecycle.AddRequest{
				Executable: command,
				Schedule:   when,
			}
			if cmd.Flags().Changed("name") {
				req.Name = &name
			}
			if cmd.Flags().Changed("description") {
				req.Description = &description
			}
			return run(cmd, func(ctx context.Context, a *app.App) error {
				req.ExecIfMissed = execIfMissed
				if !cmd.Flags().Changed("exec-if-missed") {
					req.ExecIfMissed = a.Runtime().ExecIfMissed
				}
				_, err := a.Orchestrator().Add(ctx, req)
				return err
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&executable, "exec", "e", "", "command line to run (path plus arguments)")
	f.StringVarP(&when, "when", "w", "", "OnCalendar expression, or a crontab line prefixed with cron:")
	f.StringVarP(&name, "name", "n", "", "timer name (default: derived from the executable)")
	f.StringVarP(&description, "description", "d", "", `unit description (default: "Execute <exec>")`)
	f.BoolVarP(&execIfMissed, "exec-if-missed", "m", true, "run a missed schedule as soon as possible (Persistent=true)")
	f.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		if name == "schedule" {
			name = "when"
		}
		return pflag.NormalizedName(name)
	})
	_ = cmd.MarkFlagRequired("when")
	return cmd
}

// commandLine accepts the command either from --exec or as trailing
// arguments, which are re-quoted so ExecStart= sees the same words.
func commandLine(exec string, args []string) (string, error) {
	exec = strings.TrimSpace(exec)
	switch {
	case exec != "" && len(args) > 0:
		return "", fmt.Errorf("give the command either with --exec or after --, not both")
	case exec != "":
		return exec, nil
	case len(args) > 0:
		return shellquote.Join(args...), nil
	}
	return "", fmt.Errorf("required flag \"exec\" not set")
}

func newNameCommand(use, short string, pick func(*lifecycle.Orchestrator) nameFunc, run runner) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   use + " [NAME]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := timerName(name, args)
			if err != nil {
				return err
			}
			return run(cmd, func(ctx context.Context, a *app.App) error {
				return pick(a.Orchestrator())(ctx, n)
			})
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "timer name (the .timer suffix is optional)")
	return cmd
}

func newRemoveCommand(run runner) *cobra.Command {
	var (
		name          string
		removeService bool
	)
	cmd := &cobra.Command{
		Use:     "remove [NAME]",
		Aliases: []string{"rm"},
		Short:   "Disable a timer and delete its unit file",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := timerName(name, args)
			if err != nil {
				return err
			}
			return run(cmd, func(ctx context.Context, a *app.App) error {
				return a.Orchestrator().Remove(ctx, n, removeService)
			})
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "timer name (the .timer suffix is optional)")
	cmd.Flags().BoolVarP(&removeService, "remove-service", "r", false, "also delete the service unit the timer triggers")
	return cmd
}

func newListCommand(run runner) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all user timers",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app.App) error {
				return a.Orchestrator().List(ctx)
			})
		},
	}
}

// timerName takes the name from the positional argument or --name.
func timerName(flag string, args []string) (string, error) {
	flag = strings.TrimSpace(flag)
	var arg string
	if len(args) > 0 {
		arg = strings.TrimSpace(args[0])
	}
	switch {
	case flag != "" && arg != "" && flag != arg:
		return "", fmt.Errorf("conflicting names %q and %q", arg, flag)
	case arg != "":
		return arg, nil
	case flag != "":
		return flag, nil
	}
	return "", lifecycle.ErrNameRequired
}
