// Package systemctl drives the systemd user manager by executing systemctl,
// systemd-analyze and which.
//
// A tool that cannot be launched at all yields a *LaunchError (an environment
// error). A tool that runs and exits non-zero yields an *ExitError.
package systemctl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/kballard/go-shellquote"

	logx "usertimer/pkg/logx"
)

// Client runs the external tools. Zero-valued tool fields use their defaults.
type Client struct {
	Systemctl      string
	SystemdAnalyze string
	Which          string
	// Home expands a leading "~" in executable checks.
	Home string

	Log logx.Logger
}

// LaunchError means the tool could not be started (missing binary, permissions).
type LaunchError struct {
	Command string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("cannot launch %s: %v", e.Command, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// Environment reports that the failure is not an operational one.
func (e *LaunchError) Environment() bool { return true }

// ExitError means the tool ran and reported failure.
type ExitError struct {
	Command string
	Code    int
	Stderr  string
	// Stdout is kept so callers can still show a partial report.
	Stdout string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s: exit status %d", e.Command, e.Code)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + firstLine(s)
	}
	return msg
}

func (c *Client) systemctl() string { return orDefault(c.Systemctl, "systemctl") }
func (c *Client) analyze() string   { return orDefault(c.SystemdAnalyze, "systemd-analyze") }
func (c *Client) which() string     { return orDefault(c.Which, "which") }

func (c *Client) run(ctx context.Context, name string, args ...string) (string, error) {
	line := shellquote.Join(append([]string{name}, args...)...)
	c.Log.Debug("Equivalent command: "+line, logx.String("cmd", name))

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.String(), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return stdout.String(), fmt.Errorf("%s: %w", line, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stdout.String(), &ExitError{
			Command: line,
			Code:    exitErr.ExitCode(),
			Stderr:  stderr.String(),
			Stdout:  stdout.String(),
		}
	}
	return "", &LaunchError{Command: name, Err: err}
}

func (c *Client) user(ctx context.Context, args ...string) (string, error) {
	return c.run(ctx, c.systemctl(), append([]string{"--user"}, args...)...)
}

// CheckSchedule asks systemd-analyze whether schedule is a valid calendar
// expression. A rejected schedule is (false, nil).
func (c *Client) CheckSchedule(ctx context.Context, schedule string) (bool, error) {
	_, err := c.run(ctx, c.analyze(), "calendar", schedule)
	if err == nil {
		return true, nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		c.Log.Debug("schedule rejected", logx.String("schedule", schedule), logx.String("stderr", firstLine(exitErr.Stderr)))
		return false, nil
	}
	return false, err
}

// ExecutableExists checks the first token of executable: a regular file at the
// (tilde expanded) path, or anything which(1) resolves. When which itself
// cannot be launched the search path is consulted directly.
func (c *Client) ExecutableExists(ctx context.Context, executable string) (bool, error) {
	command := firstToken(executable)
	if command == "" {
		return false, nil
	}
	path := expandTilde(command, c.Home)
	if fi, err := os.Stat(path); err == nil && fi.Mode().IsRegular() {
		return true, nil
	}

	_, err := c.run(ctx, c.which(), path)
	if err == nil {
		return true, nil
	}
	var launchErr *LaunchError
	if errors.As(err, &launchErr) {
		c.Log.Debug("which unavailable; using search path", logx.Err(err))
		_, lerr := exec.LookPath(path)
		return lerr == nil, nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return false, nil
	}
	return false, err
}

func (c *Client) Reload(ctx context.Context) error {
	_, err := c.user(ctx, "daemon-reload")
	return err
}

// Enable enables and starts unit (enable --now).
func (c *Client) Enable(ctx context.Context, unit string) error {
	_, err := c.user(ctx, "enable", "--now", unit)
	return err
}

// Disable stops and disables unit (disable --now).
func (c *Client) Disable(ctx context.Context, unit string) error {
	_, err := c.user(ctx, "disable", "--now", unit)
	return err
}

func (c *Client) Start(ctx context.Context, unit string) error {
	_, err := c.user(ctx, "start", unit)
	return err
}

func (c *Client) Stop(ctx context.Context, unit string) error {
	_, err := c.user(ctx, "stop", unit)
	return err
}

// Status returns the systemctl status report. On a non-zero exit the
// captured output is returned alongside the error.
func (c *Client) Status(ctx context.Context, unit string) (string, error) {
	return c.user(ctx, "status", "--no-pager", unit)
}

// List returns the list-timers --all table.
func (c *Client) List(ctx context.Context) (string, error) {
	return c.user(ctx, "list-timers", "--all", "--no-pager")
}

func firstToken(s string) string {
	if words, err := shellquote.Split(s); err == nil && len(words) > 0 {
		return words[0]
	}
	if f := strings.Fields(s); len(f) > 0 {
		return f[0]
	}
	return ""
}

func expandTilde(p, home string) string {
	if home == "" {
		return p
	}
	if p == "~" {
		return home
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(home, p[2:])
	}
	return p
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func orDefault(v, def string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return def
}
