package systemctl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// fakeTool writes an executable shell script that appends its arguments to a
// log file and then runs body.
func fakeTool(t *testing.T, dir, name, body string) (path, logPath string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts required")
	}
	path = filepath.Join(dir, name)
	logPath = path + ".log"
	script := "#!/bin/sh\necho \"$@\" >> '" + logPath + "'\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake %s: %v", name, err)
	}
	return path, logPath
}

func readLog(t *testing.T, p string) []string {
	t.Helper()
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		t.Fatalf("read log: %v", err)
	}
	return strings.Split(strings.TrimSpace(string(b)), "\n")
}

func TestControlCommandsUseUserManager(t *testing.T) {
	dir := t.TempDir()
	bin, log := fakeTool(t, dir, "systemctl", "exit 0")
	c := &Client{Systemctl: bin}
	ctx := context.Background()

	steps := []func() error{
		func() error { return c.Reload(ctx) },
		func() error { return c.Enable(ctx, "backup_sh.timer") },
		func() error { return c.Start(ctx, "backup_sh.timer") },
		func() error { return c.Stop(ctx, "backup_sh.timer") },
		func() error { return c.Disable(ctx, "backup_sh.timer") },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	want := []string{
		"--user daemon-reload",
		"--user enable --now backup_sh.timer",
		"--user start backup_sh.timer",
		"--user stop backup_sh.timer",
		"--user disable --now backup_sh.timer",
	}
	got := readLog(t, log)
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("calls:\n got %q\nwant %q", got, want)
	}
}

func TestStatusAndListCaptureStdout(t *testing.T) {
	dir := t.TempDir()
	bin, _ := fakeTool(t, dir, "systemctl", `case "$2" in
status) echo "backup_sh.timer - Execute backup" ;;
list-timers) echo "NEXT LEFT LAST PASSED UNIT ACTIVATES" ;;
esac`)
	c := &Client{Systemctl: bin}

	out, err := c.Status(context.Background(), "backup_sh.timer")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "Execute backup") {
		t.Fatalf("status output %q", out)
	}

	out, err = c.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.HasPrefix(out, "NEXT") {
		t.Fatalf("list output %q", out)
	}
}

func TestNonZeroExitIsExitError(t *testing.T) {
	dir := t.TempDir()
	bin, _ := fakeTool(t, dir, "systemctl", `echo "partial report"
echo "Unit nope.timer could not be found." >&2
exit 4`)
	c := &Client{Systemctl: bin}

	out, err := c.Status(context.Background(), "nope.timer")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitError, got %T %v", err, err)
	}
	if exitErr.Code != 4 {
		t.Fatalf("code=%d", exitErr.Code)
	}
	if !strings.Contains(err.Error(), "could not be found") {
		t.Fatalf("error should carry stderr: %v", err)
	}
	if !strings.Contains(out, "partial report") || !strings.Contains(exitErr.Stdout, "partial report") {
		t.Fatalf("stdout lost: out=%q stdout=%q", out, exitErr.Stdout)
	}
	var env interface{ Environment() bool }
	if errors.As(err, &env) {
		t.Fatalf("a non-zero exit is not an environment error")
	}
}

func TestMissingBinaryIsLaunchError(t *testing.T) {
	c := &Client{Systemctl: filepath.Join(t.TempDir(), "no-such-systemctl")}
	err := c.Reload(context.Background())
	var launchErr *LaunchError
	if !errors.As(err, &launchErr) {
		t.Fatalf("expected *LaunchError, got %T %v", err, err)
	}
	if !launchErr.Environment() {
		t.Fatalf("launch errors are environment errors")
	}
}

func TestCheckSchedule(t *testing.T) {
	dir := t.TempDir()
	bin, log := fakeTool(t, dir, "systemd-analyze", `[ "$2" = "daily" ] || { echo "Failed to parse calendar specification" >&2; exit 1; }`)
	c := &Client{SystemdAnalyze: bin}

	ok, err := c.CheckSchedule(context.Background(), "daily")
	if err != nil || !ok {
		t.Fatalf("daily: ok=%v err=%v", ok, err)
	}
	ok, err = c.CheckSchedule(context.Background(), "every blue moon")
	if err != nil || ok {
		t.Fatalf("bogus: ok=%v err=%v", ok, err)
	}
	if got := readLog(t, log); len(got) != 2 || got[0] != "calendar daily" {
		t.Fatalf("calls %q", got)
	}

	c.SystemdAnalyze = filepath.Join(dir, "missing-analyze")
	if _, err := c.CheckSchedule(context.Background(), "daily"); err == nil {
		t.Fatalf("expected launch failure")
	}
}

func TestExecutableExistsRegularFile(t *testing.T) {
	home := t.TempDir()
	if err := os.MkdirAll(filepath.Join(home, "bin"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(home, "bin", "backup.sh"), []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	which, log := fakeTool(t, t.TempDir(), "which", "exit 1")
	c := &Client{Which: which, Home: home}

	ok, err := c.ExecutableExists(context.Background(), "~/bin/backup.sh --full")
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if got := readLog(t, log); got != nil {
		t.Fatalf("which should not run for a regular file, got %q", got)
	}
}

func TestExecutableExistsDelegatesToWhich(t *testing.T) {
	which, log := fakeTool(t, t.TempDir(), "which", `[ "$1" = "rsync" ]`)
	c := &Client{Which: which, Home: t.TempDir()}

	ok, err := c.ExecutableExists(context.Background(), "rsync -a src dst")
	if err != nil || !ok {
		t.Fatalf("rsync: ok=%v err=%v", ok, err)
	}
	ok, err = c.ExecutableExists(context.Background(), "not-installed")
	if err != nil || ok {
		t.Fatalf("not-installed: ok=%v err=%v", ok, err)
	}
	if got := readLog(t, log); len(got) != 2 || got[0] != "rsync" || got[1] != "not-installed" {
		t.Fatalf("which calls %q", got)
	}
}

func TestExecutableExistsFallsBackToSearchPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts required")
	}
	binDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(binDir, "mytool"), []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", binDir)

	c := &Client{Which: filepath.Join(t.TempDir(), "no-which")}
	ok, err := c.ExecutableExists(context.Background(), "mytool --flag")
	if err != nil || !ok {
		t.Fatalf("mytool: ok=%v err=%v", ok, err)
	}
	ok, err = c.ExecutableExists(context.Background(), "othertool")
	if err != nil || ok {
		t.Fatalf("othertool: ok=%v err=%v", ok, err)
	}
}

func TestExecutableExistsEmpty(t *testing.T) {
	c := &Client{}
	ok, err := c.ExecutableExists(context.Background(), "   ")
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
}
