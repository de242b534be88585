package lifecycle

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"usertimer/internal/timer"
)

// recorder is a Gateway that records every call in order. snapshot, when set,
// runs before each control-plane call so tests can observe disk state at
// that moment.
type recorder struct {
	calls []string

	execOK     bool
	scheduleOK bool
	errs       map[string]error // keyed by call, e.g. "disable backup_sh.timer"

	statusOut string
	listOut   string

	block    map[string]bool // calls that wait for ctx to end
	snapshot func(call string)
}

func newRecorder() *recorder {
	return &recorder{execOK: true, scheduleOK: true, errs: map[string]error{}, block: map[string]bool{}}
}

func (r *recorder) do(ctx context.Context, call string) error {
	if r.snapshot != nil {
		r.snapshot(call)
	}
	r.calls = append(r.calls, call)
	if r.block[call] {
		<-ctx.Done()
		return ctx.Err()
	}
	return r.errs[call]
}

func (r *recorder) CheckSchedule(ctx context.Context, s string) (bool, error) {
	if err := r.do(ctx, "check-schedule "+s); err != nil {
		return false, err
	}
	return r.scheduleOK, nil
}

func (r *recorder) ExecutableExists(ctx context.Context, e string) (bool, error) {
	if err := r.do(ctx, "exists "+e); err != nil {
		return false, err
	}
	return r.execOK, nil
}

func (r *recorder) Reload(ctx context.Context) error { return r.do(ctx, "reload") }
func (r *recorder) Enable(ctx context.Context, u string) error {
	return r.do(ctx, "enable "+u)
}
func (r *recorder) Disable(ctx context.Context, u string) error {
	return r.do(ctx, "disable "+u)
}
func (r *recorder) Start(ctx context.Context, u string) error { return r.do(ctx, "start "+u) }
func (r *recorder) Stop(ctx context.Context, u string) error  { return r.do(ctx, "stop "+u) }

func (r *recorder) Status(ctx context.Context, u string) (string, error) {
	err := r.do(ctx, "status "+u)
	return r.statusOut, err
}

func (r *recorder) List(ctx context.Context) (string, error) {
	err := r.do(ctx, "list")
	return r.listOut, err
}

type envErr struct{}

func (envErr) Error() string     { return "cannot launch systemctl" }
func (envErr) Environment() bool { return true }

type fixture struct {
	dir  string
	home string
	gw   *recorder
	out  *bytes.Buffer
	orch *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	home := t.TempDir()
	f := &fixture{
		dir:  filepath.Join(home, ".config", "systemd", "user"),
		home: home,
		gw:   newRecorder(),
		out:  &bytes.Buffer{},
	}
	orch, err := New(Options{UnitDir: f.dir, Home: home, Gateway: f.gw, Out: f.out})
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	f.orch = orch
	return f
}

func (f *fixture) path(unit string) string { return filepath.Join(f.dir, unit) }

func (f *fixture) exists(unit string) bool {
	_, err := os.Stat(f.path(unit))
	return err == nil
}

func (f *fixture) write(t *testing.T, unit, body string) {
	t.Helper()
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(f.path(unit), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) read(t *testing.T, unit string) string {
	t.Helper()
	b, err := os.ReadFile(f.path(unit))
	if err != nil {
		t.Fatalf("read %s: %v", unit, err)
	}
	return string(b)
}

// install writes the unit pair the way add would.
func (f *fixture) install(t *testing.T, def timer.Definition) {
	t.Helper()
	f.write(t, def.ServiceUnit(), def.RenderService())
	f.write(t, def.TimerUnit(), def.RenderTimer())
}
