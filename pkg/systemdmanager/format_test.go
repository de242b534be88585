package systemdmanager

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func usec(t time.Time) uint64 { return uint64(t.Unix()) * 1_000_000 }

func TestTimerStatusFromProps(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	unitProps := map[string]interface{}{
		"Description":   "Execute ~/bin/backup.sh",
		"LoadState":     "loaded",
		"ActiveState":   "active",
		"SubState":      "waiting",
		"UnitFileState": "enabled",
		"FragmentPath":  "/home/ana/.config/systemd/user/backup_sh.timer",
	}
	timerProps := map[string]interface{}{
		"Unit":                   "backup_sh.service",
		"Persistent":             true,
		"NextElapseUSecRealtime": usec(now.Add(3 * time.Hour)),
		"LastTriggerUSec":        uint64(0),
		"TimersCalendar": [][]interface{}{
			{"OnCalendar", "*-*-* 00:00:00", uint64(0)},
		},
	}

	st := timerStatusFromProps("backup_sh.timer", unitProps, timerProps)
	if st.Activates != "backup_sh.service" || !st.Persistent {
		t.Fatalf("timer props not applied: %+v", st)
	}
	if len(st.Calendars) != 1 || st.Calendars[0] != "*-*-* 00:00:00" {
		t.Fatalf("calendars=%q", st.Calendars)
	}
	if !st.NextElapse.Equal(now.Add(3 * time.Hour)) {
		t.Fatalf("next=%v", st.NextElapse)
	}
	if !st.LastTrigger.IsZero() {
		t.Fatalf("zero trigger should stay unset, got %v", st.LastTrigger)
	}
}

func TestCalendarSpecsAcceptsGenericArrays(t *testing.T) {
	props := map[string]interface{}{
		"TimersCalendar": []interface{}{
			[]interface{}{"OnCalendar", "Mon *-*-* 02:00:00", uint64(1)},
			"garbage",
		},
	}
	got := calendarSpecs(props)
	if len(got) != 1 || got[0] != "Mon *-*-* 02:00:00" {
		t.Fatalf("got %q", got)
	}
}

func TestParseTimestampInfinity(t *testing.T) {
	props := map[string]interface{}{"NextElapseUSecRealtime": ^uint64(0)}
	if ts := parseTimestamp(props, "NextElapseUSecRealtime"); !ts.IsZero() {
		t.Fatalf("infinity should be unset, got %v", ts)
	}
}

func TestFormatTimerDetail(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := TimerStatus{
		Name:          "backup_sh.timer",
		Description:   "Execute ~/bin/backup.sh",
		LoadState:     "loaded",
		ActiveState:   "active",
		SubState:      "waiting",
		UnitFileState: "enabled",
		FragmentPath:  "/u/backup_sh.timer",
		Activates:     "backup_sh.service",
		Calendars:     []string{"*-*-* 00:00:00"},
		Persistent:    true,
		NextElapse:    now.Add(2*time.Hour + 30*time.Minute),
		LastTrigger:   now.Add(-26 * time.Hour),
	}
	out := FormatTimerDetail(st, now)
	for _, want := range []string{
		"backup_sh.timer - Execute ~/bin/backup.sh",
		"Loaded: loaded (/u/backup_sh.timer; enabled)",
		"Active: active (waiting)",
		"2 hours left",
		"1 day ago",
		"Triggers: backup_sh.service",
		"Schedule: *-*-* 00:00:00",
		"Persistent: yes",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}

	missing := FormatTimerDetail(TimerStatus{Name: "nope.timer", LoadState: "not-found"}, now)
	if !strings.Contains(missing, "Loaded: not-found") || strings.Contains(missing, "Active:") {
		t.Fatalf("not-found report:\n%s", missing)
	}
}

func TestFormatTimerTableOrdering(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	list := []TimerStatus{
		{Name: "idle.timer"},
		{Name: "later.timer", NextElapse: now.Add(5 * time.Hour), Activates: "later.service"},
		{Name: "soon.timer", NextElapse: now.Add(10 * time.Minute), Activates: "soon.service"},
	}
	out := FormatTimerTable(list, now)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if !strings.HasPrefix(lines[0], "NEXT") {
		t.Fatalf("header: %q", lines[0])
	}
	order := []string{"soon.timer", "later.timer", "idle.timer"}
	for i, name := range order {
		if !strings.Contains(lines[i+1], name) {
			t.Fatalf("row %d = %q, want %s", i+1, lines[i+1], name)
		}
	}
	if !strings.Contains(lines[1], "10 minutes left") {
		t.Fatalf("relative time missing: %q", lines[1])
	}
	if !strings.HasSuffix(out, "3 timers listed.\n") {
		t.Fatalf("footer: %q", out)
	}
}

func TestFormatActionResult(t *testing.T) {
	if got := FormatActionResult("backup_sh.timer", "enable", nil); got != "enable backup_sh.timer: ok" {
		t.Fatalf("got %q", got)
	}
	got := FormatActionResult("backup_sh.timer", "stop", errors.New("boom"))
	if got != "stop backup_sh.timer: error: boom" {
		t.Fatalf("got %q", got)
	}
}

func TestIsNoSuchUnitErr(t *testing.T) {
	if !isNoSuchUnitErr(errors.New("org.freedesktop.systemd1.NoSuchUnit: Unit x.timer not loaded")) {
		t.Fatalf("NoSuchUnit not detected")
	}
	if isNoSuchUnitErr(nil) || isNoSuchUnitErr(errors.New("access denied")) {
		t.Fatalf("false positive")
	}
}

func TestConnectErrorIsEnvironment(t *testing.T) {
	err := fmt.Errorf("backend: %w", &ConnectError{Err: ErrUnsupported})
	var env interface{ Environment() bool }
	if !errors.As(err, &env) || !env.Environment() {
		t.Fatalf("ConnectError should be classified as an environment failure")
	}
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("ConnectError should unwrap to its cause")
	}
}
