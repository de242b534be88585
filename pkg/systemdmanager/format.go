package systemdmanager

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
)

var (
	ErrClosed      = errors.New("systemd connection is closed")
	ErrUnsupported = errors.New("systemdmanager: unsupported OS (linux only)")
)

// ConnectError means the user manager bus could not be reached, or that this
// platform has none.
type ConnectError struct{ Err error }

func (e *ConnectError) Error() string {
	return fmt.Sprintf("failed to connect to systemd user manager: %v", e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// Environment reports that the failure is not an operational one.
func (e *ConnectError) Environment() bool { return true }

// TimerStatus is the state of one timer unit as reported by the user manager.
type TimerStatus struct {
	Name          string
	Description   string
	LoadState     string // loaded, not-found, ...
	ActiveState   string // active, inactive, failed, ...
	SubState      string // waiting, running, elapsed, dead, ...
	UnitFileState string // enabled, disabled, ...
	FragmentPath  string

	// Activates is the unit the timer triggers ([Timer] Unit=).
	Activates  string
	Calendars  []string
	Persistent bool

	NextElapse  time.Time
	LastTrigger time.Time
}

// NotFound reports whether the manager has no unit file for the timer.
func (st TimerStatus) NotFound() bool { return st.LoadState == "not-found" }

func parseTimestamp(props map[string]interface{}, key string) time.Time {
	if ts, ok := props[key].(uint64); ok && ts > 0 && ts != ^uint64(0) {
		// systemd timestamps are in microseconds since the Unix epoch
		return time.Unix(int64(ts/1_000_000), 0)
	}
	return time.Time{}
}

func getStringProperty(props map[string]interface{}, key string) (string, bool) {
	if val, ok := props[key].(string); ok {
		return val, true
	}
	return "", false
}

// calendarSpecs extracts the OnCalendar expressions from the TimersCalendar
// property, an array of (base, expression, next-elapse) structs.
func calendarSpecs(props map[string]interface{}) []string {
	var out []string
	add := func(fields []interface{}) {
		if len(fields) >= 2 {
			if s, ok := fields[1].(string); ok && s != "" {
				out = append(out, s)
			}
		}
	}
	switch v := props["TimersCalendar"].(type) {
	case [][]interface{}:
		for _, f := range v {
			add(f)
		}
	case []interface{}:
		for _, item := range v {
			if f, ok := item.([]interface{}); ok {
				add(f)
			}
		}
	}
	return out
}

// timerStatusFromProps merges the generic unit properties with the Timer
// interface properties.
func timerStatusFromProps(name string, unitProps, timerProps map[string]interface{}) TimerStatus {
	st := TimerStatus{Name: name}
	st.Description, _ = getStringProperty(unitProps, "Description")
	st.LoadState, _ = getStringProperty(unitProps, "LoadState")
	st.ActiveState, _ = getStringProperty(unitProps, "ActiveState")
	st.SubState, _ = getStringProperty(unitProps, "SubState")
	st.UnitFileState, _ = getStringProperty(unitProps, "UnitFileState")
	st.FragmentPath, _ = getStringProperty(unitProps, "FragmentPath")
	if timerProps == nil {
		return st
	}
	st.Activates, _ = getStringProperty(timerProps, "Unit")
	st.Calendars = calendarSpecs(timerProps)
	st.Persistent, _ = timerProps["Persistent"].(bool)
	st.NextElapse = parseTimestamp(timerProps, "NextElapseUSecRealtime")
	st.LastTrigger = parseTimestamp(timerProps, "LastTriggerUSec")
	return st
}

func relTime(t, now time.Time, future string) string {
	if t.IsZero() {
		return "n/a"
	}
	return humanize.RelTime(t, now, "ago", future)
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return "n/a"
	}
	return t.Format("Mon 2006-01-02 15:04:05 MST")
}

// FormatTimerDetail renders a status report similar to systemctl status.
func FormatTimerDetail(st TimerStatus, now time.Time) string {
	var b strings.Builder
	if st.Description != "" {
		fmt.Fprintf(&b, "%s - %s\n", st.Name, st.Description)
	} else {
		fmt.Fprintf(&b, "%s\n", st.Name)
	}
	if st.NotFound() {
		b.WriteString("     Loaded: not-found\n")
		return b.String()
	}

	loaded := st.LoadState
	if st.FragmentPath != "" || st.UnitFileState != "" {
		loaded = fmt.Sprintf("%s (%s; %s)", st.LoadState, orNA(st.FragmentPath), orNA(st.UnitFileState))
	}
	fmt.Fprintf(&b, "     Loaded: %s\n", loaded)
	fmt.Fprintf(&b, "     Active: %s (%s)\n", orNA(st.ActiveState), orNA(st.SubState))
	if !st.NextElapse.IsZero() {
		fmt.Fprintf(&b, "    Trigger: %s; %s\n", stamp(st.NextElapse), relTime(st.NextElapse, now, "left"))
	}
	if !st.LastTrigger.IsZero() {
		fmt.Fprintf(&b, "  Triggered: %s; %s\n", stamp(st.LastTrigger), relTime(st.LastTrigger, now, "left"))
	}
	if st.Activates != "" {
		fmt.Fprintf(&b, "   Triggers: %s\n", st.Activates)
	}
	for _, c := range st.Calendars {
		fmt.Fprintf(&b, "   Schedule: %s\n", c)
	}
	if st.Persistent {
		b.WriteString(" Persistent: yes\n")
	}
	return b.String()
}

// FormatTimerTable renders a list-timers style table sorted by next elapse
// (timers that never elapse last, then by name).
func FormatTimerTable(list []TimerStatus, now time.Time) string {
	sorted := append([]TimerStatus(nil), list...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].NextElapse, sorted[j].NextElapse
		switch {
		case a.IsZero() != b.IsZero():
			return !a.IsZero()
		case !a.Equal(b):
			return a.Before(b)
		default:
			return sorted[i].Name < sorted[j].Name
		}
	})

	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NEXT\tLEFT\tLAST\tPASSED\tUNIT\tACTIVATES")
	for _, st := range sorted {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			stamp(st.NextElapse), relTime(st.NextElapse, now, "left"),
			stamp(st.LastTrigger), relTime(st.LastTrigger, now, "left"),
			st.Name, orNA(st.Activates))
	}
	_ = tw.Flush()
	fmt.Fprintf(&b, "\n%d timers listed.\n", len(sorted))
	return b.String()
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "n/a"
	}
	return s
}

func isNoSuchUnitErr(err error) bool {
	if err == nil {
		return false
	}
	es := err.Error()
	// systemd returns org.freedesktop.systemd1.NoSuchUnit for missing units.
	if strings.Contains(es, "NoSuchUnit") {
		return true
	}
	return strings.Contains(es, "not-found")
}

func formatOperationMessage(action, unit string, err error) string {
	if err != nil {
		return fmt.Sprintf("%s %s: error: %v", action, unit, err)
	}
	return fmt.Sprintf("%s %s: ok", action, unit)
}

// FormatActionResult renders the one-line outcome of a control operation.
func FormatActionResult(unit, action string, err error) string {
	return formatOperationMessage(action, unit, err)
}
