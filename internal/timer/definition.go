package timer

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/coreos/go-systemd/v22/unit"
)

// Definition is one scheduled task: a oneshot service plus the timer that triggers it.
// All fields are concrete; optional user input is resolved before construction.
type Definition struct {
	Name         string
	Description  string
	Executable   string
	Schedule     string
	ExecIfMissed bool
}

// Spec is the raw user input for a new definition.
// Nil Name/Description mean "derive it".
type Spec struct {
	Executable   string
	Schedule     string
	Name         *string
	Description  *string
	ExecIfMissed bool
}

// New resolves spec into a Definition. home expands a leading "~" in the
// command written to ExecStart=; the description keeps the user's spelling.
func New(spec Spec, home string) Definition {
	return Definition{
		Name:         ResolveName(spec.Executable, spec.Name),
		Description:  ResolveDescription(spec.Executable, spec.Description),
		Executable:   ExpandTilde(strings.TrimSpace(spec.Executable), home),
		Schedule:     strings.TrimSpace(spec.Schedule),
		ExecIfMissed: spec.ExecIfMissed,
	}
}

func (d Definition) ServiceUnit() string { return d.Name + ServiceSuffix }
func (d Definition) TimerUnit() string   { return d.Name + TimerSuffix }

func (d Definition) ServicePath(dir string) string { return filepath.Join(dir, d.ServiceUnit()) }
func (d Definition) TimerPath(dir string) string   { return filepath.Join(dir, d.TimerUnit()) }

// ServiceOptions returns the [Unit]/[Service] options of the execution unit.
func (d Definition) ServiceOptions() []*unit.UnitOption {
	return []*unit.UnitOption{
		unit.NewUnitOption("Unit", "Description", d.Description),
		unit.NewUnitOption("Service", "Type", "oneshot"),
		unit.NewUnitOption("Service", "ExecStart", d.Executable),
	}
}

// TimerOptions returns the options of the trigger unit. Persistent= is only
// emitted when missed runs should be caught up.
func (d Definition) TimerOptions() []*unit.UnitOption {
	opts := []*unit.UnitOption{
		unit.NewUnitOption("Unit", "Description", d.Description),
		unit.NewUnitOption("Timer", "OnCalendar", d.Schedule),
	}
	if d.ExecIfMissed {
		opts = append(opts, unit.NewUnitOption("Timer", "Persistent", "true"))
	}
	return append(opts, unit.NewUnitOption("Install", "WantedBy", "timers.target"))
}

func (d Definition) RenderService() string { return render(d.ServiceOptions()) }
func (d Definition) RenderTimer() string   { return render(d.TimerOptions()) }

func render(opts []*unit.UnitOption) string {
	b, err := io.ReadAll(unit.Serialize(opts))
	if err != nil {
		// Serialize returns an in-memory buffer; reads cannot fail.
		panic(err)
	}
	return string(b)
}

// ExpandTilde replaces a leading "~" or "~/" with home. "~user" forms are left alone.
func ExpandTilde(path, home string) string {
	if home == "" || !strings.HasPrefix(path, "~") {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return strings.TrimSuffix(home, "/") + path[1:]
	}
	return path
}
