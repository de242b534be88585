package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	logx "usertimer/pkg/logx"
)

const (
	BackendSystemctl = "systemctl"
	BackendDBus      = "dbus"
)

// ErrHomeUnset is returned when HOME is missing. There is no fallback: the
// unit directory cannot be located without it.
var ErrHomeUnset error = environmentError("HOME environment variable not set")

type environmentError string

func (e environmentError) Error() string { return string(e) }

// Environment marks the error as a broken execution environment rather than
// a user or control-plane failure.
func (e environmentError) Environment() bool { return true }

// Tools are the external programs used for validation and control.
type Tools struct {
	Systemctl      string
	SystemdAnalyze string
	Which          string
}

// Runtime is the fully resolved configuration of one invocation.
type Runtime struct {
	Home           string
	UnitDir        string
	Backend        string
	Tools          Tools
	CommandTimeout time.Duration
	ExecIfMissed   bool
	Logging        logx.Config
}

func homeDir(lookup Lookup) (string, error) {
	home := lookupString(lookup, "HOME", "")
	if home == "" {
		return "", ErrHomeUnset
	}
	return home, nil
}

// Resolve applies environment overrides and defaults to cfg.
func Resolve(cfg *Config, lookup Lookup) (*Runtime, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	home, err := homeDir(lookup)
	if err != nil {
		return nil, err
	}

	backend := strings.ToLower(lookupString(lookup, EnvBackend, strings.TrimSpace(cfg.ControlPlane.Backend)))
	switch backend {
	case "":
		backend = BackendSystemctl
	case BackendSystemctl, BackendDBus:
	default:
		return nil, fmt.Errorf("control_plane.backend: unknown backend %q (use %q or %q)", backend, BackendSystemctl, BackendDBus)
	}

	unitDir := lookupString(lookup, EnvUnitDir, strings.TrimSpace(cfg.Units.Dir))
	if unitDir == "" {
		unitDir = filepath.Join(home, ".config", "systemd", "user")
	}
	unitDir = expandHome(unitDir, home)

	timeoutRaw := lookupString(lookup, EnvCommandTimeout, cfg.ControlPlane.CommandTimeout)
	timeout, err := ParseDurationField("control_plane.command_timeout", timeoutRaw)
	if err != nil {
		return nil, err
	}

	execIfMissed := true
	if cfg.Units.ExecIfMissed != nil {
		execIfMissed = *cfg.Units.ExecIfMissed
	}

	console := true
	if cfg.Logging.Console != nil {
		console = *cfg.Logging.Console
	}
	logPath := strings.TrimSpace(cfg.Logging.File.Path)
	if cfg.Logging.File.Enabled && logPath == "" {
		logPath = filepath.Join(home, ".local", "state", "usertimer", "usertimer.log")
	}

	return &Runtime{
		Home:    home,
		UnitDir: unitDir,
		Backend: backend,
		Tools: Tools{
			Systemctl:      orDefault(cfg.ControlPlane.Systemctl, "systemctl"),
			SystemdAnalyze: orDefault(cfg.ControlPlane.SystemdAnalyze, "systemd-analyze"),
			Which:          orDefault(cfg.ControlPlane.Which, "which"),
		},
		CommandTimeout: timeout,
		ExecIfMissed:   execIfMissed,
		Logging: logx.Config{
			Level:   lookupString(lookup, EnvLogLevel, orDefault(cfg.Logging.Level, "info")),
			Console: console,
			File: logx.FileConfig{
				Enabled: cfg.Logging.File.Enabled,
				Path:    expandHome(logPath, home),
			},
		},
	}, nil
}

// ParseDurationField parses a Go duration; empty means 0 and negatives are rejected.
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

func orDefault(v, def string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return def
}

func expandHome(p, home string) string {
	if p == "~" {
		return home
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(home, p[2:])
	}
	return p
}
