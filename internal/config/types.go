package config

// Config is the optional on-disk configuration (YAML or JSON).
//
// Every field may be omitted; Resolve fills in defaults. Example:
//
//	logging:
//	  level: info
//	  file: { enabled: true, path: ~/.local/state/usertimer/usertimer.log }
//	control_plane:
//	  backend: systemctl
//	  command_timeout: 30s
type Config struct {
	Logging      LoggingConfig      `json:"logging"`
	ControlPlane ControlPlaneConfig `json:"control_plane"`
	Units        UnitsConfig        `json:"units"`
}

type LoggingConfig struct {
	Level string `json:"level"`
	// Console is a pointer so an omitted key keeps the default (true).
	Console *bool       `json:"console,omitempty"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// ControlPlaneConfig selects how systemd is driven.
//
// Backend values:
//   - "systemctl": exec systemctl --user (default)
//   - "dbus": talk to the user manager over D-Bus (linux only)
//
// Schedule and executable checks always run the external tools.
type ControlPlaneConfig struct {
	Backend        string `json:"backend,omitempty"`
	Systemctl      string `json:"systemctl,omitempty"`       // default: "systemctl"
	SystemdAnalyze string `json:"systemd_analyze,omitempty"` // default: "systemd-analyze"
	Which          string `json:"which,omitempty"`           // default: "which"

	// CommandTimeout bounds each control-plane call (Go duration string).
	// "0s" or empty disables the bound.
	CommandTimeout string `json:"command_timeout,omitempty"`
}

// UnitsConfig controls where unit files are written and add defaults.
type UnitsConfig struct {
	// Dir overrides <home>/.config/systemd/user.
	Dir string `json:"dir,omitempty"`
	// ExecIfMissed is the default for add --exec-if-missed (true when omitted).
	ExecIfMissed *bool `json:"exec_if_missed,omitempty"`
}
