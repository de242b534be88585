package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Environment overrides. Priority: flags > environment > .env > config file > defaults.
const (
	EnvConfig         = "USERTIMER_CONFIG"
	EnvLogLevel       = "USERTIMER_LOG_LEVEL"
	EnvBackend        = "USERTIMER_BACKEND"
	EnvUnitDir        = "USERTIMER_UNIT_DIR"
	EnvCommandTimeout = "USERTIMER_COMMAND_TIMEOUT"
)

// Lookup reads one environment variable. os.LookupEnv in production.
type Lookup func(key string) (string, bool)

func lookupString(lookup Lookup, key, def string) string {
	if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

// ConfigDir returns $XDG_CONFIG_HOME/usertimer, or <home>/.config/usertimer.
func ConfigDir(lookup Lookup) (string, error) {
	if xdg := lookupString(lookup, "XDG_CONFIG_HOME", ""); xdg != "" && filepath.IsAbs(xdg) {
		return filepath.Join(xdg, "usertimer"), nil
	}
	home, err := homeDir(lookup)
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "usertimer"), nil
}

// DefaultConfigPath is the config file used when --config is not given.
func DefaultConfigPath(lookup Lookup) (string, error) {
	if p := lookupString(lookup, EnvConfig, ""); p != "" {
		return p, nil
	}
	dir, err := ConfigDir(lookup)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LoadDotEnv loads the given .env files into the process environment.
// Missing files are skipped; variables already set are never overridden.
// It returns the files that were actually loaded.
func LoadDotEnv(paths ...string) ([]string, error) {
	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		existing = append(existing, p)
	}
	if len(existing) == 0 {
		return nil, nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return nil, err
	}
	return existing, nil
}
