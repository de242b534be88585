package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	logx "usertimer/pkg/logx"
)

type ConfigManager struct {
	path string
	// optional: a missing file yields an empty Config instead of an error.
	optional bool

	log logx.Logger
}

// NewConfigManager reads path. When optional is true a missing file is not an
// error (used for the default location).
func NewConfigManager(path string, optional bool) *ConfigManager {
	return &ConfigManager{path: strings.TrimSpace(path), optional: optional}
}

func (m *ConfigManager) SetLogger(log logx.Logger) { m.log = log }

// Load decodes the file strictly: unknown keys and trailing data are rejected.
func (m *ConfigManager) Load() (*Config, error) {
	if m.path == "" {
		return &Config{}, nil
	}
	b, err := os.ReadFile(m.path)
	if err != nil {
		if m.optional && errors.Is(err, fs.ErrNotExist) {
			if !m.log.IsZero() {
				m.log.Debug("config file not found; using defaults", logx.String("path", m.path))
			}
			return &Config{}, nil
		}
		return nil, fmt.Errorf("read config %s: %w", m.path, err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return &Config{}, nil
	}
	jb, format, err := coerceToJSONBytes(m.path, b)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", m.path, err)
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config %s (%s): %w", m.path, format, err)
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("config %s: trailing data", m.path)
		}
		return nil, fmt.Errorf("config %s: %w", m.path, err)
	}
	if !m.log.IsZero() {
		m.log.Debug("config loaded", logx.String("path", m.path), logx.String("format", format))
	}
	return &cfg, nil
}
