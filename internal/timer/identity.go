package timer

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	shellquote "github.com/kballard/go-shellquote"
)

const (
	TimerSuffix   = ".timer"
	ServiceSuffix = ".service"
)

// CommandName returns the first token of a command line, honoring shell quoting
// so "/opt/my tools/run.sh" --flag yields "/opt/my tools/run.sh".
// Unbalanced quotes fall back to plain whitespace splitting.
func CommandName(executable string) string {
	words, err := shellquote.Split(executable)
	if err != nil || len(words) == 0 {
		words = strings.Fields(executable)
	}
	if len(words) == 0 {
		return ""
	}
	return words[0]
}

// BaseName strips every trailing ".timer" suffix, so "foo.timer.timer" is "foo".
func BaseName(name string) string {
	n := strings.TrimSpace(name)
	for strings.HasSuffix(n, TimerSuffix) {
		n = strings.TrimSuffix(n, TimerSuffix)
	}
	return n
}

// maxNameLen leaves room for the ".service" suffix within systemd's 255 byte limit.
const maxNameLen = 255 - len(ServiceSuffix)

// CheckName reports whether base can name both unit files: no path
// components, and only the characters systemd accepts in unit names
// (ASCII letters, digits and ":-_.\@").
func CheckName(base string) error {
	switch {
	case base == "":
		return errors.New("empty name")
	case base == "." || base == "..":
		return fmt.Errorf("%q is not a file name", base)
	case len(base) > maxNameLen:
		return fmt.Errorf("name longer than %d bytes", maxNameLen)
	}
	for _, r := range base {
		if r == '/' {
			return errors.New("name must not contain '/'")
		}
		if !unitNameRune(r) {
			return fmt.Errorf("character %q not allowed in unit names", r)
		}
	}
	return nil
}

func unitNameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune(":-_.\\@", r)
}

// CanonicalTimer returns the timer unit name for name, appending ".timer"
// only when it is missing.
func CanonicalTimer(name string) string {
	return BaseName(name) + TimerSuffix
}

// ResolveName returns the base identifier shared by the .service and .timer files.
//
// An explicit name is used as given minus a trailing ".timer". Otherwise the
// name is derived from the command: directories and one extension are dropped
// and remaining dots become underscores ("~/bin/backup.sh" -> "backup_sh").
func ResolveName(executable string, explicit *string) string {
	if explicit != nil && strings.TrimSpace(*explicit) != "" {
		return BaseName(*explicit)
	}
	return deriveName(executable)
}

func deriveName(executable string) string {
	cmd := CommandName(executable)
	base := filepath.Base(cmd)
	if base == "." || base == string(filepath.Separator) {
		base = cmd
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		// dotfiles like ".backup" have no extension to strip
		stem = base
	}
	return strings.ReplaceAll(stem, ".", "_")
}

// ResolveDescription passes an explicit description through, else "Execute {executable}".
func ResolveDescription(executable string, explicit *string) string {
	if explicit != nil && strings.TrimSpace(*explicit) != "" {
		return *explicit
	}
	return "Execute " + executable
}
