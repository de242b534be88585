package timer

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/coreos/go-systemd/v22/unit"
)

// ReferencedService returns the service a timer file activates: the [Timer]
// Unit= value when present, otherwise "{base}.service" (systemd's default).
// Unreadable or malformed input also yields the default.
//
// The result is always a bare file name so it can be joined onto the unit dir.
func ReferencedService(r io.Reader, base string) string {
	fallback := BaseName(base) + ServiceSuffix
	if r == nil {
		return fallback
	}
	opts, err := unit.DeserializeOptions(r)
	if err != nil {
		return fallback
	}
	ref := ""
	for _, opt := range opts {
		if opt.Section != "Timer" || opt.Name != "Unit" {
			continue
		}
		// later assignments win, as in systemd
		ref = stripInlineComment(opt.Value)
	}
	if ref == "" {
		return fallback
	}
	name := filepath.Base(ref)
	if name == "." || name == string(filepath.Separator) {
		return fallback
	}
	return name
}

func stripInlineComment(v string) string {
	if i := strings.IndexAny(v, "#;"); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}
