package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Kind describes where a calendar expression came from.
type Kind int

const (
	// KindCalendar is passed through verbatim to the external validator.
	KindCalendar Kind = iota
	// KindCron was translated from a cron expression.
	KindCron
)

// Parsed is a schedule ready to be written as OnCalendar=.
type Parsed struct {
	Kind     Kind
	Calendar string
	Source   string // the raw input
}

// Same field set as a crontab line, plus @daily-style descriptors and CRON_TZ=.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Parse normalizes a user schedule.
//
// Supported forms:
//   - systemd calendar expressions: "daily", "Mon *-*-* 09:00:00" (passed through)
//   - "cron:" prefixed crontab lines: "cron:30 2 * * 1-5", "cron:@weekly"
//   - "calendar:" prefix forces pass-through
//
// Only cron input is interpreted here; calendar syntax is left to systemd-analyze.
func Parse(raw string) (Parsed, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Parsed{}, fmt.Errorf("schedule required")
	}

	low := strings.ToLower(s)
	switch {
	case strings.HasPrefix(low, "cron:"):
		expr := strings.TrimSpace(s[len("cron:"):])
		if expr == "" {
			return Parsed{}, fmt.Errorf("cron schedule required after 'cron:'")
		}
		cal, err := FromCron(expr)
		if err != nil {
			return Parsed{}, err
		}
		return Parsed{Kind: KindCron, Calendar: cal, Source: raw}, nil
	case strings.HasPrefix(low, "calendar:"):
		expr := strings.TrimSpace(s[len("calendar:"):])
		if expr == "" {
			return Parsed{}, fmt.Errorf("calendar schedule required after 'calendar:'")
		}
		return Parsed{Kind: KindCalendar, Calendar: expr, Source: raw}, nil
	}
	return Parsed{Kind: KindCalendar, Calendar: s, Source: raw}, nil
}

// FromCron translates a crontab expression into an OnCalendar= expression.
//
// Cron ORs day-of-month and day-of-week when both are restricted while systemd
// ANDs them, so that combination is rejected. "@every" has no calendar form.
func FromCron(expr string) (string, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return "", fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	spec, ok := sched.(*cron.SpecSchedule)
	if !ok {
		return "", fmt.Errorf("cron expression %q is an interval, not a calendar", expr)
	}

	domAll := isAll(spec.Dom, 1, 31)
	dowAll := isAll(spec.Dow, 0, 6)
	if !domAll && !dowAll {
		return "", fmt.Errorf("cron expression %q restricts both day-of-month and day-of-week; systemd cannot express cron's OR semantics", expr)
	}

	var b strings.Builder
	if !dowAll {
		b.WriteString(joinBits(spec.Dow, 0, 6, func(v int) string { return weekdays[v] }))
		b.WriteByte(' ')
	}
	b.WriteString("*-")
	b.WriteString(field(spec.Month, 1, 12))
	b.WriteByte('-')
	b.WriteString(field(spec.Dom, 1, 31))
	b.WriteByte(' ')
	b.WriteString(field(spec.Hour, 0, 23))
	b.WriteByte(':')
	b.WriteString(field(spec.Minute, 0, 59))
	b.WriteByte(':')
	b.WriteString(field(spec.Second, 0, 59))

	if spec.Location != nil && spec.Location != time.Local {
		b.WriteByte(' ')
		b.WriteString(spec.Location.String())
	}
	return b.String(), nil
}

var weekdays = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

const starBit = 1 << 63

func isAll(bits uint64, min, max int) bool {
	if bits&starBit != 0 {
		return true
	}
	for v := min; v <= max; v++ {
		if bits&(1<<uint(v)) == 0 {
			return false
		}
	}
	return true
}

func field(bits uint64, min, max int) string {
	if isAll(bits, min, max) {
		return "*"
	}
	return joinBits(bits, min, max, func(v int) string {
		if v < 10 {
			return "0" + strconv.Itoa(v)
		}
		return strconv.Itoa(v)
	})
}

func joinBits(bits uint64, min, max int, format func(int) string) string {
	parts := make([]string, 0, max-min+1)
	for v := min; v <= max; v++ {
		if bits&(1<<uint(v)) != 0 {
			parts = append(parts, format(v))
		}
	}
	return strings.Join(parts, ",")
}
