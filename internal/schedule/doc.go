// Package schedule turns user schedule input into an OnCalendar= expression.
//
// systemd calendar syntax is the native form and is not interpreted here; the
// external validator (systemd-analyze) remains the authority. Crontab lines are
// accepted behind a "cron:" prefix and translated with robfig/cron.
package schedule
