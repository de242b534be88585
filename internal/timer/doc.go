// Package timer models one user scheduled task and renders it into the two
// systemd unit files that represent it on disk:
//
//	<dir>/<name>.service  oneshot unit running the command
//	<dir>/<name>.timer    OnCalendar= trigger activating the service
//
// Everything here is pure: no filesystem or process access.
package timer
