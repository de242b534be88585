//go:build linux

package systemdmanager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/dbus"

	logx "usertimer/pkg/logx"
)

// Manager drives the systemd user manager over D-Bus.
type Manager struct {
	mu   sync.RWMutex
	conn *dbus.Conn
	log  logx.Logger
	now  func() time.Time
}

// NewUserManagerContext connects to the calling user's systemd instance.
// If ctx is nil, context.Background() is used.
func NewUserManagerContext(ctx context.Context, log logx.Logger) (*Manager, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	conn, err := dbus.NewUserConnectionContext(ctx)
	if err != nil {
		return nil, &ConnectError{Err: err}
	}
	return &Manager{conn: conn, log: log, now: time.Now}, nil
}

// Close closes the systemd connection.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	return nil
}

func (m *Manager) connection() (*dbus.Conn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.conn == nil {
		return nil, ErrClosed
	}
	return m.conn, nil
}

// waitJob queues a job and blocks until systemd reports its result.
func waitJob(ctx context.Context, action, unit string, queue func(ch chan<- string) (int, error)) error {
	ch := make(chan string, 1)
	if _, err := queue(ch); err != nil {
		return fmt.Errorf("failed to %s %s: %w", action, unit, err)
	}
	select {
	case res := <-ch:
		if res != "done" {
			return fmt.Errorf("failed to %s %s: job %s", action, unit, res)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to %s %s: %w", action, unit, ctx.Err())
	}
}

func (m *Manager) Reload(ctx context.Context) error {
	conn, err := m.connection()
	if err != nil {
		return err
	}
	m.log.Debug("Equivalent command: systemctl --user daemon-reload")
	if err := conn.ReloadContext(ctx); err != nil {
		return fmt.Errorf("failed to reload systemd user manager: %w", err)
	}
	return nil
}

// Enable links the unit into its install target and starts it.
func (m *Manager) Enable(ctx context.Context, unit string) error {
	conn, err := m.connection()
	if err != nil {
		return err
	}
	m.log.Debug("Equivalent command: systemctl --user enable --now " + unit)
	if _, _, err := conn.EnableUnitFilesContext(ctx, []string{unit}, false, true); err != nil {
		return fmt.Errorf("failed to enable %s: %w", unit, err)
	}
	if err := conn.ReloadContext(ctx); err != nil {
		return fmt.Errorf("enabled %s but failed to reload systemd user manager: %w", unit, err)
	}
	return waitJob(ctx, "start", unit, func(ch chan<- string) (int, error) {
		return conn.StartUnitContext(ctx, unit, "replace", ch)
	})
}

// Disable stops the unit and removes its install links.
func (m *Manager) Disable(ctx context.Context, unit string) error {
	conn, err := m.connection()
	if err != nil {
		return err
	}
	m.log.Debug("Equivalent command: systemctl --user disable --now " + unit)
	if _, err := conn.DisableUnitFilesContext(ctx, []string{unit}, false); err != nil {
		return fmt.Errorf("failed to disable %s: %w", unit, err)
	}
	if err := conn.ReloadContext(ctx); err != nil {
		return fmt.Errorf("disabled %s but failed to reload systemd user manager: %w", unit, err)
	}
	return waitJob(ctx, "stop", unit, func(ch chan<- string) (int, error) {
		return conn.StopUnitContext(ctx, unit, "replace", ch)
	})
}

func (m *Manager) Start(ctx context.Context, unit string) error {
	conn, err := m.connection()
	if err != nil {
		return err
	}
	m.log.Debug("Equivalent command: systemctl --user start " + unit)
	return waitJob(ctx, "start", unit, func(ch chan<- string) (int, error) {
		return conn.StartUnitContext(ctx, unit, "replace", ch)
	})
}

func (m *Manager) Stop(ctx context.Context, unit string) error {
	conn, err := m.connection()
	if err != nil {
		return err
	}
	m.log.Debug("Equivalent command: systemctl --user stop " + unit)
	return waitJob(ctx, "stop", unit, func(ch chan<- string) (int, error) {
		return conn.StopUnitContext(ctx, unit, "replace", ch)
	})
}

// TimerStatusContext reads unit and Timer properties of one timer.
func (m *Manager) TimerStatusContext(ctx context.Context, unit string) (*TimerStatus, error) {
	conn, err := m.connection()
	if err != nil {
		return nil, err
	}
	props, err := conn.GetUnitPropertiesContext(ctx, unit)
	if err != nil {
		if isNoSuchUnitErr(err) {
			return &TimerStatus{Name: unit, LoadState: "not-found"}, nil
		}
		return nil, fmt.Errorf("failed to get status for %s: %w", unit, err)
	}
	if ls, _ := getStringProperty(props, "LoadState"); ls == "not-found" {
		st := timerStatusFromProps(unit, props, nil)
		return &st, nil
	}
	timerProps, err := conn.GetUnitTypePropertiesContext(ctx, unit, "Timer")
	if err != nil {
		m.log.Debug("timer properties unavailable", logx.String("unit", unit), logx.Err(err))
		timerProps = nil
	}
	st := timerStatusFromProps(unit, props, timerProps)
	return &st, nil
}

// Status returns a human readable report; a unit unknown to the manager is an error.
func (m *Manager) Status(ctx context.Context, unit string) (string, error) {
	m.log.Debug("Equivalent command: systemctl --user status " + unit)
	st, err := m.TimerStatusContext(ctx, unit)
	if err != nil {
		return "", err
	}
	out := FormatTimerDetail(*st, m.now())
	if st.NotFound() {
		return out, fmt.Errorf("unit %s could not be found", unit)
	}
	return out, nil
}

// ListTimersContext returns every timer unit currently loaded by the user manager.
func (m *Manager) ListTimersContext(ctx context.Context) ([]TimerStatus, error) {
	conn, err := m.connection()
	if err != nil {
		return nil, err
	}
	units, err := conn.ListUnitsByPatternsContext(ctx, nil, []string{"*.timer"})
	if err != nil {
		return nil, fmt.Errorf("failed to list timers: %w", err)
	}
	out := make([]TimerStatus, 0, len(units))
	for _, u := range units {
		st := TimerStatus{
			Name:        u.Name,
			Description: u.Description,
			LoadState:   u.LoadState,
			ActiveState: u.ActiveState,
			SubState:    u.SubState,
		}
		if timerProps, err := conn.GetUnitTypePropertiesContext(ctx, u.Name, "Timer"); err == nil {
			full := timerStatusFromProps(u.Name, nil, timerProps)
			st.Activates = full.Activates
			st.Calendars = full.Calendars
			st.Persistent = full.Persistent
			st.NextElapse = full.NextElapse
			st.LastTrigger = full.LastTrigger
		}
		out = append(out, st)
	}
	return out, nil
}

func (m *Manager) List(ctx context.Context) (string, error) {
	m.log.Debug("Equivalent command: systemctl --user list-timers --all")
	list, err := m.ListTimersContext(ctx)
	if err != nil {
		return "", err
	}
	return FormatTimerTable(list, m.now()), nil
}
