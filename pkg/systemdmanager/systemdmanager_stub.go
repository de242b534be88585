//go:build !linux

package systemdmanager

import (
	"context"

	logx "usertimer/pkg/logx"
)

type Manager struct{}

// NewUserManagerContext always fails with a *ConnectError wrapping ErrUnsupported.
func NewUserManagerContext(ctx context.Context, log logx.Logger) (*Manager, error) {
	return nil, &ConnectError{Err: ErrUnsupported}
}

func (m *Manager) Close() error                                   { return nil }
func (m *Manager) Reload(ctx context.Context) error               { return ErrUnsupported }
func (m *Manager) Enable(ctx context.Context, unit string) error  { return ErrUnsupported }
func (m *Manager) Disable(ctx context.Context, unit string) error { return ErrUnsupported }
func (m *Manager) Start(ctx context.Context, unit string) error   { return ErrUnsupported }
func (m *Manager) Stop(ctx context.Context, unit string) error    { return ErrUnsupported }
func (m *Manager) Status(ctx context.Context, unit string) (string, error) {
	return "", ErrUnsupported
}
func (m *Manager) List(ctx context.Context) (string, error) { return "", ErrUnsupported }

func (m *Manager) TimerStatusContext(ctx context.Context, unit string) (*TimerStatus, error) {
	return nil, ErrUnsupported
}

func (m *Manager) ListTimersContext(ctx context.Context) ([]TimerStatus, error) {
	return nil, ErrUnsupported
}
