//go:build linux

package atspi

import (
	"fmt"

	"github.com/desktopqa/terminal-bdd/internal/platform"
	"github.com/godbus/dbus/v5"
)

func init() {
	platform.NewProviderFunc = func() (*platform.Provider, error) {
		a11y, err := connectA11yBus()
		if err != nil {
			return nil, err
		}
		session, err := dbus.SessionBus()
		if err != nil {
			a11y.Close()
			return nil, fmt.Errorf("connect session bus: %w", err)
		}
		shot := NewScreenshotter(session)
		return &platform.Provider{
			Reader:        NewReader(a11y),
			Inputter:      NewInputter(a11y),
			ValueSetter:   NewValueSetter(a11y),
			Screenshotter: shot,
			Screen:        shot,
			Close:         a11y.Close,
		}, nil
	}
}
