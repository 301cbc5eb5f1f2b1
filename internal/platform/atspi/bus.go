//go:build linux

package atspi

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	registryBus  = "org.a11y.atspi.Registry"
	rootPath     = dbus.ObjectPath("/org/a11y/atspi/accessible/root")
	decPath      = dbus.ObjectPath("/org/a11y/atspi/registry/deviceeventcontroller")
	ifAccessible = "org.a11y.atspi.Accessible"
	ifComponent  = "org.a11y.atspi.Component"
	ifText       = "org.a11y.atspi.Text"
	ifEditable   = "org.a11y.atspi.EditableText"
	ifDEC        = "org.a11y.atspi.DeviceEventController"
)

// objectRef is the (bus name, object path) pair AT-SPI uses to address
// accessible objects.
type objectRef struct {
	Name string
	Path dbus.ObjectPath
}

func (r objectRef) String() string {
	return r.Name + string(r.Path)
}

// parseRef reverses objectRef.String.
func parseRef(s string) (objectRef, error) {
	i := strings.Index(s, "/")
	if i <= 0 {
		return objectRef{}, fmt.Errorf("invalid accessible ref %q", s)
	}
	return objectRef{Name: s[:i], Path: dbus.ObjectPath(s[i:])}, nil
}

// connectA11yBus asks the session bus for the accessibility bus address
// and opens a private connection to it.
func connectA11yBus() (*dbus.Conn, error) {
	session, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	var addr string
	err = session.Object("org.a11y.Bus", "/org/a11y/bus").
		Call("org.a11y.Bus.GetAddress", 0).Store(&addr)
	if err != nil {
		return nil, fmt.Errorf("query a11y bus address: %w", err)
	}
	conn, err := dbus.Connect(addr)
	if err != nil {
		return nil, fmt.Errorf("connect a11y bus %s: %w", addr, err)
	}
	return conn, nil
}

func (r objectRef) object(conn *dbus.Conn) dbus.BusObject {
	return conn.Object(r.Name, r.Path)
}
