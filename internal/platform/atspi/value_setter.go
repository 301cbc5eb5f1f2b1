//go:build linux

package atspi

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

// ValueSetter implements platform.ValueSetter via the EditableText interface.
type ValueSetter struct {
	conn *dbus.Conn
}

// NewValueSetter creates a value setter on an open a11y bus connection.
func NewValueSetter(conn *dbus.Conn) *ValueSetter {
	return &ValueSetter{conn: conn}
}

func (s *ValueSetter) SetText(ref string, text string) error {
	r, err := parseRef(ref)
	if err != nil {
		return err
	}
	var ok bool
	if err := r.object(s.conn).Call(ifEditable+".SetTextContents", 0, text).Store(&ok); err != nil {
		return fmt.Errorf("set text of %s: %w", ref, err)
	}
	if !ok {
		return fmt.Errorf("set text of %s: object refused the new contents", ref)
	}
	return nil
}
