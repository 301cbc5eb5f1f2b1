//go:build linux

package atspi

import (
	"fmt"
	"time"

	"github.com/desktopqa/terminal-bdd/internal/platform"
	"github.com/godbus/dbus/v5"
)

// AtspiKeySynthType values.
const (
	keySym             = 3
	keyString          = 4
	keyLockModifiers   = 5
	keyUnlockModifiers = 6
)

// inputDelay separates synthesized events so GTK sees them in order.
const inputDelay = 50 * time.Millisecond

// Inputter implements platform.Inputter through the AT-SPI
// DeviceEventController.
type Inputter struct {
	conn *dbus.Conn
}

// NewInputter creates an inputter on an open a11y bus connection.
func NewInputter(conn *dbus.Conn) *Inputter {
	return &Inputter{conn: conn}
}

func (in *Inputter) dec() dbus.BusObject {
	return in.conn.Object(registryBus, decPath)
}

func (in *Inputter) mouse(x, y int, event string) error {
	call := in.dec().Call(ifDEC+".GenerateMouseEvent", 0, int32(x), int32(y), event)
	if call.Err != nil {
		return fmt.Errorf("mouse event %s at (%d, %d): %w", event, x, y, call.Err)
	}
	return nil
}

func (in *Inputter) key(code uint32, str string, synth uint32) error {
	call := in.dec().Call(ifDEC+".GenerateKeyboardEvent", 0, int32(code), str, synth)
	if call.Err != nil {
		return fmt.Errorf("keyboard event: %w", call.Err)
	}
	return nil
}

func (in *Inputter) Click(x, y int, button platform.MouseButton) error {
	if err := in.mouse(x, y, "abs"); err != nil {
		return err
	}
	time.Sleep(inputDelay)
	return in.mouse(x, y, fmt.Sprintf("b%dc", button.Number()))
}

func (in *Inputter) MoveMouse(x, y int) error {
	return in.mouse(x, y, "abs")
}

func (in *Inputter) PressKey(key string) error {
	ks, err := keysym(platform.CanonicalKey(key))
	if err != nil {
		return err
	}
	return in.key(ks, "", keySym)
}

func (in *Inputter) KeyCombo(combo string) error {
	mask, ks, err := comboKeysyms(combo)
	if err != nil {
		return err
	}
	if mask != 0 {
		if err := in.key(mask, "", keyLockModifiers); err != nil {
			return err
		}
		time.Sleep(inputDelay)
	}
	keyErr := in.key(ks, "", keySym)
	if mask != 0 {
		time.Sleep(inputDelay)
		if err := in.key(mask, "", keyUnlockModifiers); err != nil && keyErr == nil {
			keyErr = err
		}
	}
	return keyErr
}

func (in *Inputter) TypeText(text string) error {
	for _, r := range text {
		var err error
		if r == '\n' {
			err = in.key(namedKeysyms["Return"], "", keySym)
		} else {
			err = in.key(0, string(r), keyString)
		}
		if err != nil {
			return fmt.Errorf("type %q: %w", text, err)
		}
		time.Sleep(inputDelay / 5)
	}
	return nil
}
