package platform

import "github.com/desktopqa/terminal-bdd/internal/model"

// Reader reads accessible trees from the OS accessibility service.
type Reader interface {
	// Applications returns the names of all applications registered with
	// the accessibility service.
	Applications() ([]string, error)

	// Tree returns the full accessible tree of the named application,
	// rooted at its "application" node. Parent links are set.
	Tree(app string) (*model.Node, error)
}

// Inputter simulates mouse and keyboard input.
type Inputter interface {
	Click(x, y int, button MouseButton) error
	MoveMouse(x, y int) error
	// KeyCombo presses a combination such as "<Ctrl><Shift><T>".
	KeyCombo(combo string) error
	// PressKey presses and releases a single named key ("Enter", "Esc", "Down").
	PressKey(key string) error
	TypeText(text string) error
}

// ValueSetter replaces the text content of an editable node.
type ValueSetter interface {
	SetText(ref string, text string) error
}

// Screenshotter captures the screen as PNG bytes, scaled by scale (0 < scale <= 1).
type Screenshotter interface {
	CaptureScreen(scale float64) ([]byte, error)
}

// Screen reports the desktop geometry.
type Screen interface {
	Resolution() (width, height int, err error)
}
