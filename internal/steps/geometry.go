package steps

import (
	"fmt"
	"time"

	"github.com/desktopqa/terminal-bdd/internal/model"
	"github.com/desktopqa/terminal-bdd/internal/platform"
)

// Relations accepted by "Terminal window is now".
const (
	Smaller             = "smaller"
	SmallerOrNotChanged = "smaller or not changed"
	Bigger              = "bigger"
	BackToOriginal      = "back to original"
)

func (s *Suite) geometrySteps() []Step {
	return []Step{
		{
			Pattern:  `^Window is (not )?fullscreen$`,
			Examples: []string{`Window is fullscreen`, `Window is not fullscreen`},
			Handler:  s.WindowIsFullscreen,
		},
		{
			Pattern:  `^Store terminal size$`,
			Examples: []string{`Store terminal size`},
			Handler:  s.StoreTerminalSize,
		},
		{
			Pattern:  `^Terminal window is now ` + q + `$`,
			Examples: []string{`Terminal window is now "smaller"`, `Terminal window is now "back to original"`},
			Handler:  s.TerminalWindowIsNow,
		},
		{
			Pattern:  `^Set terminal size to columns: ` + q + ` and rows: ` + q + `$`,
			Examples: []string{`Set terminal size to columns: "100" and rows: "30"`},
			Handler:  s.SetTerminalSize,
		},
	}
}

func (s *Suite) terminalFrame() (*model.Node, error) {
	return s.locate(Terminal, "terminal frame", func(root *model.Node) (*model.Node, error) {
		return root.Child("", "frame")
	})
}

// WindowIsFullscreen compares the frame with the screen resolution. The
// positive form also requires the frame to be top aligned.
func (s *Suite) WindowIsFullscreen(negation string) error {
	s.sleep(3 * time.Second)
	frame, err := s.terminalFrame()
	if err != nil {
		return err
	}
	w, h, err := s.sb.Resolution()
	if err != nil {
		return err
	}
	size := frame.Bounds.Size()
	full := size.Width == w && size.Height == h

	if negation != "" {
		if full {
			return fmt.Errorf("window is still in fullscreen mode")
		}
		return nil
	}
	if !full {
		return fmt.Errorf("\nWindow is not in fullscreen mode.\nExisting resolution='(%d, %d)'\n"+
			"X: Screen Size='%d' != Terminal Size='%d'.\nY: Screen Size='%d' != Terminal Size='%d'.",
			w, h, w, size.Width, h, size.Height)
	}
	if frame.Bounds.Y != 0 {
		return fmt.Errorf("fullscreen frame is not top aligned (y=%d)", frame.Bounds.Y)
	}
	return nil
}

// StoreTerminalSize remembers the terminal frame size for a later comparison.
func (s *Suite) StoreTerminalSize() error {
	s.sleep(time.Second)
	frame, err := s.terminalFrame()
	if err != nil {
		return err
	}
	size := frame.Bounds.Size()
	s.storedSize = &size
	return nil
}

// CompareSizes reports whether current relates to stored as relation,
// allowing for a title bar of offset pixels.
func CompareSizes(stored, current model.Size, relation string, offset int) (bool, error) {
	adjusted := current.Add(model.Size{Height: -offset})
	switch relation {
	case Smaller:
		return stored.Greater(adjusted), nil
	case SmallerOrNotChanged:
		return !stored.Less(adjusted), nil
	case Bigger:
		return stored.Less(adjusted), nil
	case BackToOriginal:
		return !stored.Less(current) ||
			stored == current.Add(model.Size{Height: offset}) ||
			stored == adjusted, nil
	}
	return false, fmt.Errorf("unknown size relation %q (expected %q, %q, %q or %q)",
		relation, Smaller, SmallerOrNotChanged, Bigger, BackToOriginal)
}

// TerminalWindowIsNow compares the frame size with the stored one.
func (s *Suite) TerminalWindowIsNow(relation string) error {
	if s.storedSize == nil {
		return fmt.Errorf("no terminal size stored; use \"Store terminal size\" first")
	}
	frame, err := s.terminalFrame()
	if err != nil {
		return err
	}
	current := frame.Bounds.Size()
	ok, err := CompareSizes(*s.storedSize, current, relation, s.opts.DecorationOffset)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("sizes do not correspond - %s\nExpected: '%s'\nCurrent:  '%s'", relation, s.storedSize, current)
	}
	return nil
}

// SetTerminalSize writes the column and row spin buttons in preferences
// and closes the window.
func (s *Suite) SetTerminalSize(columns, rows string) error {
	spin := model.RoleIs("spin button")
	for _, f := range []struct{ label, value string }{{"columns", columns}, {"rows", rows}} {
		field, err := s.locate(Preferences, f.label+" spin button", func(root *model.Node) (*model.Node, error) {
			return sizeField(root, f.label, spin)
		})
		if err != nil {
			return err
		}
		if err := s.clickNode(field, platform.MouseLeft); err != nil {
			return err
		}
		if err := s.setText(field, f.value); err != nil {
			return err
		}
		if err := s.input().PressKey("Enter"); err != nil {
			return err
		}
	}
	if err := s.ClosePreferences(); err != nil {
		return err
	}
	s.sleep(time.Second)
	return nil
}
