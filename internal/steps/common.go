package steps

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desktopqa/terminal-bdd/internal/model"
	"github.com/desktopqa/terminal-bdd/internal/platform"
)

func (s *Suite) commonSteps() []Step {
	return []Step{
		{
			Pattern:  `^Start application ` + q + ` via ` + q + `$`,
			Examples: []string{`Start application "terminal" via "command"`, `Start application "gedit" via "desktop file"`},
			Handler:  s.StartApplication,
		},
		{
			Pattern:  `^Application ` + q + ` is running$`,
			Examples: []string{`Application "preferences" is running`},
			Handler:  s.ApplicationIsRunning,
		},
		{
			Pattern:  `^Application ` + q + ` is no longer running$`,
			Examples: []string{`Application "terminal" is no longer running`},
			Handler:  s.ApplicationIsNotRunning,
		},
		{
			Pattern:  `^Close application ` + q + ` via ` + q + `$`,
			Examples: []string{`Close application "terminal" via "shortcut"`, `Close application "gedit" via "kill"`},
			Handler:  s.CloseApplication,
		},
		{
			Pattern:  `^Left click ` + q + ` ` + q + ` in ` + q + `$`,
			Examples: []string{`Left click "Preferences" "menu item" in "terminal"`},
			Handler:  s.LeftClick,
		},
		{
			Pattern:  `^Right click ` + q + ` ` + q + ` in ` + q + `$`,
			Examples: []string{`Right click "Terminal" "frame" in "terminal"`},
			Handler:  s.RightClick,
		},
		{
			Pattern:  `^Mouse over ` + q + ` ` + q + ` in ` + q + `$`,
			Examples: []string{`Mouse over "Change Profile" "menu" in "terminal"`},
			Handler:  s.MouseOver,
		},
		{
			Pattern: `^Item ` + q + ` ` + q + ` is (not )?` + q + ` in ` + q + `$`,
			Examples: []string{
				`Item "Show Menubar" "check menu item" is "checked" in "terminal"`,
				`Item "Unnamed" "label" is not "showing" in "preferences"`,
			},
			Handler: s.ItemState,
		},
		{
			Pattern:  `^Item ` + q + ` ` + q + ` has text ` + q + ` in ` + q + `$`,
			Examples: []string{`Item "Color Name" "text" has text "#000000" in "preferences"`},
			Handler:  s.ItemHasText,
		},
		{
			Pattern: `^Item ` + q + ` ` + q + ` does (not )?contain text ` + q + ` in ` + q + `$`,
			Examples: []string{
				`Item "Terminal" "terminal" does contain text "tab-1" in "terminal"`,
				`Item "Terminal" "terminal" does not contain text "error" in "terminal"`,
			},
			Handler: s.ItemContainsText,
		},
		{
			Pattern:  `^Type text: ` + q + `$`,
			Examples: []string{`Type text: "tab-1"`},
			Handler:  s.TypeText,
		},
		{
			Pattern:  `^Press key: ` + q + `$`,
			Examples: []string{`Press key: "Enter"`},
			Handler:  s.PressKey,
		},
		{
			Pattern:  `^Key combo: ` + q + `$`,
			Examples: []string{`Key combo: "<Ctrl><Shift><T>"`},
			Handler:  s.KeyCombo,
		},
		{
			Pattern:  `^Wait ` + q + ` seconds?$`,
			Examples: []string{`Wait "2" seconds`, `Wait "0.5" seconds`},
			Handler:  s.Wait,
		},
	}
}

// StartApplication launches the application by command or desktop file.
func (s *Suite) StartApplication(ctx context.Context, handle, method string) error {
	app, err := s.app(handle)
	if err != nil {
		return err
	}
	return app.Start(ctx, method)
}

// ApplicationIsRunning waits for the application to appear on the accessibility bus.
func (s *Suite) ApplicationIsRunning(handle string) error {
	app, err := s.app(handle)
	if err != nil {
		return err
	}
	return app.WaitRunning()
}

// ApplicationIsNotRunning waits for the application to leave the accessibility bus.
func (s *Suite) ApplicationIsNotRunning(handle string) error {
	app, err := s.app(handle)
	if err != nil {
		return err
	}
	return app.WaitGone()
}

// CloseApplication closes the application by shortcut or kill.
func (s *Suite) CloseApplication(ctx context.Context, handle, method string) error {
	app, err := s.app(handle)
	if err != nil {
		return err
	}
	return app.Close(ctx, method)
}

// LeftClick clicks the first showing name/role match.
func (s *Suite) LeftClick(name, role, handle string) error {
	return s.clickItem(name, role, handle, platform.MouseLeft)
}

// RightClick opens the context menu of the first showing name/role match.
func (s *Suite) RightClick(name, role, handle string) error {
	return s.clickItem(name, role, handle, platform.MouseRight)
}

func (s *Suite) clickItem(name, role, handle string, button platform.MouseButton) error {
	n, err := s.item(handle, name, role)
	if err != nil {
		return err
	}
	return s.clickNode(n, button)
}

// MouseOver moves the pointer to the centre of the match.
func (s *Suite) MouseOver(name, role, handle string) error {
	n, err := s.item(handle, name, role)
	if err != nil {
		return err
	}
	x, y := n.Bounds.Center()
	return s.input().MoveMouse(x, y)
}

// ItemState asserts that some name/role match has the state, or with
// negation that none has it. A missing node satisfies the negated form.
func (s *Suite) ItemState(name, role, negation, state, handle string) error {
	negate := negation != ""
	if _, err := (&model.Node{}).State(state); err != nil {
		return err
	}
	label := fmt.Sprintf("[%s | %s] %sbeing %s", name, role, negation, state)
	return s.policy(loopState, s.opts.FindAttempts).Until(label, func() (bool, string) {
		root, err := s.instance(handle)
		if err != nil {
			return false, err.Error()
		}
		p := model.Named(name, role)
		withState := root.CountMatching(model.All(p, func(n *model.Node) bool {
			v, _ := n.State(state)
			return v
		}))
		if negate {
			return withState == 0, fmt.Sprintf("expected [%s | %s] not %s in %s, found:\n%s",
				name, role, state, handle, model.Describe(root, p, 5))
		}
		return withState > 0, fmt.Sprintf("expected [%s | %s] %s in %s, found:\n%s",
			name, role, state, handle, model.Describe(root, p, 5))
	})
}

// ItemHasText waits until the match has exactly text.
func (s *Suite) ItemHasText(name, role, text, handle string) error {
	return s.policy(loopText, s.opts.FindAttempts).Until("text of ["+name+" | "+role+"]", func() (bool, string) {
		root, err := s.instance(handle)
		if err != nil {
			return false, err.Error()
		}
		n, err := firstShowing(root, model.Named(name, role), name, role)
		if err != nil {
			return false, err.Error()
		}
		return n.Text == text, fmt.Sprintf("expected text %q, actual %q", text, n.Text)
	})
}

// ItemContainsText waits until the text of the match contains text, or with
// negation does not.
func (s *Suite) ItemContainsText(name, role, negation, text, handle string) error {
	negate := negation != ""
	return s.policy(loopText, s.opts.FindAttempts).Until("text of ["+name+" | "+role+"]", func() (bool, string) {
		root, err := s.instance(handle)
		if err != nil {
			return false, err.Error()
		}
		n, err := firstShowing(root, model.Named(name, role), name, role)
		if err != nil {
			return false, err.Error()
		}
		if negate {
			return !strings.Contains(n.Text, text), fmt.Sprintf("expected %q not to be in %q", text, n.Text)
		}
		return strings.Contains(n.Text, text), fmt.Sprintf("expected %q in %q", text, n.Text)
	})
}

// TypeText types text into the focused widget.
func (s *Suite) TypeText(text string) error { return s.input().TypeText(text) }

// PressKey presses and releases one key.
func (s *Suite) PressKey(key string) error { return s.input().PressKey(key) }

// KeyCombo presses a combination such as <Ctrl><Shift><T>.
func (s *Suite) KeyCombo(combo string) error { return s.input().KeyCombo(combo) }

// Wait pauses for a possibly fractional number of seconds.
func (s *Suite) Wait(seconds string) error {
	n, err := strconv.ParseFloat(seconds, 64)
	if err != nil || n < 0 {
		return fmt.Errorf("invalid number of seconds %q", seconds)
	}
	s.sleep(time.Duration(n * float64(time.Second)))
	return nil
}
