package steps

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desktopqa/terminal-bdd/internal/model"
	"github.com/desktopqa/terminal-bdd/internal/platform"
)

const inspectorKey = "/org/gtk/settings/debug/enable-inspector-keybinding"

func (s *Suite) terminalSteps() []Step {
	return []Step{
		{
			Pattern:  `^Make sure window is focused for wayland testing$`,
			Examples: []string{`Make sure window is focused for wayland testing`},
			Handler:  s.FocusWindowForWayland,
		},
		{
			Pattern:  `^Make sure Menubar is showing$`,
			Examples: []string{`Make sure Menubar is showing`},
			Handler:  s.EnsureMenubar,
		},
		{
			Pattern:  `^Expand Change profile menu$`,
			Examples: []string{`Expand Change profile menu`},
			Handler:  s.ExpandChangeProfileMenu,
		},
		{
			Pattern:  `^Execute in terminal: ` + q + `$`,
			Examples: []string{`Execute in terminal: "echo hello"`},
			Handler:  s.ExecuteInTerminal,
		},
		{
			Pattern:  `^Change color to: ` + q + `$`,
			Examples: []string{`Change color to: "#ff0000"`},
			Handler:  s.ChangeColorTo,
		},
		{
			Pattern:  `^Reset settings$`,
			Examples: []string{`Reset settings`},
			Handler:  s.ResetSettings,
		},
		{
			Pattern:  `^Profile named ` + q + ` is selected as default$`,
			Examples: []string{`Profile named "Unnamed" is selected as default`},
			Handler:  s.ProfileIsDefault,
		},
		{
			Pattern:  `^Profile named ` + q + ` is not selected as default$`,
			Examples: []string{`Profile named "test" is not selected as default`},
			Handler:  s.ProfileIsNotDefault,
		},
		{
			Pattern:  `^Profile named ` + q + ` is showing$`,
			Examples: []string{`Profile named "test" is showing`},
			Handler:  s.ProfileIsShowing,
		},
		{
			Pattern:  `^Profile named ` + q + ` is not showing$`,
			Examples: []string{`Profile named "test" is not showing`},
			Handler:  s.ProfileIsNotShowing,
		},
		{
			Pattern:  `^Terminal contains string ` + q + `$`,
			Examples: []string{`Terminal contains string "hello"`},
			Handler:  s.TerminalContains,
		},
		{
			Pattern:  `^Terminal does not contain string ` + q + `$`,
			Examples: []string{`Terminal does not contain string "hello"`},
			Handler:  s.TerminalDoesNotContain,
		},
		{
			Pattern:  `^Terminal output is empty$`,
			Examples: []string{`Terminal output is empty`},
			Handler:  s.TerminalOutputIsEmpty,
		},
		{
			Pattern:  `^Terminal has "(\d+)" windows?$`,
			Examples: []string{`Terminal has "2" windows`, `Terminal has "1" window`},
			Handler:  s.TerminalHasWindows,
		},
		{
			Pattern:  `^Terminal has "(\d+)" tabs?$`,
			Examples: []string{`Terminal has "2" tabs`},
			Handler:  s.TerminalHasTabs,
		},
		{
			Pattern:  `^Enable GTK inspector$`,
			Examples: []string{`Enable GTK inspector`},
			Handler:  s.EnableGTKInspector,
		},
		{
			Pattern:  `^Find ` + q + `$`,
			Examples: []string{`Find "hello"`},
			Handler:  s.Find,
		},
		{
			Pattern:  `^Prepare two Tabs for testing$`,
			Examples: []string{`Prepare two Tabs for testing`},
			Handler:  s.PrepareTwoTabs,
		},
		{
			Pattern:  `^Tab ` + q + ` was targeted and contains string ` + q + `$`,
			Examples: []string{`Tab "tab-1" was targeted and contains string "tab-1"`},
			Handler:  s.TabContains,
		},
	}
}

// FocusWindowForWayland waits for the window to settle and, on Wayland,
// clicks the first top-level child so it receives input.
func (s *Suite) FocusWindowForWayland() error {
	s.sleep(2 * time.Second)
	if s.sb.SessionType() != "wayland" {
		return nil
	}
	first, err := s.locate(Terminal, "first window", func(root *model.Node) (*model.Node, error) {
		return root.ChildAt(0)
	})
	if err != nil {
		return err
	}
	return s.clickNode(first, platform.MouseLeft)
}

// EnsureMenubar re-enables a hidden menu bar through the frame's context
// menu, up to 10 times.
func (s *Suite) EnsureMenubar() error {
	return s.policy(loopMenubar, 10).Do("menu bar showing", func(int) error {
		root, err := s.instance(Terminal)
		if err != nil {
			return err
		}
		menubar, err := root.Child("", "menu bar")
		if err != nil {
			return err
		}
		if menubar.States.Showing && menubar.States.Visible {
			return nil
		}
		frame, err := root.Child("", "frame")
		if err != nil {
			return err
		}
		s.sleep(time.Second)
		if err := s.clickNode(frame, platform.MouseRight); err != nil {
			return err
		}
		if err := s.clickOnce(Terminal, "Show Menubar", "check menu item", platform.MouseLeft); err != nil {
			if kerr := s.input().PressKey("Esc"); kerr != nil {
				return errors.Join(err, kerr)
			}
		}
		return errors.New("menu bar is not showing")
	})
}

// clickOnce clicks a showing match without polling.
func (s *Suite) clickOnce(handle, name, role string, button platform.MouseButton) error {
	root, err := s.instance(handle)
	if err != nil {
		return err
	}
	n, err := root.FindChild(model.All(model.Named(name, role), model.Showing))
	if err != nil {
		return fmt.Errorf("%w: [%s | %s] showing in %s", err, name, role, handle)
	}
	return s.clickNode(n, button)
}

// ExpandChangeProfileMenu opens the submenu by hovering on X11 and by
// clicking on Wayland.
func (s *Suite) ExpandChangeProfileMenu() error {
	if s.sb.SessionType() == "x11" {
		return s.MouseOver("Change Profile", "menu", Terminal)
	}
	return s.LeftClick("Change Profile", "menu", Terminal)
}

// ExecuteInTerminal types command and presses Enter.
func (s *Suite) ExecuteInTerminal(command string) error {
	if err := s.input().TypeText(command); err != nil {
		return err
	}
	return s.input().PressKey("Enter")
}

// ChangeColorTo replaces the colour name in the chooser with hex.
func (s *Suite) ChangeColorTo(hex string) error {
	field, err := s.item(Terminal, "Color Name", "text")
	if err != nil {
		return err
	}
	if err := s.clickNode(field, platform.MouseLeft); err != nil {
		return err
	}
	if err := s.input().KeyCombo("<Ctrl><A>"); err != nil {
		return err
	}
	return s.input().TypeText(hex)
}

// ResetSettings clicks every showing Reset button and closes preferences.
func (s *Suite) ResetSettings() error {
	root, err := s.tree(Terminal)
	if err != nil {
		return err
	}
	buttons := root.FindChildren(model.All(model.Named("Reset", "push button"), model.Showing))
	for _, b := range buttons {
		if err := s.clickNode(b, platform.MouseLeft); err != nil {
			return err
		}
	}
	return s.ClosePreferences()
}

// inProfileMenu opens Terminal > Change Profile, runs check and closes the
// menu with Escape.
func (s *Suite) inProfileMenu(check func() error) error {
	if err := s.LeftClick("Terminal", "menu", Terminal); err != nil {
		return err
	}
	if err := s.LeftClick("Change Profile", "menu", Terminal); err != nil {
		return err
	}
	if err := check(); err != nil {
		return err
	}
	return s.input().PressKey("Esc")
}

// ProfileIsDefault checks the profile is the selected item of Change Profile.
func (s *Suite) ProfileIsDefault(profile string) error {
	return s.inProfileMenu(func() error {
		return s.ItemState(profile, "radio menu item", "", "checked", Terminal)
	})
}

// ProfileIsNotDefault checks the profile is not selected in Change Profile.
func (s *Suite) ProfileIsNotDefault(profile string) error {
	return s.inProfileMenu(func() error {
		return s.ItemState(profile, "radio menu item", "not ", "checked", Terminal)
	})
}

// ProfileIsShowing checks the profile is listed in Change Profile.
func (s *Suite) ProfileIsShowing(profile string) error {
	return s.inProfileMenu(func() error {
		return s.ItemState(profile, "radio menu item", "", "showing", Terminal)
	})
}

// ProfileIsNotShowing checks the profile is absent from Change Profile.
func (s *Suite) ProfileIsNotShowing(profile string) error {
	return s.inProfileMenu(func() error {
		return s.ItemState(profile, "radio menu item", "not ", "showing", Terminal)
	})
}

// terminalText returns the content of the focused terminal widget.
func (s *Suite) terminalText() (string, error) {
	n, err := s.locate(Terminal, "focused terminal widget", func(root *model.Node) (*model.Node, error) {
		n, err := root.FindChild(model.All(model.Named("Terminal", "terminal"), model.Focused))
		if err != nil {
			return nil, fmt.Errorf("%w: focused terminal widget", err)
		}
		return n, nil
	})
	if err != nil {
		return "", err
	}
	return n.Text, nil
}

// TerminalContains checks the focused terminal text contains str.
func (s *Suite) TerminalContains(str string) error {
	text, err := s.terminalText()
	if err != nil {
		return err
	}
	if !strings.Contains(text, str) {
		return fmt.Errorf("\nExpected string:\n '%s'\nFound string   :\n '%s'", str, text)
	}
	return nil
}

// TerminalDoesNotContain checks the focused terminal text lacks str.
func (s *Suite) TerminalDoesNotContain(str string) error {
	text, err := s.terminalText()
	if err != nil {
		return err
	}
	if strings.Contains(text, str) {
		return fmt.Errorf("string %q was found in the terminal:\n '%s'", str, text)
	}
	return nil
}

// TerminalOutputIsEmpty checks the focused terminal holds nothing but newlines.
func (s *Suite) TerminalOutputIsEmpty() error {
	text, err := s.terminalText()
	if err != nil {
		return err
	}
	if strings.Trim(text, "\n") != "" {
		return fmt.Errorf("terminal is not empty\nTerminal length : '%d'\nTerminal content: '%s'", len(text), text)
	}
	return nil
}

// terminalWindow matches top-level terminal frames. A fresh window is
// titled "Terminal" and takes the shell prompt once one is printed.
var terminalWindow = model.All(
	model.RoleIn("frame"),
	model.Any(model.NameContains("Terminal"), model.NameContains("test@")),
)

func (s *Suite) countIn(handle, what string, expected int, p model.Predicate) error {
	found := 0
	err := s.policy(loopCount, 5).Until(what, func() (bool, string) {
		root, err := s.instance(handle)
		if err != nil {
			return false, err.Error()
		}
		found = root.CountMatching(p)
		return found == expected, fmt.Sprintf("\nNumber of expected open %s: '%d'\nNumber of found open %s:    '%d'", what, expected, what, found)
	})
	return err
}

// TerminalHasWindows waits for exactly expected terminal windows.
func (s *Suite) TerminalHasWindows(expected int) error {
	return s.countIn(Terminal, "windows", expected, terminalWindow)
}

// TerminalHasTabs waits for exactly expected terminal tabs.
func (s *Suite) TerminalHasTabs(expected int) error {
	return s.countIn(Terminal, "tabs", expected, model.Named("Terminal", "terminal"))
}

// EnableGTKInspector turns on the GTK inspector keybinding.
func (s *Suite) EnableGTKInspector(ctx context.Context) error {
	return s.store.Write(ctx, inspectorKey, "true")
}

// Find searches the scrollback for str through the Search field.
func (s *Suite) Find(str string) error {
	field, err := s.item(Terminal, "Search", "text")
	if err != nil {
		return err
	}
	if err := s.setText(field, str); err != nil {
		return err
	}
	s.sleep(time.Second)
	if err := s.input().PressKey("Enter"); err != nil {
		return err
	}
	s.sleep(time.Second)
	return nil
}

// PrepareTwoTabs titles the current tab "tab-1", opens a second tab and
// titles it "tab-2". Each tab also echoes its title.
func (s *Suite) PrepareTwoTabs() error {
	title := func(name string) error {
		for _, step := range []func() error{
			func() error { return s.LeftClick("Terminal", "menu", Terminal) },
			func() error { return s.LeftClick("Set Title", "menu item", Terminal) },
			func() error { return s.ItemState("Set Title", "alert", "", "showing", Terminal) },
			func() error { return s.TypeText(name) },
			func() error { return s.LeftClick("OK", "push button", Terminal) },
			func() error { return s.TypeText(name) },
			func() error { return s.PressKey("Enter") },
		} {
			if err := step(); err != nil {
				return fmt.Errorf("title %s: %w", name, err)
			}
		}
		return nil
	}
	if err := title("tab-1"); err != nil {
		return err
	}
	if err := s.input().KeyCombo("<Ctrl><Shift><T>"); err != nil {
		return err
	}
	return title("tab-2")
}

// TabContains checks the terminal of the named tab contains str.
func (s *Suite) TabContains(tab, str string) error {
	s.sleep(time.Second)
	term, err := s.locate(Terminal, "terminal of tab "+tab, func(root *model.Node) (*model.Node, error) {
		pageTab, err := root.Child(tab, "page tab")
		if err != nil {
			return nil, err
		}
		return pageTab.Child("Terminal", "terminal")
	})
	if err != nil {
		return err
	}
	if !strings.Contains(term.Text, str) {
		return fmt.Errorf("\nExpected string to be found: '%s'\nString that was found in tab: '%s'", str, term.Text)
	}
	return nil
}
