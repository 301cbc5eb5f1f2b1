package steps

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/desktopqa/terminal-bdd/internal/model"
	"github.com/desktopqa/terminal-bdd/internal/platform"
)

const profilesDir = "/org/gnome/terminal/legacy/profiles:/"

type colorSlot struct{ row, column string }

// colorButtons maps a colour setting to the index of its button among the
// showing push buttons of the "Text and Background Color" section.
var colorButtons = map[colorSlot]int{
	{"Default color:", "Text"}:         6,
	{"Default color:", "Background"}:   5,
	{"Bold color:", "Text"}:            4,
	{"Cursor color:", "Text"}:          3,
	{"Cursor color:", "Background"}:    2,
	{"Highlight color:", "Text"}:       1,
	{"Highlight color:", "Background"}: 0,
}

func (s *Suite) preferencesSteps() []Step {
	return []Step{
		{
			Pattern:  `^Open preferences$`,
			Examples: []string{`Open preferences`},
			Handler:  s.OpenPreferences,
		},
		{
			Pattern:  `^Close preferences$`,
			Examples: []string{`Close preferences`},
			Handler:  s.ClosePreferences,
		},
		{
			Pattern:  `^Open toggle menu of profile: ` + q + `$`,
			Examples: []string{`Open toggle menu of profile: "Unnamed"`},
			Handler:  s.OpenProfileMenu,
		},
		{
			Pattern:  `^Select option in row: ` + q + ` and column: ` + q + `$`,
			Examples: []string{`Select option in row: "Cursor color:" and column: "Background"`},
			Handler:  s.SelectColorOption,
		},
		{
			Pattern:  `^Set color name to: ` + q + `$`,
			Examples: []string{`Set color name to: "#00ff00"`},
			Handler:  s.SetColorName,
		},
		{
			Pattern:  `^Set spin button to: ` + q + `$`,
			Examples: []string{`Set spin button to: "120"`},
			Handler:  s.SetSpinButton,
		},
		{
			Pattern: `^The profile option: ` + q + ` is (not )?set to ` + q + ` in dconf$`,
			Examples: []string{
				`The profile option: "cursor-shape" is set to "ibeam" in dconf`,
				`The profile option: "use-theme-colors" is not set to "true" in dconf`,
			},
			Handler: s.ProfileOptionIs,
		},
		{
			Pattern:  `^Set ` + q + ` to ` + q + ` under: ` + q + `$`,
			Examples: []string{`Set "Cursor shape:" to "Underline" under: "Cursor"`},
			Handler:  s.SetComboUnder,
		},
		{
			Pattern:  `^Set cursor to ` + q + `$`,
			Examples: []string{`Set cursor to "Underline"`},
			Handler:  s.SetCursor,
		},
		{
			Pattern:  `^Terminal size is set as columns: ` + q + ` and rows: ` + q + `$`,
			Examples: []string{`Terminal size is set as columns: "80" and rows: "24"`},
			Handler:  s.TerminalSizeIs,
		},
		{
			Pattern:  `^Create profile named ` + q + `$`,
			Examples: []string{`Create profile named "test"`},
			Handler:  s.CreateProfile,
		},
		{
			Pattern:  `^Delete profile named ` + q + `$`,
			Examples: []string{`Delete profile named "test"`},
			Handler:  s.DeleteProfile,
		},
		{
			Pattern:  `^Profile named ` + q + ` exists$`,
			Examples: []string{`Profile named "test" exists`},
			Handler:  s.ProfileExists,
		},
		{
			Pattern:  `^Profile named ` + q + ` does not exist$`,
			Examples: []string{`Profile named "test" does not exist`},
			Handler:  s.ProfileDoesNotExist,
		},
		{
			Pattern:  `^Enable shortcuts$`,
			Examples: []string{`Enable shortcuts`},
			Handler:  s.EnableShortcuts,
		},
		{
			Pattern:  `^Left click on ` + q + ` page tab and make sure the tab was selected$`,
			Examples: []string{`Left click on "Colors" page tab and make sure the tab was selected`},
			Handler:  s.SelectPageTab,
		},
	}
}

// OpenPreferences opens Edit > Preferences and waits for the window.
func (s *Suite) OpenPreferences() error {
	if err := s.LeftClick("Edit", "menu", Terminal); err != nil {
		return err
	}
	if err := s.LeftClick("Preferences", "menu item", Terminal); err != nil {
		return err
	}
	if err := s.ApplicationIsRunning(Preferences); err != nil {
		return err
	}
	s.sleep(2 * time.Second)
	return nil
}

// ClosePreferences clicks the last showing Close button of the
// preferences frame.
func (s *Suite) ClosePreferences() error {
	frame, err := s.locate(Preferences, "preferences frame", func(root *model.Node) (*model.Node, error) {
		return root.FindChild(model.All(model.NameContains("Preferences"), model.RoleIs("frame")))
	})
	if err != nil {
		return err
	}
	buttons := frame.FindChildren(model.All(model.Named("Close", "push button"), model.Showing))
	if len(buttons) == 0 {
		return fmt.Errorf("%w: showing Close button in %s", model.ErrNotFound, frame)
	}
	return s.clickNode(buttons[len(buttons)-1], platform.MouseLeft)
}

// OpenProfileMenu clicks the "Menu" toggle next to the profile's label.
func (s *Suite) OpenProfileMenu(profile string) error {
	toggle, err := s.locate(Preferences, "menu of profile "+profile, func(root *model.Node) (*model.Node, error) {
		label, err := root.Child(profile, "")
		if err != nil {
			return nil, err
		}
		return label.Sibling("Menu", "toggle button")
	})
	if err != nil {
		return err
	}
	return s.clickNode(toggle, platform.MouseLeft)
}

func validColorSlots() string {
	var slots []string
	for k := range colorButtons {
		slots = append(slots, fmt.Sprintf("%q/%q", k.row, k.column))
	}
	sort.Strings(slots)
	return strings.Join(slots, ", ")
}

func isChooseDialog(n *model.Node) bool {
	return n.Role == "dialog" && strings.Contains(n.Name, "Choose Terminal")
}

// SelectColorOption clicks the colour button for row/column and waits up to
// five attempts for the colour chooser to become sensitive.
func (s *Suite) SelectColorOption(row, column string) error {
	index, ok := colorButtons[colorSlot{row, column}]
	if !ok {
		return fmt.Errorf("no colour button for row %q and column %q (known: %s)", row, column, validColorSlots())
	}
	button, err := s.locate(Preferences, "colour buttons", func(root *model.Node) (*model.Node, error) {
		section, err := root.Child("Text and Background Color", "")
		if err != nil {
			return nil, err
		}
		if section.Parent == nil {
			return nil, fmt.Errorf("%w: parent of %s", model.ErrNotFound, section)
		}
		buttons := section.Parent.FindChildren(model.All(model.RoleIs("push button"), model.Showing))
		if index >= len(buttons) {
			return nil, fmt.Errorf("%w: colour button %d, only %d showing", model.ErrNotFound, index, len(buttons))
		}
		return buttons[index], nil
	})
	if err != nil {
		return err
	}
	if err := s.clickNode(button, platform.MouseLeft); err != nil {
		return err
	}

	return s.policy(loopColourChooser, 5).Until("colour chooser sensitive", func() (bool, string) {
		root, err := s.instance(Preferences)
		if err != nil {
			return false, err.Error()
		}
		dialog, err := root.FindChild(isChooseDialog)
		if err != nil {
			return false, "colour chooser dialog not found"
		}
		return dialog.States.Sensitive, fmt.Sprintf("dialog '%s' is not sensitive yet", dialog.Name)
	})
}

// SetColorName types name into the Color Name field of the chooser.
func (s *Suite) SetColorName(name string) error {
	field, err := s.locate(Preferences, "colour name field", func(root *model.Node) (*model.Node, error) {
		dialog, err := root.FindChild(isChooseDialog)
		if err != nil {
			return nil, err
		}
		return dialog.Child("Color Name", "text")
	})
	if err != nil {
		return err
	}
	if err := s.clickNode(field, platform.MouseLeft); err != nil {
		return err
	}
	if err := s.setText(field, name); err != nil {
		return err
	}
	s.sleep(time.Second)
	return nil
}

// SetSpinButton types value into the first unnamed, sensitive and showing
// spin button. The first click lands left of the arrows to focus the entry.
func (s *Suite) SetSpinButton(value string) error {
	spin, err := s.locate(Preferences, "spin button", func(root *model.Node) (*model.Node, error) {
		return root.FindChild(model.All(model.RoleIs("spin button"), model.NameIs(""), model.Sensitive, model.Showing))
	})
	if err != nil {
		return err
	}
	x, y := spin.Bounds.Center()
	if err := s.input().Click(x-10, y, platform.MouseLeft); err != nil {
		return err
	}
	if err := s.clickNode(spin, platform.MouseLeft); err != nil {
		return err
	}
	if err := s.input().KeyCombo("<Ctrl><A>"); err != nil {
		return err
	}
	return s.input().TypeText(value)
}

// ProfileOptionIs checks that the stored value of a profile key contains
// (or with negation does not contain) expected.
func (s *Suite) ProfileOptionIs(ctx context.Context, key, negation, expected string) error {
	s.sleep(3 * time.Second)

	entries, err := s.store.List(ctx, profilesDir)
	if err != nil {
		return err
	}
	var profile string
	for _, e := range entries {
		if strings.HasPrefix(e, ":") {
			profile = e
			break
		}
	}
	if profile == "" {
		return fmt.Errorf("no profile stored under %s (entries: %v)", profilesDir, entries)
	}
	stored, err := s.store.Read(ctx, profilesDir+profile+key)
	if err != nil {
		return err
	}

	if negation != "" {
		if strings.Contains(stored, expected) {
			return fmt.Errorf("expected value does not differ from actually stored value! '%s' == '%s'", expected, stored)
		}
		return nil
	}
	if !strings.Contains(stored, expected) {
		return fmt.Errorf("expected value differs from actually stored value! '%s' != '%s'", expected, stored)
	}
	return nil
}

// SetComboUnder opens the combo box in the row labelled option inside the
// section named menu and picks value, retrying up to three times.
func (s *Suite) SetComboUnder(option, value, menu string) error {
	return s.policy(loopCombo, 3).Do("combo "+option, func(int) error {
		if err := s.input().PressKey("Esc"); err != nil {
			return err
		}
		root, err := s.instance(Preferences)
		if err != nil {
			return err
		}
		section, err := root.Child(menu, "")
		if err != nil {
			return err
		}
		if section.Parent == nil {
			return fmt.Errorf("%w: parent of %s", model.ErrNotFound, section)
		}
		label, err := section.Parent.Child(option, "label")
		if err != nil {
			return err
		}
		if label.Parent == nil {
			return fmt.Errorf("%w: parent of %s", model.ErrNotFound, label)
		}
		combo, err := label.Parent.Child("", "combo box")
		if err != nil {
			return err
		}
		if err := s.clickNode(combo, platform.MouseLeft); err != nil {
			return err
		}
		s.sleep(time.Second)
		if err := s.clickOnce(Preferences, value, "menu item", platform.MouseLeft); err != nil {
			return fmt.Errorf("combo box presumably failed to open: %w", err)
		}
		return nil
	})
}

// SetCursor opens the cursor shape combo (the grandparent of the "I-Beam"
// item), picks shape and closes preferences.
func (s *Suite) SetCursor(shape string) error {
	combo, err := s.locate(Preferences, "cursor shape combo", func(root *model.Node) (*model.Node, error) {
		item, err := root.Child("I-Beam", "menu item")
		if err != nil {
			return nil, err
		}
		if item.Parent == nil || item.Parent.Parent == nil {
			return nil, fmt.Errorf("%w: grandparent of %s", model.ErrNotFound, item)
		}
		return item.Parent.Parent, nil
	})
	if err != nil {
		return err
	}
	if err := s.clickNode(combo, platform.MouseLeft); err != nil {
		return err
	}
	if err := s.LeftClick(shape, "menu item", Preferences); err != nil {
		return err
	}
	return s.ClosePreferences()
}

// sizeField returns the first child of the container holding the
// "columns" or "rows" label.
func sizeField(root *model.Node, label string, p model.Predicate) (*model.Node, error) {
	l, err := root.FindChild(model.Named(label, "label"))
	if err != nil {
		return nil, fmt.Errorf("%w: %q label", err, label)
	}
	if l.Parent == nil {
		return nil, fmt.Errorf("%w: parent of %s", model.ErrNotFound, l)
	}
	if p == nil {
		return l.Parent.ChildAt(0)
	}
	return l.Parent.FindChild(p)
}

// TerminalSizeIs checks the initial size fields of the profile.
func (s *Suite) TerminalSizeIs(columns, rows string) error {
	cols, err := s.locate(Preferences, "columns field", func(root *model.Node) (*model.Node, error) {
		return sizeField(root, "columns", nil)
	})
	if err != nil {
		return err
	}
	rws, err := s.locate(Preferences, "rows field", func(root *model.Node) (*model.Node, error) {
		return sizeField(root, "rows", nil)
	})
	if err != nil {
		return err
	}
	if cols.Text != columns {
		return fmt.Errorf("\nColumn expected: %s\nActual column: %s", columns, cols.Text)
	}
	if rws.Text != rows {
		return fmt.Errorf("\nRow expected: %s\nActual row: %s", rows, rws.Text)
	}
	return s.ClosePreferences()
}

// CreateProfile adds a profile through the "+" button above the profile
// list. It does nothing when a profile label with that name exists.
func (s *Suite) CreateProfile(profile string) error {
	if err := s.OpenPreferences(); err != nil {
		return err
	}
	root, err := s.tree(Preferences)
	if err != nil {
		return err
	}
	if root.CountMatching(model.Named(profile, "label")) > 0 {
		return s.ClosePreferences()
	}

	toggle, err := s.locate(Preferences, "menu toggle of Unnamed", func(root *model.Node) (*model.Node, error) {
		unnamed, err := root.Child("Unnamed", "")
		if err != nil {
			return nil, err
		}
		return unnamed.Sibling("Menu", "toggle button")
	})
	if err != nil {
		return err
	}
	// The add button sits 50px above the toggle's top-left corner.
	if err := s.input().Click(toggle.Bounds.X+17, toggle.Bounds.Y-50+17, platform.MouseLeft); err != nil {
		return err
	}

	field, err := s.locate(Preferences, "new profile name field", func(root *model.Node) (*model.Node, error) {
		title, err := root.Child("New Profile", "")
		if err != nil {
			return nil, err
		}
		if title.Parent == nil {
			return nil, fmt.Errorf("%w: parent of %s", model.ErrNotFound, title)
		}
		return title.Parent.Child("", "text")
	})
	if err != nil {
		return err
	}
	if err := s.setText(field, profile); err != nil {
		return err
	}
	if err := s.LeftClick("Create", "push button", Preferences); err != nil {
		return err
	}
	return s.ClosePreferences()
}

// DeleteProfile removes a profile through its menu: the third entry is
// "Delete…", confirmed in a dialog.
func (s *Suite) DeleteProfile(profile string) error {
	if s.sb.SessionType() == "wayland" {
		s.sleep(5 * time.Second)
	}
	if err := s.OpenPreferences(); err != nil {
		return err
	}
	if err := s.LeftClick(profile, "label", Preferences); err != nil {
		return err
	}
	if err := s.OpenProfileMenu(profile); err != nil {
		return err
	}
	for _, key := range []string{"Down", "Down", "Enter"} {
		if err := s.input().PressKey(key); err != nil {
			return err
		}
	}
	if err := s.LeftClick("Delete", "push button", Preferences); err != nil {
		return err
	}
	return s.ClosePreferences()
}

func (s *Suite) withPreferences(check func() error) error {
	if err := s.OpenPreferences(); err != nil {
		return err
	}
	err := check()
	if cerr := s.ClosePreferences(); cerr != nil {
		return errors.Join(err, cerr)
	}
	return err
}

// ProfileExists checks the profile is listed in preferences.
func (s *Suite) ProfileExists(profile string) error {
	return s.withPreferences(func() error {
		return s.ItemState(profile, "label", "", "showing", Preferences)
	})
}

// ProfileDoesNotExist checks the profile is not listed in preferences.
func (s *Suite) ProfileDoesNotExist(profile string) error {
	return s.withPreferences(func() error {
		return s.ItemState(profile, "label", "not ", "showing", Preferences)
	})
}

// EnableShortcuts checks that shortcuts are enabled in preferences.
func (s *Suite) EnableShortcuts() error {
	return s.withPreferences(func() error {
		if err := s.LeftClick("Shortcuts", "label", Preferences); err != nil {
			return err
		}
		return s.ItemState("Enable shortcuts", "check box", "", "checked", Preferences)
	})
}

// SelectPageTab clicks a page tab until it reports selected, up to five
// attempts.
func (s *Suite) SelectPageTab(name string) error {
	return s.policy(loopPageTab, 5).Do("page tab "+name+" selected", func(int) error {
		tab, err := s.item(Preferences, name, "page tab")
		if err != nil {
			return err
		}
		if tab.States.Selected {
			return nil
		}
		if err := s.clickNode(tab, platform.MouseLeft); err != nil {
			return err
		}
		return fmt.Errorf("page tab '%s' failed to be selected", name)
	})
}
