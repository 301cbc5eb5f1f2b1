package steps

import (
	"context"
	"fmt"
	"testing"

	"github.com/desktopqa/terminal-bdd/internal/model"
	"github.com/desktopqa/terminal-bdd/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAndClosePreferences(t *testing.T) {
	h := started(t)
	require.NoError(t, h.suite.OpenPreferences())
	require.NoError(t, h.suite.ApplicationIsRunning(Preferences))

	require.NoError(t, h.suite.ClosePreferences())
	require.NoError(t, h.suite.ApplicationIsNotRunning(Preferences))
	assert.Equal(t, []string{"[Edit | menu]", "[Preferences | menu item]", "[Close | push button]"}, h.clicked())
}

func TestClosePreferences_NotOpen(t *testing.T) {
	h := started(t)
	err := h.suite.ClosePreferences()
	assert.ErrorIs(t, err, retry.ErrExhausted)
}

func TestProfileLifecycle(t *testing.T) {
	h := started(t)
	require.NoError(t, h.suite.ProfileExists("Unnamed"))
	require.NoError(t, h.suite.ProfileDoesNotExist("test"))

	require.NoError(t, h.suite.CreateProfile("test"))
	assert.Equal(t, []string{"Unnamed", "test"}, h.profiles)
	require.NoError(t, h.suite.ProfileExists("test"))

	require.NoError(t, h.suite.DeleteProfile("test"))
	assert.Equal(t, []string{"Unnamed"}, h.profiles)
	require.NoError(t, h.suite.ProfileDoesNotExist("test"))
	require.NoError(t, h.suite.ApplicationIsNotRunning(Preferences))
}

func TestCreateProfile_ExistingIsNoop(t *testing.T) {
	h := started(t)
	require.NoError(t, h.suite.CreateProfile("Unnamed"))
	assert.Equal(t, []string{"Unnamed"}, h.profiles)
	assert.Equal(t, []string{"[Edit | menu]", "[Preferences | menu item]", "[Close | push button]"}, h.clicked())
}

func TestCreateProfile_ClicksAddButton(t *testing.T) {
	h := started(t)
	require.NoError(t, h.suite.CreateProfile("work"))

	clicks := h.clicked()
	require.Len(t, clicks, 5)
	assert.Equal(t, fmt.Sprintf("(%d,%d)", h.addAt[0], h.addAt[1]), clicks[2])
	assert.Equal(t, []string{"[Create | push button]", "[Close | push button]"}, clicks[3:])
	assert.Equal(t, "work", h.newProfile.Text)
}

func TestProfileExists_FailureStillCloses(t *testing.T) {
	h := started(t)
	err := h.suite.ProfileExists("missing")
	assert.ErrorIs(t, err, retry.ErrExhausted)
	assert.NoError(t, h.suite.ApplicationIsNotRunning(Preferences))
}

func TestDeleteProfile_WaylandWaits(t *testing.T) {
	h := started(t, withSession("wayland"))
	h.profiles = append(h.profiles, "test")
	before := h.sleeper.total

	require.NoError(t, h.suite.DeleteProfile("test"))
	assert.Equal(t, []string{"Unnamed"}, h.profiles)
	assert.GreaterOrEqual(t, (h.sleeper.total - before).Seconds(), 5.0)
}

func TestOpenProfileMenu(t *testing.T) {
	h := started(t)
	h.openPreferences()
	require.NoError(t, h.suite.OpenProfileMenu("Unnamed"))
	assert.Equal(t, "Unnamed", h.menuProfile)
	assert.Equal(t, []string{"[Menu | toggle button]"}, h.clicked())
}

func TestTerminalSizeIs(t *testing.T) {
	h := started(t)
	h.openPreferences()
	require.NoError(t, h.suite.TerminalSizeIs("80", "24"))
	require.NoError(t, h.suite.ApplicationIsNotRunning(Preferences))

	h.openPreferences()
	assert.ErrorContains(t, h.suite.TerminalSizeIs("100", "24"), "Column expected: 100")
	assert.ErrorContains(t, h.suite.TerminalSizeIs("80", "30"), "Row expected: 30")
}

func TestSetTerminalSize(t *testing.T) {
	h := started(t)
	h.openPreferences()
	cols := h.prefsFrame.Children[1].Children[0]
	rows := h.prefsFrame.Children[2].Children[0]

	require.NoError(t, h.suite.SetTerminalSize("100", "30"))
	assert.Equal(t, "100", cols.Text)
	assert.Equal(t, "30", rows.Text)
	assert.Equal(t, []string{
		"click(" + center(cols) + ")", "settext(100)", "key(Return)",
		"click(" + center(rows) + ")", "settext(30)", "key(Return)",
	}, h.desktop.EventStrings()[:6])
	require.NoError(t, h.suite.ApplicationIsNotRunning(Preferences))
}

func TestSetSpinButton_SkipsInsensitive(t *testing.T) {
	h := started(t)
	h.openPreferences()
	cols := h.prefsFrame.Children[1].Children[0]

	require.NoError(t, h.suite.SetSpinButton("120"))
	events := h.desktop.EventStrings()
	require.Len(t, events, 4)
	x, y := cols.Bounds.Center()
	assert.Equal(t, []string{
		fmt.Sprintf("click(%d,%d)", x-10, y),
		"click(" + center(cols) + ")",
		"combo(<Ctrl><A>)",
		"type(120)",
	}, events)
}

func TestSelectColorOption(t *testing.T) {
	h := started(t)
	h.openPreferences()
	colors := h.prefsFrame.Children[4]

	require.NoError(t, h.suite.SelectColorOption("Default color:", "Text"))
	events := h.desktop.Events()
	require.Len(t, events, 1)
	assert.Same(t, colors.Children[7], events[0].Target)

	require.NoError(t, h.suite.SetColorName("#00ff00"))
	assert.NoError(t, h.suite.ItemHasText("Color Name", "text", "#00ff00", Preferences))
}

func TestSelectColorOption_HighlightBackgroundIsFirst(t *testing.T) {
	h := started(t)
	h.openPreferences()
	colors := h.prefsFrame.Children[4]

	require.NoError(t, h.suite.SelectColorOption("Highlight color:", "Background"))
	assert.Same(t, colors.Children[1], h.desktop.Events()[0].Target)
}

func TestSelectColorOption_ChooserNeverSensitive(t *testing.T) {
	h := started(t)
	h.chooserSensitive = false
	h.openPreferences()

	before := h.sleeper.count
	err := h.suite.SelectColorOption("Cursor color:", "Text")
	assert.ErrorIs(t, err, retry.ErrExhausted)
	assert.ErrorContains(t, err, "is not sensitive yet")
	assert.Equal(t, 4, h.sleeper.count-before)
}

func TestSelectColorOption_UnknownSlot(t *testing.T) {
	h := started(t)
	err := h.suite.SelectColorOption("Bold color:", "Background")
	assert.ErrorContains(t, err, `no colour button for row "Bold color:"`)
	assert.Empty(t, h.desktop.Events())
}

func TestProfileOptionIs(t *testing.T) {
	h := started(t)
	ctx := context.Background()
	require.NoError(t, h.store.Write(ctx, profilesDir+"default", "'b1dcc9dd'"))
	require.NoError(t, h.store.Write(ctx, profilesDir+":b1dcc9dd/cursor-shape", "'ibeam'"))

	assert.NoError(t, h.suite.ProfileOptionIs(ctx, "cursor-shape", "", "ibeam"))
	assert.NoError(t, h.suite.ProfileOptionIs(ctx, "cursor-shape", "not ", "block"))
	assert.ErrorContains(t, h.suite.ProfileOptionIs(ctx, "cursor-shape", "", "block"), "differs from actually stored value")
	assert.ErrorContains(t, h.suite.ProfileOptionIs(ctx, "cursor-shape", "not ", "ibeam"), "does not differ")
}

func TestProfileOptionIs_NoProfile(t *testing.T) {
	h := started(t)
	err := h.suite.ProfileOptionIs(context.Background(), "cursor-shape", "", "ibeam")
	assert.ErrorContains(t, err, "no profile stored")
}

func TestSetComboUnder(t *testing.T) {
	h := started(t)
	h.openPreferences()

	require.NoError(t, h.suite.SetComboUnder("Cursor shape:", "Underline", "Cursor"))
	assert.Equal(t, "Underline", h.cursorShape)
	assert.Equal(t, []string{"[ | combo box]", "[Underline | menu item]"}, h.clicked())
}

func TestSetComboUnder_MenuNeverOpens(t *testing.T) {
	h := started(t)
	h.openPreferences()
	h.cursorItems = nil

	err := h.suite.SetComboUnder("Cursor shape:", "Underline", "Cursor")
	assert.ErrorIs(t, err, retry.ErrExhausted)
	assert.ErrorContains(t, err, "combo box presumably failed to open")
	assert.Len(t, h.events("key"), 3, "Escape before every attempt")
}

func TestSetCursor(t *testing.T) {
	h := started(t)
	h.openPreferences()

	require.NoError(t, h.suite.SetCursor("I-Beam"))
	assert.Equal(t, "I-Beam", h.cursorShape)
	assert.Equal(t, []string{"[ | combo box]", "[I-Beam | menu item]", "[Close | push button]"}, h.clicked())
}

func TestEnableShortcuts(t *testing.T) {
	h := started(t)
	require.NoError(t, h.suite.EnableShortcuts())
	assert.Contains(t, h.clicked(), "[Shortcuts | label]")
	require.NoError(t, h.suite.ApplicationIsNotRunning(Preferences))
}

func TestSelectPageTab(t *testing.T) {
	h := started(t)
	h.openPreferences()

	require.NoError(t, h.suite.SelectPageTab("Text"))
	assert.Empty(t, h.clicked(), "already selected")

	require.NoError(t, h.suite.SelectPageTab("Colors"))
	assert.Equal(t, []string{"[Colors | page tab]"}, h.clicked())
	assert.NoError(t, h.suite.ItemState("Text", "page tab", "not ", "selected", Preferences))
}

func TestSizeField(t *testing.T) {
	h := newHarness(t)
	h.openPreferences()
	root := h.prefsFrame.Parent
	require.NotNil(t, root)

	f, err := sizeField(root, "rows", nil)
	require.NoError(t, err)
	assert.Equal(t, "24", f.Text)

	_, err = sizeField(root, "lines", nil)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func center(n *model.Node) string {
	x, y := n.Bounds.Center()
	return fmt.Sprintf("%d,%d", x, y)
}

func TestTerminalSizeIs_WaitsForFields(t *testing.T) {
	h := started(t)
	require.NoError(t, h.suite.OpenPreferences())
	var fields []*model.Node
	for _, f := range h.prefsFrame.Children {
		if f.Role == "filler" && len(f.Children) == 2 && f.Children[0].Role == "spin button" {
			fields = append(fields, f)
		}
	}
	require.Len(t, fields, 2)
	saved := fields[0].Children
	fields[0].Children = nil
	h.sleeper.onSleep(1, func() {
		fields[0].Children = saved
		model.Link(h.prefsFrame)
	})

	require.NoError(t, h.suite.TerminalSizeIs("80", "24"))
}
