package steps

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desktopqa/terminal-bdd/internal/dconf"
	"github.com/desktopqa/terminal-bdd/internal/model"
	"github.com/desktopqa/terminal-bdd/internal/platform/fake"
	"github.com/desktopqa/terminal-bdd/internal/retry"
	"github.com/desktopqa/terminal-bdd/internal/sandbox"
	"github.com/stretchr/testify/require"
)

const (
	terminalA11y    = "gnome-terminal-server"
	preferencesA11y = "gnome-terminal-preferences"
)

var cleanupPaths = []string{
	"/org/gnome/terminal/legacy/",
	"/org/gtk/settings/debug/enable-inspector-keybinding",
}

type countingSleeper struct {
	mu     sync.Mutex
	total  time.Duration
	count  int
	hookAt int
	hook   func()
}

func (s *countingSleeper) Sleep(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total += d
	s.count++
	if s.hook != nil && s.count == s.hookAt {
		s.hook()
	}
}

// onSleep runs fn during the n-th pause from now, letting the UI change
// while a step is polling.
func (s *countingSleeper) onSleep(n int, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hookAt = s.count + n
	s.hook = fn
}

// harness is a scripted GNOME Terminal: it builds accessible trees on a
// fake desktop and reacts to clicks and keys the way the real application
// does for the flows under test.
type harness struct {
	t        *testing.T
	desktop  *fake.Desktop
	store    *dconf.Memory
	procs    *harnessProcesses
	sleeper  *countingSleeper
	suite    *Suite
	exits    []int
	session  string
	nextLeaf int

	terminal    *model.Node // focused terminal widget
	frame       *model.Node // terminal window
	profiles    []string
	defaultProf string
	prefsFrame  *model.Node
	addAt       [2]int // position of the "+" button
	menuProfile string // profile whose menu is open
	newProfile  *model.Node

	tabList   *model.Node
	alert     *model.Node // "Set Title" dialog
	alertText string

	chooserSensitive bool
	cursorShape      string
	cursorItems      []*model.Node

	wrapStore  func(*dconf.Memory) dconf.Store
	factoryErr error
	observe    retry.Observer
}

type harnessOption func(*harness, *Options)

// withRetryKinds collects the kind of every failed retry attempt.
func withRetryKinds(kinds *[]string) harnessOption {
	return func(h *harness, _ *Options) {
		h.observe = func(kind string, _ int, _ error) { *kinds = append(*kinds, kind) }
	}
}

func withSession(session string) harnessOption {
	return func(h *harness, _ *Options) { h.session = session }
}

func withOptions(f func(*Options)) harnessOption {
	return func(_ *harness, o *Options) { f(o) }
}

// withStore lets a test interpose on settings access.
func withStore(wrap func(*dconf.Memory) dconf.Store) harnessOption {
	return func(h *harness, _ *Options) { h.wrapStore = wrap }
}

// withBrokenSandbox makes BeforeAll fail to build the sandbox.
func withBrokenSandbox(err error) harnessOption {
	return func(h *harness, _ *Options) { h.factoryErr = err }
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newHarness returns a harness whose suite has not run BeforeAll yet.
func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	h := &harness{
		t:           t,
		desktop:     fake.New(),
		store:       dconf.NewMemory(),
		sleeper:     &countingSleeper{},
		session:     "x11",
		profiles:    []string{"Unnamed"},
		defaultProf: "Unnamed",

		chooserSensitive: true,
	}
	h.procs = &harnessProcesses{h: h}
	h.desktop.React = h.react

	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	o := Options{
		CleanupPaths:     cleanupPaths,
		Interval:         time.Second,
		FindAttempts:     3,
		DecorationOffset: 27,
		Exit:             func(code int) { h.exits = append(h.exits, code) },
		Now:              func() time.Time { clock = clock.Add(100 * time.Millisecond); return clock },
	}
	for _, opt := range opts {
		opt(h, &o)
	}
	factory := func(report *sandbox.Report) (*sandbox.Sandbox, error) {
		if h.factoryErr != nil {
			return nil, h.factoryErr
		}
		return sandbox.New("gnome-terminal", h.desktop.Provider(), h.procs, sandbox.Options{
			SessionType: h.session,
			AppAttempts: 3,
			Interval:    time.Second,
			Sleeper:     h.sleeper,
			Report:      report,
			Logger:      discardLogger(),
			Now:         o.Now,
			Observe:     h.observe,
		}), nil
	}
	var store dconf.Store = h.store
	if h.wrapStore != nil {
		store = h.wrapStore(h.store)
	}
	h.suite = NewSuite(o, factory, store, nil, discardLogger())
	return h
}

// started returns a harness with BeforeAll done, a scenario open and the
// terminal running.
func started(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	h := newHarness(t, opts...)
	require.NoError(t, h.suite.BeforeAll())
	require.NoError(t, h.suite.BeforeScenario(context.Background(), t.Name(), nil))
	h.openTerminal()
	return h
}

func showing() model.States {
	return model.States{Showing: true, Visible: true, Sensitive: true}
}

// leaf creates a clickable node at a unique spot below the windows.
func (h *harness) leaf(name, role string) *model.Node {
	h.nextLeaf++
	i := h.nextLeaf
	return &model.Node{
		Ref:    fmt.Sprintf("/leaf/%d", i),
		Name:   name,
		Role:   role,
		Bounds: model.Bounds{X: 10 + (i%100)*15, Y: 700 + (i/100)*15, Width: 10, Height: 10},
		States: showing(),
	}
}

func group(role string, children ...*model.Node) *model.Node {
	return &model.Node{Role: role, States: showing(), Children: children}
}

func (h *harness) menu(name string, items ...*model.Node) *model.Node {
	m := h.leaf(name, "menu")
	m.Children = items
	return m
}

func (h *harness) openTerminal() {
	h.terminal = h.leaf("Terminal", "terminal")
	h.terminal.States.Focused = true

	var radios []*model.Node
	for _, p := range h.profiles {
		r := h.leaf(p, "radio menu item")
		r.States.Checked = p == h.defaultProf
		radios = append(radios, r)
	}
	tab := h.leaf("Terminal", "page tab")
	tab.Children = []*model.Node{h.terminal}
	h.tabList = group("page tab list", tab)

	h.frame = &model.Node{
		Name:   "Terminal",
		Role:   "frame",
		Bounds: model.Bounds{X: 0, Y: 27, Width: 800, Height: 600},
		States: showing(),
		Children: []*model.Node{
			group("menu bar",
				h.menu("Edit", h.leaf("Preferences", "menu item")),
				h.menu("Terminal", h.leaf("Set Title", "menu item"), h.menu("Change Profile", radios...)),
			),
			h.tabList,
			h.leaf("Search", "text"),
		},
	}
	h.desktop.SetApp(terminalA11y, &model.Node{Children: []*model.Node{h.frame}})
}

func (h *harness) openPreferences() {
	list := group("list")
	for _, p := range h.profiles {
		toggle := h.leaf("Menu", "toggle button")
		list.Children = append(list.Children, group("list item", h.leaf(p, "label"), toggle))
	}
	first := list.Children[0].Children[1]
	h.addAt = [2]int{first.Bounds.X + 17, first.Bounds.Y - 50 + 17}

	cols := h.leaf("", "spin button")
	cols.Text = "80"
	rows := h.leaf("", "spin button")
	rows.Text = "24"
	rows.States.Sensitive = false

	textTab := h.leaf("Text", "page tab")
	textTab.States.Selected = true

	colors := group("panel", h.leaf("Text and Background Color", "label"))
	for i := 0; i < 7; i++ {
		colors.Children = append(colors.Children, h.leaf("", "push button"))
	}

	h.cursorItems = nil
	for _, shape := range []string{"Block", "I-Beam", "Underline"} {
		item := h.leaf(shape, "menu item")
		item.States.Showing = false
		h.cursorItems = append(h.cursorItems, item)
	}
	combo := h.leaf("", "combo box")
	combo.Children = []*model.Node{group("menu", h.cursorItems...)}
	cursor := group("panel", h.leaf("Cursor", "label"), group("filler", h.leaf("Cursor shape:", "label"), combo))

	enable := h.leaf("Enable shortcuts", "check box")
	enable.States.Checked = true

	h.prefsFrame = &model.Node{
		Name:   "Preferences – General",
		Role:   "frame",
		Bounds: model.Bounds{X: 900, Y: 0, Width: 600, Height: 400},
		States: showing(),
		Children: []*model.Node{
			list,
			group("filler", cols, h.leaf("columns", "label")),
			group("filler", rows, h.leaf("rows", "label")),
			group("page tab list", textTab, h.leaf("Colors", "page tab")),
			colors,
			cursor,
			group("panel", h.leaf("Shortcuts", "label"), enable),
			h.leaf("Close", "push button"),
		},
	}
	h.desktop.SetApp(preferencesA11y, &model.Node{Children: []*model.Node{h.prefsFrame}})
}

func (h *harness) addDialog(children ...*model.Node) {
	h.prefsFrame.Children = append(h.prefsFrame.Children, group("dialog", children...))
	model.Link(h.prefsFrame)
}

func (h *harness) react(d *fake.Desktop, e fake.Event) {
	switch e.Kind {
	case fake.Click:
		h.onClick(d, e)
	case fake.Type:
		switch {
		case h.alert != nil:
			h.alertText += e.Value
		case h.terminal != nil:
			h.terminal.Text += e.Value
		}
	case fake.Key:
		if e.Value == "Return" {
			if h.menuProfile != "" {
				h.addDialog(h.leaf("Delete Profile", "label"), h.leaf("Delete", "push button"))
				return
			}
			if h.terminal != nil {
				h.terminal.Text += "\n"
			}
		}
	case fake.Combo:
		switch e.Value {
		case "<Ctrl><Shift><Q>":
			d.RemoveApp(terminalA11y)
		case "<Ctrl><Shift><T>":
			h.terminal.States.Focused = false
			h.terminal = h.leaf("Terminal", "terminal")
			h.terminal.States.Focused = true
			tab := h.leaf("Terminal", "page tab")
			tab.Children = []*model.Node{h.terminal}
			h.tabList.Children = append(h.tabList.Children, tab)
			model.Link(h.frame)
		}
	}
}

func (h *harness) onClick(d *fake.Desktop, e fake.Event) {
	if e.Target == nil {
		if [2]int{e.X, e.Y} == h.addAt {
			h.newProfile = h.leaf("", "text")
			h.addDialog(h.leaf("New Profile", "label"), h.newProfile, h.leaf("Create", "push button"))
		}
		return
	}
	n := e.Target
	switch {
	case n.Name == "Preferences" && n.Role == "menu item":
		h.openPreferences()
	case n.Name == "Close" && n.Role == "push button":
		d.RemoveApp(preferencesA11y)
		h.menuProfile = ""
	case n.Name == "Create" && n.Role == "push button":
		h.profiles = append(h.profiles, h.newProfile.Text)
	case n.Name == "Delete" && n.Role == "push button":
		var kept []string
		for _, p := range h.profiles {
			if p != h.menuProfile {
				kept = append(kept, p)
			}
		}
		h.profiles = kept
		h.menuProfile = ""
	case n.Name == "Set Title" && n.Role == "menu item":
		h.alert = h.leaf("Set Title", "alert")
		h.alert.Children = []*model.Node{h.leaf("OK", "push button")}
		h.frame.Children = append(h.frame.Children, h.alert)
		model.Link(h.frame)
	case n.Name == "OK" && n.Role == "push button" && h.alert != nil:
		h.terminal.Parent.Name = h.alertText
		h.frame.Children = h.frame.Children[:len(h.frame.Children)-1]
		h.alert, h.alertText = nil, ""
	case n.Name == "" && n.Role == "push button" && n.Parent != nil && n.Parent.Role == "panel":
		dialog := h.leaf("Choose Terminal Text Color", "dialog")
		dialog.States.Sensitive = h.chooserSensitive
		dialog.Children = []*model.Node{h.leaf("Color Name", "text")}
		h.prefsFrame.Children = append(h.prefsFrame.Children, dialog)
		model.Link(h.prefsFrame)
	case n.Role == "combo box":
		for _, item := range h.cursorItems {
			item.States.Showing = true
		}
	case n.Role == "menu item" && n.Parent != nil && n.Parent.Role == "menu" && n.Parent.Parent != nil && n.Parent.Parent.Role == "combo box":
		h.cursorShape = n.Name
		for _, item := range h.cursorItems {
			item.States.Showing = false
		}
	case n.Name == "Menu" && n.Role == "toggle button":
		if label, err := n.Parent.Child("", "label"); err == nil {
			h.menuProfile = label.Name
		}
	case n.Role == "page tab" && n.Parent != nil:
		for _, sib := range n.Parent.Children {
			if sib.Role == "page tab" {
				sib.States.Selected = sib == n
			}
		}
	}
}

// harnessProcesses launches the scripted applications.
type harnessProcesses struct {
	h       *harness
	started []string
	killed  []string
}

func (p *harnessProcesses) Start(_ context.Context, argv []string) error {
	p.started = append(p.started, strings.Join(argv, " "))
	switch argv[len(argv)-1] {
	case "gnome-terminal", "org.gnome.Terminal":
		p.h.openTerminal()
	case "gedit", "org.gnome.gedit":
		p.h.desktop.SetApp("gedit", &model.Node{})
	default:
		return fmt.Errorf("unknown command %v", argv)
	}
	return nil
}

func (p *harnessProcesses) Running(_ context.Context, name string) (bool, error) {
	return !slices.Contains(p.killed, name), nil
}

func (p *harnessProcesses) Kill(_ context.Context, name string) (int, error) {
	p.killed = append(p.killed, name)
	switch name {
	case "gnome-terminal":
		p.h.desktop.RemoveApp(terminalA11y)
		p.h.desktop.RemoveApp(preferencesA11y)
		return 1, nil
	case "gedit":
		p.h.desktop.RemoveApp("gedit")
		return 1, nil
	}
	return 0, nil
}

// clicked returns the names of the nodes hit by clicks, in order.
func (h *harness) clicked() []string {
	var out []string
	for _, e := range h.desktop.Events() {
		if e.Kind != fake.Click {
			continue
		}
		if e.Target == nil {
			out = append(out, fmt.Sprintf("(%d,%d)", e.X, e.Y))
			continue
		}
		out = append(out, e.Target.String())
	}
	return out
}

// events returns the recorded events of one kind.
func (h *harness) events(kind string) []fake.Event {
	var out []fake.Event
	for _, e := range h.desktop.Events() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
