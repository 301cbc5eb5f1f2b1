// Package fake provides an in-memory desktop implementing every platform
// interface. Trees are mutable and a React hook lets tests script how the
// UI responds to input.
package fake

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"sort"
	"sync"

	"github.com/desktopqa/terminal-bdd/internal/model"
	"github.com/desktopqa/terminal-bdd/internal/platform"
)

// Event kinds recorded by Desktop.
const (
	Click   = "click"
	Move    = "move"
	Combo   = "combo"
	Key     = "key"
	Type    = "type"
	SetText = "settext"
)

// Event is one recorded interaction.
type Event struct {
	Kind   string
	X, Y   int
	Button platform.MouseButton
	Value  string // key, combo, typed text or new text
	Target *model.Node
}

func (e Event) String() string {
	switch e.Kind {
	case Click, Move:
		return fmt.Sprintf("%s(%d,%d)", e.Kind, e.X, e.Y)
	default:
		return fmt.Sprintf("%s(%s)", e.Kind, e.Value)
	}
}

// Desktop is a scripted fake of the accessibility service and input
// devices.
type Desktop struct {
	mu     sync.Mutex
	apps   map[string]*model.Node
	events []Event

	Width, Height int

	// React runs after every input event with the lock released, so it may
	// call SetApp, RemoveApp or mutate nodes.
	React func(d *Desktop, e Event)

	// Fail injects an error for an event kind.
	Fail map[string]error
}

// New returns an empty 1920x1080 desktop.
func New() *Desktop {
	return &Desktop{
		apps:   make(map[string]*model.Node),
		Width:  1920,
		Height: 1080,
		Fail:   make(map[string]error),
	}
}

// Provider wraps d in a platform.Provider.
func (d *Desktop) Provider() *platform.Provider {
	return &platform.Provider{
		Reader:        d,
		Inputter:      d,
		ValueSetter:   d,
		Screenshotter: d,
		Screen:        d,
	}
}

// SetApp registers root as the tree of the named application.
func (d *Desktop) SetApp(name string, root *model.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if root.Name == "" {
		root.Name = name
	}
	if root.Role == "" {
		root.Role = "application"
	}
	d.apps[name] = model.Link(root)
}

// RemoveApp unregisters the named application.
func (d *Desktop) RemoveApp(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.apps, name)
}

// Events returns a copy of the recorded events.
func (d *Desktop) Events() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Event(nil), d.events...)
}

// EventStrings renders the recorded events for compact assertions.
func (d *Desktop) EventStrings() []string {
	var out []string
	for _, e := range d.Events() {
		out = append(out, e.String())
	}
	return out
}

// Reset clears recorded events.
func (d *Desktop) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = nil
}

func (d *Desktop) Applications() ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, 0, len(d.apps))
	for n := range d.apps {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (d *Desktop) Tree(app string) (*model.Node, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	root, ok := d.apps[app]
	if !ok {
		return nil, fmt.Errorf("%w: application %q", model.ErrNotFound, app)
	}
	return model.Link(root), nil
}

// NodeAt returns the smallest showing node whose bounds contain (x, y),
// searching every application.
func (d *Desktop) NodeAt(x, y int) *model.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	var best *model.Node
	for _, root := range d.apps {
		if n := smallestAt(root, x, y); n != nil && (best == nil || area(n) < area(best)) {
			best = n
		}
	}
	return best
}

func area(n *model.Node) int { return n.Bounds.Width * n.Bounds.Height }

func smallestAt(n *model.Node, x, y int) *model.Node {
	var found *model.Node
	b := n.Bounds
	if n.States.Showing && b.Width > 0 && b.Height > 0 &&
		x >= b.X && x < b.X+b.Width && y >= b.Y && y < b.Y+b.Height {
		found = n
	}
	for _, c := range n.Children {
		if hit := smallestAt(c, x, y); hit != nil && (found == nil || area(hit) <= area(found)) {
			found = hit
		}
	}
	return found
}

func (d *Desktop) record(e Event) error {
	d.mu.Lock()
	if err := d.Fail[e.Kind]; err != nil {
		d.mu.Unlock()
		return err
	}
	d.events = append(d.events, e)
	react := d.React
	d.mu.Unlock()
	if react != nil {
		react(d, e)
	}
	return nil
}

func (d *Desktop) Click(x, y int, button platform.MouseButton) error {
	return d.record(Event{Kind: Click, X: x, Y: y, Button: button, Target: d.NodeAt(x, y)})
}

func (d *Desktop) MoveMouse(x, y int) error {
	return d.record(Event{Kind: Move, X: x, Y: y, Target: d.NodeAt(x, y)})
}

func (d *Desktop) KeyCombo(combo string) error {
	if _, err := platform.ParseCombo(combo); err != nil {
		return err
	}
	return d.record(Event{Kind: Combo, Value: combo})
}

func (d *Desktop) PressKey(key string) error {
	return d.record(Event{Kind: Key, Value: platform.CanonicalKey(key)})
}

func (d *Desktop) TypeText(text string) error {
	return d.record(Event{Kind: Type, Value: text})
}

func (d *Desktop) SetText(ref, text string) error {
	target := d.findRef(ref)
	if target == nil {
		return fmt.Errorf("%w: ref %q", model.ErrNotFound, ref)
	}
	target.Text = text
	return d.record(Event{Kind: SetText, Value: text, Target: target})
}

func (d *Desktop) findRef(ref string) *model.Node {
	if ref == "" {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	match := func(n *model.Node) bool { return n.Ref == ref }
	for _, root := range d.apps {
		if match(root) {
			return root
		}
		if n, err := root.FindChild(match); err == nil {
			return n
		}
	}
	return nil
}

// CaptureScreen returns a tiny PNG sized by scale.
func (d *Desktop) CaptureScreen(scale float64) ([]byte, error) {
	w, h := int(float64(d.Width)*scale)/100+1, int(float64(d.Height)*scale)/100+1
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (d *Desktop) Resolution() (int, int, error) {
	return d.Width, d.Height, nil
}
