package model

import "fmt"

// Node is one object of an application's accessible tree.
type Node struct {
	Ref         string  `yaml:"ref,omitempty"  json:"ref,omitempty"` // Platform handle, e.g. ":1.42/org/a11y/atspi/accessible/12"
	Name        string  `yaml:"name,omitempty" json:"name,omitempty"`
	Role        string  `yaml:"role"           json:"role"` // AT-SPI role name, e.g. "push button"
	Description string  `yaml:"desc,omitempty" json:"desc,omitempty"`
	Text        string  `yaml:"text,omitempty" json:"text,omitempty"` // Text interface content, if any
	Bounds      Bounds  `yaml:"bounds"         json:"bounds"`
	States      States  `yaml:"states"         json:"states"`
	Children    []*Node `yaml:"children,omitempty" json:"children,omitempty"`

	Parent *Node `yaml:"-" json:"-"`
}

// States holds the boolean state flags the steps assert on.
type States struct {
	Showing   bool `yaml:"showing,omitempty"   json:"showing,omitempty"`
	Visible   bool `yaml:"visible,omitempty"   json:"visible,omitempty"`
	Sensitive bool `yaml:"sensitive,omitempty" json:"sensitive,omitempty"`
	Focused   bool `yaml:"focused,omitempty"   json:"focused,omitempty"`
	Selected  bool `yaml:"selected,omitempty"  json:"selected,omitempty"`
	Checked   bool `yaml:"checked,omitempty"   json:"checked,omitempty"`
	Editable  bool `yaml:"editable,omitempty"  json:"editable,omitempty"`
}

// Bounds is a screen rectangle in pixels.
type Bounds struct {
	X      int `yaml:"x" json:"x"`
	Y      int `yaml:"y" json:"y"`
	Width  int `yaml:"w" json:"w"`
	Height int `yaml:"h" json:"h"`
}

// Center returns the midpoint of the rectangle.
func (b Bounds) Center() (int, int) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Size returns the width and height as a Size.
func (b Bounds) Size() Size {
	return Size{Width: b.Width, Height: b.Height}
}

// Link sets the Parent pointer of every descendant of n.
// Platform readers call it once after building a tree.
func Link(n *Node) *Node {
	for _, c := range n.Children {
		c.Parent = n
		Link(c)
	}
	return n
}

// State reports the named state flag. Unknown names return an error so a
// typo in a scenario fails loudly instead of asserting false.
func (n *Node) State(name string) (bool, error) {
	switch name {
	case "showing":
		return n.States.Showing, nil
	case "visible":
		return n.States.Visible, nil
	case "sensitive", "enabled":
		return n.States.Sensitive, nil
	case "focused":
		return n.States.Focused, nil
	case "selected":
		return n.States.Selected, nil
	case "checked":
		return n.States.Checked, nil
	case "editable":
		return n.States.Editable, nil
	default:
		return false, fmt.Errorf("unknown state %q (expected showing, visible, sensitive, focused, selected, checked or editable)", name)
	}
}

func (n *Node) String() string {
	return fmt.Sprintf("[%s | %s]", n.Name, n.Role)
}
