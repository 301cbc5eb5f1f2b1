package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when no node satisfies a search predicate.
var ErrNotFound = errors.New("no accessible node found")

// Predicate reports whether a node matches.
type Predicate func(*Node) bool

// NameIs matches nodes whose name equals s exactly.
func NameIs(s string) Predicate {
	return func(n *Node) bool { return n.Name == s }
}

// NameContains matches nodes whose name contains s.
func NameContains(s string) Predicate {
	return func(n *Node) bool { return strings.Contains(n.Name, s) }
}

// RoleIs matches nodes with the given AT-SPI role name.
func RoleIs(role string) Predicate {
	return func(n *Node) bool { return n.Role == role }
}

func Showing(n *Node) bool   { return n.States.Showing }
func Sensitive(n *Node) bool { return n.States.Sensitive }
func Focused(n *Node) bool   { return n.States.Focused }

// All matches when every predicate matches.
func All(preds ...Predicate) Predicate {
	return func(n *Node) bool {
		for _, p := range preds {
			if !p(n) {
				return false
			}
		}
		return true
	}
}

// Any matches when at least one predicate matches.
func Any(preds ...Predicate) Predicate {
	return func(n *Node) bool {
		for _, p := range preds {
			if p(n) {
				return true
			}
		}
		return false
	}
}

// Named builds the name/role predicate used by most steps. An empty name
// or role acts as a wildcard.
func Named(name, role string) Predicate {
	return func(n *Node) bool {
		return (name == "" || n.Name == name) && (role == "" || n.Role == role)
	}
}

// FindChildren returns every descendant of n (n itself excluded) that
// matches, in depth-first pre-order.
func (n *Node) FindChildren(p Predicate) []*Node {
	var result []*Node
	for _, c := range n.Children {
		if p(c) {
			result = append(result, c)
		}
		result = append(result, c.FindChildren(p)...)
	}
	return result
}

// FindChild returns the first matching descendant in depth-first pre-order.
func (n *Node) FindChild(p Predicate) (*Node, error) {
	if found := n.findFirst(p); found != nil {
		return found, nil
	}
	return nil, ErrNotFound
}

func (n *Node) findFirst(p Predicate) *Node {
	for _, c := range n.Children {
		if p(c) {
			return c
		}
		if found := c.findFirst(p); found != nil {
			return found
		}
	}
	return nil
}

// Child finds the first descendant with the given name and role.
func (n *Node) Child(name, role string) (*Node, error) {
	found, err := n.FindChild(Named(name, role))
	if err != nil {
		return nil, fmt.Errorf("%w: name=%q role=%q under %s", err, name, role, n)
	}
	return found, nil
}

// ChildAt returns the i-th direct child.
func (n *Node) ChildAt(i int) (*Node, error) {
	if i < 0 || i >= len(n.Children) {
		return nil, fmt.Errorf("%w: %s has %d children, wanted index %d", ErrNotFound, n, len(n.Children), i)
	}
	return n.Children[i], nil
}

// Sibling looks for a name/role match under n's parent. It mirrors the
// common "find a label, then its neighbouring control" lookup.
func (n *Node) Sibling(name, role string) (*Node, error) {
	if n.Parent == nil {
		return nil, fmt.Errorf("%w: %s has no parent", ErrNotFound, n)
	}
	return n.Parent.Child(name, role)
}

// CountMatching returns the number of matching descendants.
func (n *Node) CountMatching(p Predicate) int {
	return len(n.FindChildren(p))
}
