package model

import (
	"fmt"
	"strings"
)

// FlatNode is a node with a path breadcrumb instead of children.
type FlatNode struct {
	Name   string `yaml:"name,omitempty" json:"name,omitempty"`
	Role   string `yaml:"r"              json:"r"`
	Text   string `yaml:"text,omitempty" json:"text,omitempty"`
	Bounds Bounds `yaml:"b"              json:"b"`
	States States `yaml:"s,omitempty"    json:"s,omitempty"`
	Path   string `yaml:"p,omitempty"    json:"p,omitempty"`
}

// Flatten converts a tree into a flat list. Each entry gets a path of
// compact role codes joined with " > ", starting below root.
func Flatten(root *Node) []FlatNode {
	var result []FlatNode
	for _, c := range root.Children {
		flattenRecursive(c, "", &result)
	}
	return result
}

func flattenRecursive(n *Node, parentPath string, result *[]FlatNode) {
	currentPath := ShortRole(n.Role)
	if parentPath != "" {
		currentPath = parentPath + " > " + currentPath
	}

	*result = append(*result, FlatNode{
		Name:   n.Name,
		Role:   n.Role,
		Text:   n.Text,
		Bounds: n.Bounds,
		States: n.States,
		Path:   currentPath,
	})

	for _, c := range n.Children {
		flattenRecursive(c, currentPath, result)
	}
}

// PruneHidden returns a copy of the tree without subtrees whose root is not
// showing. The root itself is always kept.
func PruneHidden(root *Node) *Node {
	cp := *root
	cp.Parent = nil
	cp.Children = nil
	for _, c := range root.Children {
		if !c.States.Showing {
			continue
		}
		cp.Children = append(cp.Children, PruneHidden(c))
	}
	return Link(&cp)
}

// Describe renders the matches of p under root, one per line, for use in
// assertion messages.
func Describe(root *Node, p Predicate, limit int) string {
	matches := root.FindChildren(p)
	if len(matches) == 0 {
		return "  (none)"
	}
	var b strings.Builder
	for i, m := range matches {
		if limit > 0 && i == limit {
			fmt.Fprintf(&b, "  ... and %d more\n", len(matches)-limit)
			break
		}
		fmt.Fprintf(&b, "  %s showing=%t sensitive=%t at (%d,%d,%d,%d)\n",
			m, m.States.Showing, m.States.Sensitive,
			m.Bounds.X, m.Bounds.Y, m.Bounds.Width, m.Bounds.Height)
	}
	return strings.TrimRight(b.String(), "\n")
}
