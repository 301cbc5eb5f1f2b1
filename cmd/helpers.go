package cmd

import (
	"fmt"
	"strings"

	"github.com/desktopqa/terminal-bdd/internal/model"
	"github.com/desktopqa/terminal-bdd/internal/platform"
)

// parseRoles splits a comma-separated role list and expands meta-roles
// such as "menu items".
func parseRoles(s string) []string {
	var roles []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return model.ExpandRoles(roles)
}

// findQuery selects nodes for `find` and the find tool.
type findQuery struct {
	Text  string   // case-insensitive match on name or text
	Exact bool     // whole-field match instead of substring
	Roles []string // already expanded
	State string   // required state flag, e.g. "showing"
	Limit int      // 0 = unlimited
}

func textMatches(field, textLower string, exact bool) bool {
	if exact {
		return strings.EqualFold(field, textLower)
	}
	return strings.Contains(strings.ToLower(field), textLower)
}

// findNodes returns the flattened nodes of root matching q, in tree order.
func findNodes(root *model.Node, q findQuery) ([]model.FlatNode, error) {
	if q.State != "" {
		if _, err := (&model.Node{}).State(q.State); err != nil {
			return nil, err
		}
	}
	roleSet := make(map[string]bool, len(q.Roles))
	for _, r := range q.Roles {
		roleSet[r] = true
	}
	textLower := strings.ToLower(q.Text)

	var matches []model.FlatNode
	for _, n := range model.Flatten(root) {
		if len(roleSet) > 0 && !roleSet[n.Role] {
			continue
		}
		if q.Text != "" && !textMatches(n.Name, textLower, q.Exact) && !textMatches(n.Text, textLower, q.Exact) {
			continue
		}
		if q.State != "" {
			if ok, _ := (&model.Node{States: n.States}).State(q.State); !ok {
				continue
			}
		}
		matches = append(matches, n)
		if q.Limit > 0 && len(matches) == q.Limit {
			break
		}
	}
	return matches, nil
}

// readTree reads the tree of app, optionally without hidden subtrees.
func readTree(reader platform.Reader, app string, showingOnly bool) (*model.Node, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader not available on this platform")
	}
	root, err := reader.Tree(app)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", app, err)
	}
	if showingOnly {
		root = model.PruneHidden(root)
	}
	return root, nil
}
