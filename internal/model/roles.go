package model

// RoleMap maps AT-SPI role names to compact codes used in tree dumps.
var RoleMap = map[string]string{
	"push button":       "btn",
	"toggle button":     "toggle",
	"label":             "txt",
	"text":              "input",
	"password text":     "input",
	"spin button":       "spin",
	"check box":         "chk",
	"radio button":      "radio",
	"combo box":         "combo",
	"menu bar":          "menubar",
	"menu":              "menu",
	"menu item":         "menuitem",
	"check menu item":   "menuitem",
	"radio menu item":   "menuitem",
	"page tab list":     "tabs",
	"page tab":          "tab",
	"terminal":          "term",
	"frame":             "window",
	"dialog":            "dialog",
	"alert":             "dialog",
	"filler":            "group",
	"panel":             "group",
	"scroll pane":       "scroll",
	"list":              "list",
	"list item":         "row",
	"table cell":        "cell",
	"tool bar":          "toolbar",
	"application":       "app",
	"separator":         "sep",
	"image":             "img",
	"color chooser":     "color",
	"popup menu":        "menu",
	"desktop frame":     "desktop",
	"tree table":        "list",
	"layered pane":      "group",
	"internal frame":    "window",
}

// MetaRoles maps meta-role names to the concrete AT-SPI roles they expand to.
var MetaRoles = map[string][]string{
	"menu items":  {"menu item", "check menu item", "radio menu item"},
	"interactive": {"push button", "toggle button", "check box", "radio button", "combo box", "spin button", "text", "menu item", "check menu item", "radio menu item", "page tab"},
	"windows":     {"frame", "dialog", "alert"},
}

// ExpandRoles expands any meta-roles in the given list to their concrete roles.
// Non-meta roles are passed through unchanged. Duplicates are removed.
func ExpandRoles(roles []string) []string {
	seen := make(map[string]bool, len(roles))
	var expanded []string
	for _, r := range roles {
		if concrete, ok := MetaRoles[r]; ok {
			for _, c := range concrete {
				if !seen[c] {
					seen[c] = true
					expanded = append(expanded, c)
				}
			}
		} else if !seen[r] {
			seen[r] = true
			expanded = append(expanded, r)
		}
	}
	return expanded
}

// ShortRole converts an AT-SPI role name to a compact code.
func ShortRole(role string) string {
	if short, ok := RoleMap[role]; ok {
		return short
	}
	return "other"
}

// RoleIn matches nodes whose role is one of roles after meta-role expansion.
func RoleIn(roles ...string) Predicate {
	set := make(map[string]bool)
	for _, r := range ExpandRoles(roles) {
		set[r] = true
	}
	return func(n *Node) bool { return set[n.Role] }
}
