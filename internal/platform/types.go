package platform

import (
	"fmt"
	"strconv"
	"strings"
)

// MouseButton represents a mouse button.
type MouseButton int

const (
	MouseLeft MouseButton = iota
	MouseRight
	MouseMiddle
)

// Number returns the X11 button number (1 left, 2 middle, 3 right).
func (b MouseButton) Number() int {
	switch b {
	case MouseRight:
		return 3
	case MouseMiddle:
		return 2
	default:
		return 1
	}
}

// ParseResolution parses a "WIDTHxHEIGHT" string such as "1920x1080".
func ParseResolution(s string) (int, int, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid resolution %q: expected WIDTHxHEIGHT", s)
	}
	w, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid resolution %q: %w", s, err)
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid resolution %q: %w", s, err)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid resolution %q: dimensions must be positive", s)
	}
	return w, h, nil
}

// Combo is a parsed key combination.
type Combo struct {
	Modifiers []string // Canonical modifier names: Ctrl, Shift, Alt, Super
	Key       string   // Canonical key name
}

var modifierAliases = map[string]string{
	"ctrl": "Ctrl", "control": "Ctrl", "primary": "Ctrl",
	"shift": "Shift",
	"alt":   "Alt", "mod1": "Alt",
	"super": "Super", "meta": "Super", "mod4": "Super",
}

var keyAliases = map[string]string{
	"esc": "Escape", "escape": "Escape",
	"enter": "Return", "return": "Return",
	"del": "Delete", "delete": "Delete",
	"backspace": "BackSpace",
	"tab":       "Tab",
	"space":     "space",
	"up":        "Up", "down": "Down", "left": "Left", "right": "Right",
	"home": "Home", "end": "End",
	"pageup": "Page_Up", "page_up": "Page_Up",
	"pagedown": "Page_Down", "page_down": "Page_Down",
}

// CanonicalKey maps user-facing key names to X keysym names. Single
// characters are returned unchanged, as are names it does not know.
func CanonicalKey(name string) string {
	if k, ok := keyAliases[strings.ToLower(name)]; ok {
		return k
	}
	if len(name) > 1 && (name[0] == 'f' || name[0] == 'F') {
		if _, err := strconv.Atoi(name[1:]); err == nil {
			return "F" + name[1:]
		}
	}
	return name
}

// ParseCombo parses the "<Ctrl><Shift><T>" notation. A trailing bare key
// ("<Ctrl>a") is accepted too.
func ParseCombo(s string) (Combo, error) {
	var c Combo
	rest := strings.TrimSpace(s)
	var tokens []string
	for strings.HasPrefix(rest, "<") {
		end := strings.Index(rest, ">")
		if end < 0 {
			return Combo{}, fmt.Errorf("invalid key combo %q: unterminated <", s)
		}
		tokens = append(tokens, rest[1:end])
		rest = rest[end+1:]
	}
	if rest != "" {
		tokens = append(tokens, rest)
	}
	if len(tokens) == 0 {
		return Combo{}, fmt.Errorf("invalid key combo %q: empty", s)
	}
	for i, tok := range tokens {
		if mod, ok := modifierAliases[strings.ToLower(tok)]; ok && i < len(tokens)-1 {
			c.Modifiers = append(c.Modifiers, mod)
			continue
		}
		if i != len(tokens)-1 {
			return Combo{}, fmt.Errorf("invalid key combo %q: %q is not a modifier", s, tok)
		}
		c.Key = CanonicalKey(tok)
	}
	return c, nil
}

func (c Combo) String() string {
	var b strings.Builder
	for _, m := range c.Modifiers {
		b.WriteString("<" + m + ">")
	}
	b.WriteString("<" + c.Key + ">")
	return b.String()
}
