//go:build linux

package atspi

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/desktopqa/terminal-bdd/internal/platform"
)

// X keysyms for the named keys the steps use.
var namedKeysyms = map[string]uint32{
	"Return":    0xff0d,
	"Escape":    0xff1b,
	"Tab":       0xff09,
	"BackSpace": 0xff08,
	"Delete":    0xffff,
	"Home":      0xff50,
	"Left":      0xff51,
	"Up":        0xff52,
	"Right":     0xff53,
	"Down":      0xff54,
	"Page_Up":   0xff55,
	"Page_Down": 0xff56,
	"End":       0xff57,
	"Insert":    0xff63,
	"Menu":      0xff67,
	"space":     0x0020,
	"Shift":     0xffe1,
	"Ctrl":      0xffe3,
	"Alt":       0xffe9,
	"Super":     0xffeb,
}

// Modifier masks understood by KEY_LOCKMODIFIERS.
var modifierMasks = map[string]uint32{
	"Shift": 1 << 0,
	"Ctrl":  1 << 2,
	"Alt":   1 << 3,
	"Super": 1 << 6,
}

// keysym resolves a canonical key name (see platform.CanonicalKey) to an
// X keysym. Single characters map through the Latin-1 / Unicode rules.
func keysym(name string) (uint32, error) {
	if ks, ok := namedKeysyms[name]; ok {
		return ks, nil
	}
	if len(name) >= 2 && name[0] == 'F' {
		var n int
		if _, err := fmt.Sscanf(name[1:], "%d", &n); err == nil && n >= 1 && n <= 35 {
			return 0xffbe + uint32(n-1), nil
		}
	}
	if utf8.RuneCountInString(name) == 1 {
		r, _ := utf8.DecodeRuneInString(name)
		return runeKeysym(r), nil
	}
	return 0, fmt.Errorf("unknown key %q", name)
}

// comboKeysyms resolves a combo to its modifier mask and key keysym.
// Letter keys use the lowercase keysym: the registry derives modifiers
// from the keysym, so "<Ctrl><A>" would otherwise also press Shift.
func comboKeysyms(combo string) (uint32, uint32, error) {
	c, err := platform.ParseCombo(combo)
	if err != nil {
		return 0, 0, err
	}
	key := c.Key
	if len(key) == 1 && key[0] >= 'A' && key[0] <= 'Z' {
		key = strings.ToLower(key)
	}
	ks, err := keysym(key)
	if err != nil {
		return 0, 0, err
	}
	var mask uint32
	for _, m := range c.Modifiers {
		mask |= modifierMasks[m]
	}
	return mask, ks, nil
}

func runeKeysym(r rune) uint32 {
	if (r >= 0x20 && r <= 0x7e) || (r >= 0xa0 && r <= 0xff) {
		return uint32(r)
	}
	return 0x01000000 | uint32(r)
}
