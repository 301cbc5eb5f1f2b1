//go:build linux

package atspi

import "github.com/desktopqa/terminal-bdd/internal/model"

// AtspiStateType bit positions.
const (
	stateChecked   = 4
	stateEditable  = 7
	stateFocused   = 12
	stateSelected  = 23
	stateSensitive = 24
	stateShowing   = 25
	stateVisible   = 30
)

// decodeStates converts the two-word AT-SPI state set into model.States.
func decodeStates(words []uint32) model.States {
	has := func(bit uint) bool {
		w := bit / 32
		if int(w) >= len(words) {
			return false
		}
		return words[w]&(1<<(bit%32)) != 0
	}
	return model.States{
		Showing:   has(stateShowing),
		Visible:   has(stateVisible),
		Sensitive: has(stateSensitive),
		Focused:   has(stateFocused),
		Selected:  has(stateSelected),
		Checked:   has(stateChecked),
		Editable:  has(stateEditable),
	}
}
