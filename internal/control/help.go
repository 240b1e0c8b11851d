package control

import (
	"strings"

	"github.com/san-kum/teleop/internal/input"
)

var helpLines = []struct {
	actions []Action
	text    string
}{
	{[]Action{Forward, Backward}, "Move forward/backward"},
	{[]Action{TurnLeft, TurnRight}, "Turn left/right"},
	{[]Action{Quit}, "Quit simulation"},
	{[]Action{Stop}, "Emergency stop"},
	{[]Action{Reset}, "Reset robot"},
}

// Instructions renders the control help for m. Each action is shown by
// its first bound key; lines whose actions are all unbound are left out.
func (m Keymap) Instructions() string {
	var b strings.Builder
	b.WriteString("Controls:\n")
	for _, line := range helpLines {
		labels := make([]string, 0, len(line.actions))
		for _, a := range line.actions {
			keys := m.Keys(a)
			if len(keys) == 0 {
				labels = append(labels, "-")
				continue
			}
			labels = append(labels, keyLabel(keys[0]))
		}
		if allUnbound(labels) {
			continue
		}
		b.WriteString(strings.Join(labels, "/") + " - " + line.text + "\n")
	}
	return b.String()
}

func keyLabel(k input.Key) string {
	if len(k) == 1 {
		return strings.ToUpper(string(k))
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}

func allUnbound(labels []string) bool {
	for _, l := range labels {
		if l != "-" {
			return false
		}
	}
	return true
}
