package control

import (
	"fmt"
	"sort"
	"strings"

	"github.com/san-kum/teleop/internal/input"
)

type Action int

const (
	None Action = iota
	Forward
	Backward
	TurnLeft
	TurnRight
	Stop
	Reset
	Quit
)

var actionNames = map[Action]string{
	None:      "none",
	Forward:   "forward",
	Backward:  "backward",
	TurnLeft:  "turn_left",
	TurnRight: "turn_right",
	Stop:      "stop",
	Reset:     "reset",
	Quit:      "quit",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

func ParseAction(s string) (Action, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for a, name := range actionNames {
		if name == s {
			return a, nil
		}
	}
	return None, fmt.Errorf("unknown action: %s", s)
}

// Keymap binds keys to actions. Several keys may share an action.
type Keymap map[input.Key]Action

// DefaultKeymap binds i/k/j/l/q like the classic demo, plus the arrow
// keys, space for stop and r for reset.
func DefaultKeymap() Keymap {
	return Keymap{
		"i":     Forward,
		"k":     Backward,
		"j":     TurnLeft,
		"l":     TurnRight,
		"q":     Quit,
		"up":    Forward,
		"down":  Backward,
		"left":  TurnLeft,
		"right": TurnRight,
		"space": Stop,
		"r":     Reset,
	}
}

// With returns a copy of m with the bindings in overrides applied.
// Overrides map key names to action names; the action "none" unbinds a
// key.
func (m Keymap) With(overrides map[string]string) (Keymap, error) {
	out := make(Keymap, len(m)+len(overrides))
	for k, a := range m {
		out[k] = a
	}
	for key, name := range overrides {
		a, err := ParseAction(name)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		k := input.KeyFromString(key)
		if a == None {
			delete(out, k)
			continue
		}
		out[k] = a
	}
	return out, nil
}

// Keys returns the keys bound to a, sorted.
func (m Keymap) Keys(a Action) []input.Key {
	var keys []input.Key
	for k, bound := range m {
		if bound == a {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Lookup returns the action bound to key, or None.
func (m Keymap) Lookup(key input.Key) Action {
	return m[key]
}
