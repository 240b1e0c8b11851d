// Package input models keyboard events as the teleop loop consumes them.
//
// A [Source] delivers an ordered batch of [Event] values per poll. Each
// event carries a key identity and a transition state; only
// [Triggered] events move the robot.
//
// Sources:
//
//   - [Keyboard]: thread-safe queue fed by a terminal or network frontend;
//     folds terminal auto-repeat into [Down] events
//   - [Script]: replays a YAML key script, one poll per tick
package input

import "strings"

// Key identifies a physical or logical key, e.g. "i", "up", "space".
type Key string

// KeyFromString normalizes a frontend key name.
func KeyFromString(s string) Key {
	switch s {
	case " ":
		return "space"
	}
	return Key(strings.ToLower(s))
}

type KeyState int

const (
	// Triggered is reported once, on the poll following the press.
	Triggered KeyState = iota
	// Down is reported while a key stays held after its first poll.
	Down
	// Released is reported once, when a held key goes up.
	Released
)

func (s KeyState) String() string {
	switch s {
	case Triggered:
		return "triggered"
	case Down:
		return "down"
	case Released:
		return "released"
	}
	return "unknown"
}

type Event struct {
	Key   Key
	State KeyState
}

// Source is the input collaborator polled once per tick.
type Source interface {
	// Poll drains the events that arrived since the previous poll, in
	// arrival order.
	Poll() []Event
	// Closed reports that the source will never deliver again, e.g. the
	// terminal window was closed.
	Closed() bool
}
