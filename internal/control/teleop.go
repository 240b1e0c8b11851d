package control

import (
	"github.com/san-kum/teleop/internal/dynamo"
	"github.com/san-kum/teleop/internal/input"
)

// Speeds are the fixed command magnitudes.
type Speeds struct {
	Linear  float64 // m/s along body X
	Angular float64 // rad/s about Z
}

// Decision is the outcome of one batch of events.
type Decision struct {
	Command dynamo.Twist
	Quit    bool
	Reset   bool
	Stopped bool
	// Actions lists the matched actions in the order they were applied.
	Actions []Action
}

// Teleop is the edge-triggered keyboard controller. It keeps no state
// between batches: every Decide starts from the zero command.
type Teleop struct {
	keymap Keymap
	speeds Speeds
}

func NewTeleop(keymap Keymap, speeds Speeds) *Teleop {
	if keymap == nil {
		keymap = DefaultKeymap()
	}
	return &Teleop{keymap: keymap, speeds: speeds}
}

func (t *Teleop) Keymap() Keymap { return t.keymap }
func (t *Teleop) Speeds() Speeds { return t.speeds }

// Decide maps one poll worth of events to a command. A Quit event ends
// processing at once; events after it in the batch are ignored.
func (t *Teleop) Decide(events []input.Event) Decision {
	var d Decision

	for _, ev := range events {
		if ev.State != input.Triggered {
			continue
		}
		a := t.keymap.Lookup(ev.Key)
		if a == None {
			continue
		}
		d.Actions = append(d.Actions, a)

		switch a {
		case Forward:
			d.Command.Linear = dynamo.Vec3{X: t.speeds.Linear}
		case Backward:
			d.Command.Linear = dynamo.Vec3{X: -t.speeds.Linear}
		case TurnLeft:
			d.Command.Angular = dynamo.Vec3{Z: t.speeds.Angular}
		case TurnRight:
			d.Command.Angular = dynamo.Vec3{Z: -t.speeds.Angular}
		case Stop:
			d.Stopped = true
		case Reset:
			d.Reset = true
		case Quit:
			d.Quit = true
			d.Command = dynamo.Twist{}
			return d
		}
	}

	if d.Stopped {
		d.Command = dynamo.Twist{}
	}
	return d
}
