package control

import (
	"testing"

	"github.com/san-kum/teleop/internal/dynamo"
	"github.com/san-kum/teleop/internal/input"
)

var speeds = Speeds{Linear: 2.0, Angular: 1.0}

func pressed(keys ...input.Key) []input.Event {
	events := make([]input.Event, len(keys))
	for i, k := range keys {
		events[i] = input.Event{Key: k, State: input.Triggered}
	}
	return events
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name   string
		events []input.Event
		want   dynamo.Twist
	}{
		{"no events", nil, dynamo.Twist{}},
		{"forward", pressed("i"), dynamo.Twist{Linear: dynamo.Vec3{X: 2}}},
		{"backward", pressed("k"), dynamo.Twist{Linear: dynamo.Vec3{X: -2}}},
		{"turn left", pressed("j"), dynamo.Twist{Angular: dynamo.Vec3{Z: 1}}},
		{"turn right", pressed("l"), dynamo.Twist{Angular: dynamo.Vec3{Z: -1}}},
		{"arrow up", pressed("up"), dynamo.Twist{Linear: dynamo.Vec3{X: 2}}},
		{"forward and turn", pressed("i", "l"), dynamo.Twist{Linear: dynamo.Vec3{X: 2}, Angular: dynamo.Vec3{Z: -1}}},
		{"forward then backward", pressed("i", "k"), dynamo.Twist{Linear: dynamo.Vec3{X: -2}}},
		{"backward then forward", pressed("k", "i"), dynamo.Twist{Linear: dynamo.Vec3{X: 2}}},
		{"left then right", pressed("j", "l"), dynamo.Twist{Angular: dynamo.Vec3{Z: -1}}},
		{"unbound key", pressed("x"), dynamo.Twist{}},
		{"held key", []input.Event{{Key: "i", State: input.Down}}, dynamo.Twist{}},
		{"released key", []input.Event{{Key: "i", State: input.Released}}, dynamo.Twist{}},
		{"stop overrides", pressed("i", "space", "j"), dynamo.Twist{}},
	}

	tel := NewTeleop(DefaultKeymap(), speeds)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := tel.Decide(tt.events)
			if d.Command != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, d.Command)
			}
			if d.Quit {
				t.Error("unexpected quit")
			}
		})
	}
}

func TestDecideDoesNotCarryOver(t *testing.T) {
	tel := NewTeleop(nil, speeds)

	first := tel.Decide(pressed("i"))
	if first.Command.Linear.X != 2 {
		t.Fatalf("expected forward, got %+v", first.Command)
	}

	held := tel.Decide([]input.Event{{Key: "i", State: input.Down}})
	if !held.Command.IsZero() {
		t.Errorf("held key must not keep moving, got %+v", held.Command)
	}

	idle := tel.Decide(nil)
	if !idle.Command.IsZero() {
		t.Errorf("expected zero command, got %+v", idle.Command)
	}
}

func TestDecideQuit(t *testing.T) {
	tel := NewTeleop(DefaultKeymap(), speeds)

	d := tel.Decide(pressed("i", "q", "r"))
	if !d.Quit {
		t.Fatal("expected quit")
	}
	if !d.Command.IsZero() {
		t.Errorf("quit should leave a zero command, got %+v", d.Command)
	}
	if d.Reset {
		t.Error("events after quit must be ignored")
	}
	if len(d.Actions) != 2 || d.Actions[1] != Quit {
		t.Errorf("unexpected actions %v", d.Actions)
	}
}

func TestDecideReset(t *testing.T) {
	tel := NewTeleop(DefaultKeymap(), speeds)

	d := tel.Decide(pressed("r", "i"))
	if !d.Reset {
		t.Error("expected reset")
	}
	if d.Command.Linear.X != 2 {
		t.Errorf("reset should not cancel motion, got %+v", d.Command)
	}
}

func TestKeymapWith(t *testing.T) {
	km, err := DefaultKeymap().With(map[string]string{
		"w":  "forward",
		"i":  "none",
		"up": "Turn_Left",
	})
	if err != nil {
		t.Fatalf("with failed: %v", err)
	}

	if km.Lookup("w") != Forward {
		t.Error("w should be forward")
	}
	if km.Lookup("i") != None {
		t.Error("i should be unbound")
	}
	if km.Lookup("up") != TurnLeft {
		t.Error("up should be turn_left")
	}
	if DefaultKeymap().Lookup("i") != Forward {
		t.Error("default keymap must not be modified")
	}

	if _, err := DefaultKeymap().With(map[string]string{"x": "jump"}); err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestKeymapKeys(t *testing.T) {
	keys := DefaultKeymap().Keys(Forward)
	if len(keys) != 2 || keys[0] != "i" || keys[1] != "up" {
		t.Errorf("unexpected forward keys %v", keys)
	}
}

func TestParseAction(t *testing.T) {
	for a, name := range actionNames {
		got, err := ParseAction(name)
		if err != nil || got != a {
			t.Errorf("ParseAction(%q) = %v, %v", name, got, err)
		}
	}
	if Action(99).String() != "action(99)" {
		t.Errorf("unexpected string %q", Action(99).String())
	}
}
