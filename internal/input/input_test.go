package input

import (
	"testing"
	"time"
)

func TestKeyboardEdgeDetection(t *testing.T) {
	kb := NewKeyboard(500 * time.Millisecond)
	t0 := time.Unix(1000, 0)

	kb.PressAt("i", t0)
	kb.PressAt("i", t0.Add(30*time.Millisecond))
	kb.PressAt("i", t0.Add(60*time.Millisecond))

	events := kb.Poll()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].State != Triggered {
		t.Errorf("first press should be triggered, got %s", events[0].State)
	}
	for i := 1; i < 3; i++ {
		if events[i].State != Down {
			t.Errorf("repeat %d should be down, got %s", i, events[i].State)
		}
	}

	kb.PressAt("i", t0.Add(2*time.Second))
	events = kb.Poll()
	if len(events) != 1 || events[0].State != Triggered {
		t.Errorf("press after repeat window should trigger, got %v", events)
	}
}

func TestKeyboardSteadyTapping(t *testing.T) {
	kb := NewKeyboard(DefaultRepeatWindow)
	t0 := time.Unix(1000, 0)

	for i := 0; i < 6; i++ {
		kb.PressAt("i", t0.Add(time.Duration(i)*400*time.Millisecond))
	}

	want := []KeyState{Triggered, Down, Triggered, Triggered, Triggered, Triggered}
	events := kb.Poll()
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(events))
	}
	for i, ev := range events {
		if ev.State != want[i] {
			t.Errorf("tap %d: got %s, want %s", i, ev.State, want[i])
		}
	}
}

func TestKeyboardHeldKeyStaysDown(t *testing.T) {
	kb := NewKeyboard(DefaultRepeatWindow)
	t0 := time.Unix(1000, 0)

	// auto-repeat delay, then fast repeats
	offsets := []time.Duration{0, 500, 540, 580, 620, 660}
	for _, ms := range offsets {
		kb.PressAt("j", t0.Add(ms*time.Millisecond))
	}

	events := kb.Poll()
	if len(events) != len(offsets) {
		t.Fatalf("expected %d events, got %d", len(offsets), len(events))
	}
	if events[0].State != Triggered {
		t.Errorf("first press should be triggered, got %s", events[0].State)
	}
	for i := 1; i < len(events); i++ {
		if events[i].State != Down {
			t.Errorf("repeat %d should be down, got %s", i, events[i].State)
		}
	}
}

func TestKeyboardReleaseRearms(t *testing.T) {
	kb := NewKeyboard(time.Second)
	t0 := time.Unix(1000, 0)

	kb.PressAt("j", t0)
	kb.Release("j")
	kb.PressAt("j", t0.Add(10*time.Millisecond))

	events := kb.Poll()
	want := []KeyState{Triggered, Released, Triggered}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(events))
	}
	for i, s := range want {
		if events[i].State != s {
			t.Errorf("event %d: expected %s, got %s", i, s, events[i].State)
		}
	}
}

func TestKeyboardPollDrains(t *testing.T) {
	kb := NewKeyboard(0)
	kb.Trigger("q")
	kb.Trigger("q")

	if got := len(kb.Poll()); got != 2 {
		t.Errorf("expected 2 events, got %d", got)
	}
	if got := kb.Poll(); got != nil {
		t.Errorf("expected empty poll, got %v", got)
	}
}

func TestKeyboardClose(t *testing.T) {
	kb := NewKeyboard(0)
	kb.Trigger("i")
	kb.Close()
	kb.Trigger("k")

	if !kb.Closed() {
		t.Error("keyboard should report closed")
	}
	events := kb.Poll()
	if len(events) != 1 || events[0].Key != "i" {
		t.Errorf("expected only the pre-close event, got %v", events)
	}
}

func TestKeyFromString(t *testing.T) {
	tests := []struct {
		in   string
		want Key
	}{
		{" ", "space"},
		{"I", "i"},
		{"up", "up"},
	}
	for _, tt := range tests {
		if got := KeyFromString(tt.in); got != tt.want {
			t.Errorf("KeyFromString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

const squareScript = `
name: nudge
steps:
  - tick: 2
    key: j
  - tick: 0
    key: i
  - tick: 2
    key: i
    state: down
linger: 1
`

func TestScriptReplay(t *testing.T) {
	s, err := ParseScript([]byte(squareScript))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if s.Name != "nudge" {
		t.Errorf("expected name nudge, got %s", s.Name)
	}

	tick0 := s.Poll()
	if len(tick0) != 1 || tick0[0].Key != "i" || tick0[0].State != Triggered {
		t.Errorf("tick 0: unexpected events %v", tick0)
	}
	if tick1 := s.Poll(); len(tick1) != 0 {
		t.Errorf("tick 1: expected no events, got %v", tick1)
	}

	tick2 := s.Poll()
	if len(tick2) != 2 {
		t.Fatalf("tick 2: expected 2 events, got %v", tick2)
	}
	if tick2[0].Key != "j" || tick2[1].State != Down {
		t.Errorf("tick 2: file order not kept for equal ticks: %v", tick2)
	}

	if s.Closed() {
		t.Error("script should linger one poll")
	}
	s.Poll()
	if !s.Closed() {
		t.Error("script should be closed after linger")
	}
}

func TestScriptValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"negative tick", "steps: [{tick: -1, key: i}]"},
		{"missing key", "steps: [{tick: 0}]"},
		{"bad state", "steps: [{tick: 0, key: i, state: pressed}]"},
		{"negative linger", "linger: -2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseScript([]byte(tt.yaml)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
