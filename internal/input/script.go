package input

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Script replays a fixed key sequence, one Poll per tick. It drives
// headless runs and recordings.
type Script struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Steps       []ScriptStep `yaml:"steps"`
	// Linger keeps the source open for this many polls after the last
	// step before it reports Closed.
	Linger int `yaml:"linger"`

	tick int
	next int
}

// ScriptStep presses Key on tick Tick (0-based). State defaults to
// "triggered"; "down" and "released" are also accepted.
type ScriptStep struct {
	Tick  int    `yaml:"tick"`
	Key   Key    `yaml:"key"`
	State string `yaml:"state"`
}

// LoadScript loads a script from a YAML file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScript(data)
}

func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	sort.SliceStable(s.Steps, func(i, j int) bool { return s.Steps[i].Tick < s.Steps[j].Tick })
	return &s, nil
}

func (s *Script) validate() error {
	for i, step := range s.Steps {
		if step.Tick < 0 {
			return fmt.Errorf("step %d: negative tick %d", i+1, step.Tick)
		}
		if step.Key == "" {
			return fmt.Errorf("step %d: missing key", i+1)
		}
		if _, err := parseState(step.State); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	if s.Linger < 0 {
		return fmt.Errorf("negative linger %d", s.Linger)
	}
	return nil
}

func parseState(s string) (KeyState, error) {
	switch s {
	case "", "triggered":
		return Triggered, nil
	case "down":
		return Down, nil
	case "released":
		return Released, nil
	}
	return Triggered, fmt.Errorf("unknown key state: %s", s)
}

func (s *Script) Poll() []Event {
	var events []Event
	for s.next < len(s.Steps) && s.Steps[s.next].Tick <= s.tick {
		step := s.Steps[s.next]
		state, _ := parseState(step.State)
		events = append(events, Event{Key: step.Key, State: state})
		s.next++
	}
	s.tick++
	return events
}

// Closed reports true once every step was delivered and Linger further
// polls have passed.
func (s *Script) Closed() bool {
	if s.next < len(s.Steps) {
		return false
	}
	last := 0
	if len(s.Steps) > 0 {
		last = s.Steps[len(s.Steps)-1].Tick + 1
	}
	return s.tick >= last+s.Linger
}
