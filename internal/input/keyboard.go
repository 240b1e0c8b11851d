package input

import (
	"time"

	"github.com/sasha-s/go-deadlock"
)

// DefaultRepeatWindow is longer than the usual terminal auto-repeat delay,
// so the first repeat of a held key is classified as Down.
const DefaultRepeatWindow = 600 * time.Millisecond

// RepeatRate bounds the gap between auto-repeats once a key is held.
const RepeatRate = 100 * time.Millisecond

type holdState uint8

const (
	// fresh: last press was Triggered after an idle gap.
	fresh holdState = iota
	held
	tapping
)

type pressRecord struct {
	at    time.Time
	state holdState
}

// Keyboard is a Source fed by frontends running on other goroutines.
//
// Terminals do not report key releases, only repeated presses while a
// key is held. Repeats are classified with two thresholds: the first
// repeat after a fresh press is Down if it arrives within RepeatWindow,
// later presses stay Down only while they arrive faster than RepeatRate.
// A slower press re-arms the key, so steady tapping keeps triggering.
type Keyboard struct {
	mu           deadlock.Mutex
	pending      []Event
	lastPress    map[Key]pressRecord
	repeatWindow time.Duration
	closed       bool
	now          func() time.Time
}

func NewKeyboard(repeatWindow time.Duration) *Keyboard {
	if repeatWindow <= 0 {
		repeatWindow = DefaultRepeatWindow
	}
	return &Keyboard{
		pending:      make([]Event, 0, 8),
		lastPress:    make(map[Key]pressRecord),
		repeatWindow: repeatWindow,
		now:          time.Now,
	}
}

// Press records a key press at the current time.
func (k *Keyboard) Press(key Key) {
	k.PressAt(key, k.now())
}

func (k *Keyboard) PressAt(key Key, at time.Time) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return
	}

	state, hold := k.classify(key, at)
	k.lastPress[key] = pressRecord{at: at, state: hold}
	k.pending = append(k.pending, Event{Key: key, State: state})
}

func (k *Keyboard) classify(key Key, at time.Time) (KeyState, holdState) {
	last, ok := k.lastPress[key]
	if !ok {
		return Triggered, fresh
	}
	gap := at.Sub(last.at)
	switch {
	case gap >= k.repeatWindow:
		return Triggered, fresh
	case gap < RepeatRate:
		return Down, held
	case last.state == fresh:
		return Down, held
	default:
		return Triggered, tapping
	}
}

// Trigger queues a Triggered event without repeat detection. Remote
// commands use it: every command is a discrete press.
func (k *Keyboard) Trigger(key Key) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return
	}
	k.pending = append(k.pending, Event{Key: key, State: Triggered})
}

func (k *Keyboard) Release(key Key) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return
	}
	delete(k.lastPress, key)
	k.pending = append(k.pending, Event{Key: key, State: Released})
}

func (k *Keyboard) Poll() []Event {
	k.mu.Lock()
	defer k.mu.Unlock()

	if len(k.pending) == 0 {
		return nil
	}
	events := k.pending
	k.pending = make([]Event, 0, cap(events))
	return events
}

// Close marks the keyboard closed. Pending events are kept so the final
// poll still sees them.
func (k *Keyboard) Close() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.closed = true
}

func (k *Keyboard) Closed() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.closed
}
