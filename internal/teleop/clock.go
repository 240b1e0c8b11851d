package teleop

import "time"

// Clock supplies wall time and the per-tick sleep.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time        { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// RealClock returns the system clock.
func RealClock() Clock { return realClock{} }
