package teleop

import (
	"fmt"
	"io"
	"time"
)

// Reporter rate-limits pose output by accumulating elapsed time between
// calls to Due.
type Reporter struct {
	interval time.Duration
	acc      time.Duration
	last     time.Time
	started  bool
}

func NewReporter(interval time.Duration) *Reporter {
	return &Reporter{interval: interval}
}

// Due adds the time since the previous call and reports whether a full
// interval has accumulated. The first call only starts the accumulator.
// Long stalls yield a single report, not a burst.
func (r *Reporter) Due(now time.Time) bool {
	if !r.started {
		r.started = true
		r.last = now
		return false
	}

	if elapsed := now.Sub(r.last); elapsed > 0 {
		r.acc += elapsed
	}
	r.last = now

	if r.acc < r.interval {
		return false
	}
	r.acc -= r.interval
	if r.acc >= r.interval {
		r.acc = 0
	}
	return true
}

// Console is the plain-text pose sink.
type Console struct {
	w io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Report(s Sample) {
	fmt.Fprintln(c.w, FormatPose(s))
}

// FormatPose renders the classic "Position: ..., Orientation: ..." line.
func FormatPose(s Sample) string {
	return fmt.Sprintf("Position: %s, Orientation: %s", s.Pose.Position, s.Pose.Orientation)
}
