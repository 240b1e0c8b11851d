// Package metrics summarises a teleop session as scalar values.
package metrics

import "github.com/san-kum/teleop/internal/dynamo"

// Metric accumulates one value over the ticks of a session.
type Metric interface {
	Name() string
	Observe(pose dynamo.Pose, cmd dynamo.Twist, t float64)
	Value() float64
	Reset()
}

// Standard returns the metrics recorded for every session.
func Standard() []Metric {
	return []Metric{NewDistance(), NewControlEffort()}
}

// Collect reads every metric into a map keyed by name.
func Collect(ms []Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}
