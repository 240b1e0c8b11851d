package metrics

import (
	"math"

	"github.com/san-kum/teleop/internal/dynamo"
)

// ControlEffort is the mean absolute command per tick, linear and angular
// parts summed.
type ControlEffort struct {
	name    string
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(pose dynamo.Pose, cmd dynamo.Twist, t float64) {
	c.sum += math.Abs(cmd.Linear.X) + math.Abs(cmd.Linear.Y) + math.Abs(cmd.Linear.Z)
	c.sum += math.Abs(cmd.Angular.X) + math.Abs(cmd.Angular.Y) + math.Abs(cmd.Angular.Z)
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}
