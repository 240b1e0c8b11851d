package metrics

import "github.com/san-kum/teleop/internal/dynamo"

// Distance is the path length travelled in the ground plane. Jumps larger
// than MaxJump between two observations (a pose reset) are not counted.
type Distance struct {
	name    string
	total   float64
	last    dynamo.Vec3
	started bool
}

const MaxJump = 1.0

func NewDistance() *Distance {
	return &Distance{name: "distance"}
}

func (d *Distance) Name() string { return d.name }

func (d *Distance) Observe(pose dynamo.Pose, cmd dynamo.Twist, t float64) {
	p := pose.Position
	p.Z = 0
	if d.started {
		if step := p.Sub(d.last).Norm(); step <= MaxJump {
			d.total += step
		}
	}
	d.last = p
	d.started = true
}

func (d *Distance) Value() float64 { return d.total }

func (d *Distance) Reset() {
	d.total = 0
	d.last = dynamo.Vec3{}
	d.started = false
}
