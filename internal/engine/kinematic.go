package engine

import (
	"context"
	"fmt"

	"github.com/san-kum/teleop/internal/dynamo"
	"github.com/san-kum/teleop/internal/input"
	"github.com/san-kum/teleop/internal/integrators"
)

// Kinematic is an Engine whose worlds integrate commanded velocities and
// gravity and rest bodies on static surfaces. There is no collision
// response between dynamic bodies, no friction and no joints.
type Kinematic struct {
	catalog *Catalog
}

func NewKinematic(catalog *Catalog) *Kinematic {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Kinematic{catalog: catalog}
}

func (k *Kinematic) Connect(ctx context.Context, opts Options) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.Mode == ModeGUI && opts.Keyboard == nil {
		return nil, ErrNoKeyboard
	}

	dt := opts.TimeStep
	if dt == 0 {
		dt = DefaultTimeStep
	}
	if dt < 0 {
		return nil, fmt.Errorf("engine: time step must be positive, got %f", dt)
	}

	name := opts.Integrator
	if name == "" {
		name = "euler"
	}
	if _, err := integrators.New(name); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	catalog := k.catalog
	if opts.Catalog != nil {
		catalog = catalog.Merge(opts.Catalog)
	}

	return &world{
		mode:       opts.Mode,
		keyboard:   opts.Keyboard,
		dt:         dt,
		integrator: name,
		catalog:    catalog,
		bodies:     make(map[dynamo.BodyID]*body),
	}, nil
}

// State layout of a dynamic body.
const (
	posX = iota
	posY
	posZ
	quatW
	quatX
	quatY
	quatZ
	velX
	velY
	velZ
	omegaX
	omegaY
	omegaZ
	stateDim
)

type body struct {
	id     dynamo.BodyID
	ref    string
	asset  Asset
	state  dynamo.State
	integ  dynamo.Integrator
	static bool
}

func (b *body) pose() dynamo.Pose {
	x := b.state
	return dynamo.Pose{
		Position:    dynamo.Vec3{X: x[posX], Y: x[posY], Z: x[posZ]},
		Orientation: dynamo.Quat{W: x[quatW], X: x[quatX], Y: x[quatY], Z: x[quatZ]},
	}
}

func (b *body) setPose(p dynamo.Pose) {
	q := p.Orientation.Normalize()
	b.state[posX], b.state[posY], b.state[posZ] = p.Position.X, p.Position.Y, p.Position.Z
	b.state[quatW], b.state[quatX], b.state[quatY], b.state[quatZ] = q.W, q.X, q.Y, q.Z
}

func (b *body) setTwist(t dynamo.Twist) {
	b.state[velX], b.state[velY], b.state[velZ] = t.Linear.X, t.Linear.Y, t.Linear.Z
	b.state[omegaX], b.state[omegaY], b.state[omegaZ] = t.Angular.X, t.Angular.Y, t.Angular.Z
}

// Derive implements dynamo.System: position follows linear velocity, the
// orientation follows angular velocity and u carries gravity.
func (b *body) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	dx := make(dynamo.State, stateDim)
	dx[posX], dx[posY], dx[posZ] = x[velX], x[velY], x[velZ]

	q := dynamo.Quat{W: x[quatW], X: x[quatX], Y: x[quatY], Z: x[quatZ]}
	dq := q.Derivative(dynamo.Vec3{X: x[omegaX], Y: x[omegaY], Z: x[omegaZ]})
	dx[quatW], dx[quatX], dx[quatY], dx[quatZ] = dq.W, dq.X, dq.Y, dq.Z

	if len(u) >= 3 {
		dx[velX], dx[velY], dx[velZ] = u[0], u[1], u[2]
	}
	return dx
}

func (b *body) StateDim() int   { return stateDim }
func (b *body) ControlDim() int { return 3 }

type world struct {
	mode       Mode
	keyboard   input.Source
	dt         float64
	t          float64
	steps      int
	gravity    dynamo.Vec3
	integrator string
	catalog    *Catalog
	bodies     map[dynamo.BodyID]*body
	order      []dynamo.BodyID
	nextID     dynamo.BodyID
	closed     bool
}

func (w *world) IsConnected() bool {
	if w.closed {
		return false
	}
	return w.keyboard == nil || !w.keyboard.Closed()
}

func (w *world) Disconnect() error {
	if w.closed {
		return dynamo.ErrNotConnected
	}
	w.closed = true
	w.bodies = nil
	w.order = nil
	return nil
}

func (w *world) SetGravity(g dynamo.Vec3) error {
	if w.closed {
		return dynamo.ErrNotConnected
	}
	w.gravity = g
	return nil
}

func (w *world) LoadStaticSurface(ref string) (dynamo.BodyID, error) {
	if w.closed {
		return 0, dynamo.ErrNotConnected
	}
	asset, err := w.catalog.Lookup(ref)
	if err != nil {
		return 0, err
	}
	if !asset.Static {
		return 0, fmt.Errorf("engine: %s is not a static surface", ref)
	}

	b := w.add(ref, asset)
	b.static = true
	b.state[posZ] = asset.Height
	return b.id, nil
}

func (w *world) LoadBody(ref string, pos dynamo.Vec3, orn dynamo.Quat) (dynamo.BodyID, error) {
	if w.closed {
		return 0, dynamo.ErrNotConnected
	}
	asset, err := w.catalog.Lookup(ref)
	if err != nil {
		return 0, err
	}
	if asset.Static {
		return 0, fmt.Errorf("engine: load %s: %w", ref, dynamo.ErrStaticBody)
	}

	integ, err := integrators.New(w.integrator)
	if err != nil {
		return 0, err
	}

	b := w.add(ref, asset)
	b.integ = integ
	b.setPose(dynamo.Pose{Position: pos, Orientation: orn})
	return b.id, nil
}

func (w *world) add(ref string, asset Asset) *body {
	w.nextID++
	b := &body{
		id:    w.nextID,
		ref:   ref,
		asset: asset,
		state: make(dynamo.State, stateDim),
	}
	b.state[quatW] = 1
	w.bodies[b.id] = b
	w.order = append(w.order, b.id)
	return b
}

func (w *world) Step() error {
	if w.closed {
		return dynamo.ErrNotConnected
	}

	u := dynamo.Control{w.gravity.X, w.gravity.Y, w.gravity.Z}
	for _, id := range w.order {
		b := w.bodies[id]
		if b.static {
			continue
		}

		next := b.integ.Step(b, b.state, u, w.t, w.dt)
		if !next.IsValid() {
			return &dynamo.BodyError{Body: id, Op: "step", Wrapped: dynamo.ErrInvalidState}
		}
		b.state = next

		q := b.pose().Orientation.Normalize()
		b.state[quatW], b.state[quatX], b.state[quatY], b.state[quatZ] = q.W, q.X, q.Y, q.Z
		w.rest(b)
	}

	w.t += w.dt
	w.steps++
	return nil
}

// rest keeps b on top of the highest static surface below it.
func (w *world) rest(b *body) {
	floor, found := 0.0, false
	halfHeight := b.asset.HalfExtents[2]
	for _, id := range w.order {
		s := w.bodies[id]
		if !s.static || s.state[posZ] > b.state[posZ] {
			continue
		}
		if !found || s.state[posZ] > floor {
			floor, found = s.state[posZ], true
		}
	}
	if !found {
		return
	}

	if b.state[posZ]-halfHeight < floor {
		b.state[posZ] = floor + halfHeight
		if b.state[velZ] < 0 {
			b.state[velZ] = 0
		}
	}
}

func (w *world) lookup(id dynamo.BodyID) (*body, error) {
	if w.closed {
		return nil, dynamo.ErrNotConnected
	}
	b, ok := w.bodies[id]
	if !ok {
		return nil, &dynamo.BodyError{Body: id, Op: "lookup", Wrapped: dynamo.ErrUnknownBody}
	}
	return b, nil
}

func (w *world) Pose(id dynamo.BodyID) (dynamo.Pose, error) {
	b, err := w.lookup(id)
	if err != nil {
		return dynamo.Pose{}, err
	}
	return b.pose(), nil
}

func (w *world) SetVelocity(id dynamo.BodyID, cmd dynamo.Twist) error {
	b, err := w.lookup(id)
	if err != nil {
		return err
	}
	if b.static {
		return &dynamo.BodyError{Body: id, Op: "set velocity", Wrapped: dynamo.ErrStaticBody}
	}
	b.setTwist(cmd)
	return nil
}

func (w *world) ResetPose(id dynamo.BodyID, pose dynamo.Pose) error {
	b, err := w.lookup(id)
	if err != nil {
		return err
	}
	if b.static {
		return &dynamo.BodyError{Body: id, Op: "reset pose", Wrapped: dynamo.ErrStaticBody}
	}
	b.setPose(pose)
	b.setTwist(dynamo.Twist{})
	return nil
}

func (w *world) PollKeyboard() []input.Event {
	if w.closed || w.keyboard == nil {
		return nil
	}
	return w.keyboard.Poll()
}
