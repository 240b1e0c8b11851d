// Package engine defines the physics and visualization collaborator the
// teleop loop drives, and ships an in-process kinematic implementation.
//
// A [Session] is an explicit handle to one simulated world. Nothing in
// the package is global: every [Engine.Connect] call creates an
// independent world.
package engine

import (
	"context"
	"errors"

	"github.com/san-kum/teleop/internal/dynamo"
	"github.com/san-kum/teleop/internal/input"
)

// DefaultTimeStep matches the usual 240 Hz rigid-body engine default.
const DefaultTimeStep = 1.0 / 240.0

// ErrNoKeyboard is returned when a GUI session is requested without an
// input source.
var ErrNoKeyboard = errors.New("engine: gui mode requires a keyboard source")

type Mode int

const (
	// ModeGUI attaches a visible rendering surface and a keyboard.
	ModeGUI Mode = iota
	// ModeDirect runs without a rendering surface.
	ModeDirect
)

func (m Mode) String() string {
	if m == ModeDirect {
		return "direct"
	}
	return "gui"
}

type Options struct {
	Mode Mode
	// Keyboard is the input collaborator. Optional in ModeDirect.
	Keyboard input.Source
	// TimeStep is the fixed step in seconds; DefaultTimeStep if zero.
	TimeStep float64
	// Integrator names the body integrator ("euler", "rk4").
	Integrator string
	// Catalog resolves asset references; DefaultCatalog if nil.
	Catalog *Catalog
}

type Engine interface {
	Connect(ctx context.Context, opts Options) (Session, error)
}

// Session is one connected world. Methods are not safe for concurrent
// use; the teleop loop owns the session.
type Session interface {
	SetGravity(g dynamo.Vec3) error
	LoadStaticSurface(ref string) (dynamo.BodyID, error)
	LoadBody(ref string, pos dynamo.Vec3, orn dynamo.Quat) (dynamo.BodyID, error)
	// Step advances the world by one fixed time step.
	Step() error
	Pose(id dynamo.BodyID) (dynamo.Pose, error)
	// PollKeyboard returns the key events since the previous poll, in
	// arrival order.
	PollKeyboard() []input.Event
	// SetVelocity overwrites the body's linear and angular velocity.
	SetVelocity(id dynamo.BodyID, cmd dynamo.Twist) error
	// ResetPose teleports the body and zeroes its velocity.
	ResetPose(id dynamo.BodyID, pose dynamo.Pose) error
	IsConnected() bool
	Disconnect() error
}
