package dynamo

import (
	"fmt"
	"math"
)

// BodyID is an opaque handle to a body owned by an engine session.
type BodyID int

func (id BodyID) String() string {
	return fmt.Sprintf("body#%d", int(id))
}

type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

func (v Vec3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// String formats the vector as a tuple, e.g. "(0.000, 0.000, 1.000)".
func (v Vec3) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z)
}

// Quat is a rotation quaternion. The zero value is not a valid rotation;
// use IdentityQuat.
type Quat struct {
	W, X, Y, Z float64
}

var IdentityQuat = Quat{W: 1}

// QuatFromEuler builds a quaternion from roll, pitch and yaw (radians),
// applied in that order about the fixed X, Y and Z axes.
func QuatFromEuler(roll, pitch, yaw float64) Quat {
	sr, cr := math.Sincos(roll / 2)
	sp, cp := math.Sincos(pitch / 2)
	sy, cy := math.Sincos(yaw / 2)

	return Quat{
		W: cr*cp*cy + sr*sp*sy,
		X: sr*cp*cy - cr*sp*sy,
		Y: cr*sp*cy + sr*cp*sy,
		Z: cr*cp*sy - sr*sp*cy,
	}
}

func (q Quat) Mul(o Quat) Quat {
	return Quat{
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
	}
}

func (q Quat) Norm() float64 {
	return math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
}

// Normalize returns the unit quaternion. A degenerate quaternion
// normalizes to identity.
func (q Quat) Normalize() Quat {
	n := q.Norm()
	if n < 1e-12 {
		return IdentityQuat
	}
	return Quat{q.W / n, q.X / n, q.Y / n, q.Z / n}
}

// Derivative returns dq/dt for a world-frame angular velocity omega.
func (q Quat) Derivative(omega Vec3) Quat {
	w := Quat{0, omega.X, omega.Y, omega.Z}.Mul(q)
	return Quat{w.W * 0.5, w.X * 0.5, w.Y * 0.5, w.Z * 0.5}
}

// Yaw returns the rotation about Z in radians.
func (q Quat) Yaw() float64 {
	return math.Atan2(2*(q.W*q.Z+q.X*q.Y), 1-2*(q.Y*q.Y+q.Z*q.Z))
}

// String formats the quaternion in (x, y, z, w) order, matching the usual
// physics engine convention.
func (q Quat) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f, %.3f)", q.X, q.Y, q.Z, q.W)
}

type Pose struct {
	Position    Vec3
	Orientation Quat
}

// Twist is a commanded instantaneous velocity.
type Twist struct {
	Linear  Vec3
	Angular Vec3
}

func (t Twist) IsZero() bool {
	return t.Linear.IsZero() && t.Angular.IsZero()
}

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

type Control []float64

type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64) State
}
