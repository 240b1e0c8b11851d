// Package dynamo provides the value types shared by the engine, the
// controller and the teleop loop.
//
// The package defines:
//
//   - [Vec3], [Quat]: 3D vectors and unit quaternions (w, x, y, z)
//   - [Pose], [Twist]: body pose and commanded velocity
//   - [BodyID]: opaque handle to a simulated body
//   - [State], [System], [Integrator]: numerical primitives used by the
//     in-process kinematic engine to advance body state
//
// # Example
//
//	orn := dynamo.QuatFromEuler(0, 0, math.Pi/2)
//	cmd := dynamo.Twist{Linear: dynamo.Vec3{X: 2}}
//	_ = sess.SetVelocity(robot, cmd)
//
// All types are plain values and safe to copy.
package dynamo
