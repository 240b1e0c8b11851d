// Package control turns keyboard events into velocity commands.
//
// Keys are first mapped to tagged [Action] values through a [Keymap], so
// the controller never sees raw key codes:
//
//   - [Forward], [Backward]: linear velocity along +X / -X
//   - [TurnLeft], [TurnRight]: angular velocity about +Z / -Z
//   - [Stop]: zero command for the tick, overriding everything else
//   - [Reset]: put the robot back at its start pose
//   - [Quit]: end the session
//
// # Usage
//
//	tel := control.NewTeleop(control.DefaultKeymap(), control.Speeds{Linear: 2, Angular: 1})
//	d := tel.Decide(src.Poll())
//	_ = sess.SetVelocity(robot, d.Command)
//
// # Tie-break
//
// Only [input.Triggered] events count. They are applied in the order the
// source delivered them and each action overwrites only its own axis, so
// the last linear action and the last angular action of a batch win.
// Forward then backward in one batch drives backward.
package control
