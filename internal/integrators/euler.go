package integrators

import "github.com/san-kum/teleop/internal/dynamo"

// Euler is the explicit first-order method. It is cheap enough to run at
// the engine's native rate and is the default for kinematic bodies.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t float64, dt float64) dynamo.State {
	dx := dyn.Derive(x, u, t)
	result := x.Clone()
	for i := range x {
		result[i] += dt * dx[i]
	}
	return result
}
