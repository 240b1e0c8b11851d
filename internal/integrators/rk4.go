package integrators

import "github.com/san-kum/teleop/internal/dynamo"

// RK4 is the classic fourth-order Runge-Kutta method. Scratch buffers are
// reused between steps, so an RK4 value must not be shared by bodies that
// step concurrently.
type RK4 struct {
	k   [4]dynamo.State
	mid dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) grow(n int) {
	if len(r.mid) == n {
		return
	}
	for i := range r.k {
		r.k[i] = make(dynamo.State, n)
	}
	r.mid = make(dynamo.State, n)
}

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	n := len(x)
	r.grow(n)

	offsets := [4]float64{0, 0.5, 0.5, 1}
	for stage := range r.k {
		if stage == 0 {
			copy(r.mid, x)
		} else {
			h := dt * offsets[stage]
			for i := 0; i < n; i++ {
				r.mid[i] = x[i] + h*r.k[stage-1][i]
			}
		}
		copy(r.k[stage], dyn.Derive(r.mid, u, t+dt*offsets[stage]))
	}

	result := x.Clone()
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		result[i] += dt6 * (r.k[0][i] + 2*r.k[1][i] + 2*r.k[2][i] + r.k[3][i])
	}
	return result
}
