package integrators

import (
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/rigidsim/internal/dynamo"
)

// Dormand-Prince tableau. dpB holds the fifth-order weights; the seventh
// stage (FSAL) is not needed without error control.
var (
	dpC = [6]float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1}
	dpA = [6][5]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{44.0 / 45, -56.0 / 15, 32.0 / 9},
		{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
		{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
	}
	dpB = [6]float64{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84}
)

// RK45 takes fixed steps with the fifth-order Dormand-Prince solution.
// Constrained systems run at a fixed dt, so there is no step size control.
type RK45 struct {
	k     [6]dynamo.State
	stage dynamo.State
}

func NewRK45() *RK45 { return &RK45{} }

func (r *RK45) Name() string { return "rk45" }

func (r *RK45) Step(dyn dynamo.Dynamics, y dynamo.State, t, dt float64) dynamo.State {
	if len(r.stage) != len(y) {
		r.stage = make(dynamo.State, len(y))
	}

	for s := range dpC {
		copy(r.stage, y)
		for j, a := range dpA[s][:s] {
			if a != 0 {
				floats.AddScaled(r.stage, dt*a, r.k[j])
			}
		}
		r.k[s] = dyn.Derive(r.stage, t+dpC[s]*dt).Clone()
	}

	next := y.Clone()
	for s, b := range dpB {
		if b != 0 {
			floats.AddScaled(next, dt*b, r.k[s])
		}
	}
	return next
}
