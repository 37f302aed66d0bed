package integrators

import (
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/rigidsim/internal/dynamo"
)

// Euler is the explicit first-order method.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Name() string { return "euler" }

func (e *Euler) Step(dyn dynamo.Dynamics, x dynamo.State, t float64, dt float64) dynamo.State {
	dx := dyn.Derive(x, t)
	result := make(dynamo.State, len(x))
	floats.AddScaledTo(result, x, dt, dx)
	return result
}
