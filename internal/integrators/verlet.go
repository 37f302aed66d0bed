package integrators

import (
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/rigidsim/internal/dynamo"
)

// Verlet is velocity Verlet over y = [x, ẋ]. The second acceleration is
// taken at the new position with the old rate, so rate-dependent terms
// such as the quaternion constraint bias are first order only.
type Verlet struct {
	probe dynamo.State
}

func NewVerlet() *Verlet { return &Verlet{} }

func (v *Verlet) Name() string { return "verlet" }

func (v *Verlet) Step(dyn dynamo.Dynamics, y dynamo.State, t, dt float64) dynamo.State {
	n := len(y) / 2
	x, xd := y[:n], y[n:]

	a0 := dyn.Derive(y, t)[n:].Clone()

	next := make(dynamo.State, len(y))
	floats.AddScaledTo(next[:n], x, dt, xd)
	floats.AddScaled(next[:n], 0.5*dt*dt, a0)

	if len(v.probe) != len(y) {
		v.probe = make(dynamo.State, len(y))
	}
	copy(v.probe[:n], next[:n])
	copy(v.probe[n:], xd)
	a1 := dyn.Derive(v.probe, t+dt)[n:]

	floats.AddScaledTo(next[n:], xd, 0.5*dt, a0)
	floats.AddScaled(next[n:], 0.5*dt, a1)
	return next
}
