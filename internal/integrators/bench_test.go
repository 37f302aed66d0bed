package integrators

import (
	"testing"

	"github.com/san-kum/rigidsim/internal/dynamo"
)

type benchDynamics struct{}

func (b *benchDynamics) StateDim() int { return 2 }
func (b *benchDynamics) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

func benchmarkIntegrator(b *testing.B, integ dynamo.Integrator, dyn dynamo.Dynamics, x dynamo.State, dt float64) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integ.Step(dyn, x, 0, dt)
	}
}

func BenchmarkEuler(b *testing.B) {
	benchmarkIntegrator(b, NewEuler(), &benchDynamics{}, dynamo.State{1.0, 0.0}, 0.01)
}

func BenchmarkRK4(b *testing.B) {
	benchmarkIntegrator(b, NewRK4(), &benchDynamics{}, dynamo.State{1.0, 0.0}, 0.01)
}

func BenchmarkRK45(b *testing.B) {
	benchmarkIntegrator(b, NewRK45(), &benchDynamics{}, dynamo.State{1.0, 0.0}, 0.01)
}

func BenchmarkVerlet(b *testing.B) {
	benchmarkIntegrator(b, NewVerlet(), &benchDynamics{}, dynamo.State{1.0, 0.0}, 0.01)
}

// chainDynamics is five uncoupled planar oscillators laid out as
// [positions, velocities].
type chainDynamics struct{}

func (c *chainDynamics) StateDim() int { return 20 }
func (c *chainDynamics) Derive(x dynamo.State, t float64) dynamo.State {
	dx := make(dynamo.State, 20)
	copy(dx[:10], x[10:])
	for i := 0; i < 10; i++ {
		dx[10+i] = -x[i] * 0.1
	}
	return dx
}

func BenchmarkRK4_Chain5(b *testing.B) {
	x := make(dynamo.State, 20)
	for i := range x {
		x[i] = float64(i) * 0.1
	}
	benchmarkIntegrator(b, NewRK4(), &chainDynamics{}, x, 0.001)
}

func BenchmarkVerlet_Chain5(b *testing.B) {
	x := make(dynamo.State, 20)
	for i := range x {
		x[i] = float64(i) * 0.1
	}
	benchmarkIntegrator(b, NewVerlet(), &chainDynamics{}, x, 0.001)
}
