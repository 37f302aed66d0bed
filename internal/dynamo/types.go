package dynamo

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

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

func (s State) Norm() float64 {
	return floats.Norm(s, 2)
}

// Add returns s + other. Missing trailing entries of other count as zero.
func (s State) Add(other State) State {
	result := s.Clone()
	n := min(len(s), len(other))
	floats.Add(result[:n], other[:n])
	return result
}

func (s State) Scale(factor float64) State {
	result := s.Clone()
	floats.Scale(factor, result)
	return result
}

func (s State) Sub(other State) State {
	result := s.Clone()
	n := min(len(s), len(other))
	floats.Sub(result[:n], other[:n])
	return result
}

// Equal reports whether s and other hold exactly the same values.
func (s State) Equal(other State) bool {
	return floats.Equal(s, other)
}

// Dynamics is an autonomous or time-dependent first-order system.
type Dynamics interface {
	Derive(x State, t float64) State
	StateDim() int
}

// Hamiltonian is implemented by dynamics that can report total energy.
type Hamiltonian interface {
	Energy(x State) float64
}

// Constrained is implemented by dynamics with position-level constraints.
type Constrained interface {
	ConstraintGap() float64
}

type Integrator interface {
	Name() string
	Step(dyn Dynamics, x State, t, dt float64) State
}

type Metric interface {
	Name() string
	Observe(x State, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, t float64)
}

type Result struct {
	Log         []State
	Metrics     map[string]float64
	EnergyDrift float64
	StepsTaken  int
}

// Times returns the time column of the snapshot log.
func (r *Result) Times() []float64 {
	times := make([]float64, len(r.Log))
	for i, row := range r.Log {
		if len(row) > 0 {
			times[i] = row[0]
		}
	}
	return times
}
