// Package metrics holds run observers that reduce a trajectory to a single
// number as it is produced.
package metrics

import (
	"math"

	"github.com/san-kum/rigidsim/internal/dynamo"
)

// Energy averages the total energy over every observed state.
type Energy struct {
	dyn dynamo.Hamiltonian
	sum float64
	n   int
}

func NewEnergy(dyn dynamo.Hamiltonian) *Energy { return &Energy{dyn: dyn} }

func (e *Energy) Name() string { return "energy" }

func (e *Energy) Observe(x dynamo.State, t float64) {
	e.sum += e.dyn.Energy(x)
	e.n++
}

func (e *Energy) Value() float64 {
	if e.n == 0 {
		return 0
	}
	return e.sum / float64(e.n)
}

func (e *Energy) Reset() { e.sum, e.n = 0, 0 }

// EnergyDrift tracks the worst departure of the total energy from the first
// observed value. It is relative to that value unless it is zero, in which
// case it is absolute. Dynamics without an energy function report zero.
type EnergyDrift struct {
	energy func(dynamo.State) float64
	e0     float64
	worst  float64
	primed bool
}

func NewEnergyDrift(dyn dynamo.Dynamics) *EnergyDrift {
	d := &EnergyDrift{}
	if h, ok := dyn.(dynamo.Hamiltonian); ok {
		d.energy = h.Energy
	}
	return d
}

func (d *EnergyDrift) Name() string { return "energy_drift" }

func (d *EnergyDrift) Observe(x dynamo.State, t float64) {
	if d.energy == nil {
		return
	}
	e := d.energy(x)
	if !d.primed {
		d.e0, d.primed = e, true
	}

	dev := math.Abs(e - d.e0)
	if d.e0 != 0 {
		dev /= math.Abs(d.e0)
	}
	if dev > d.worst {
		d.worst = dev
	}
}

func (d *EnergyDrift) Value() float64 { return d.worst }

func (d *EnergyDrift) Reset() {
	d.e0, d.worst, d.primed = 0, 0, false
}
