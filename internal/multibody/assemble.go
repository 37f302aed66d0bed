package multibody

import (
	"github.com/san-kum/rigidsim/internal/spatial"
)

// makeBigM places m·I₃ and the quaternion-space inertia of every body on the
// block diagonal.
func (s *System) makeBigM() {
	s.m.Zero()
	for i, b := range s.bodies {
		o := dof * i
		for k := 0; k < 3; k++ {
			s.m.Set(o+k, o+k, b.Mass)
		}
		spatial.SetBlock(s.m, o+3, o+3, b.Inertia4)
	}
}

// makeBigF applies gravity to the translational coordinates.
func (s *System) makeBigF() {
	s.f.Zero()
	for i, b := range s.bodies {
		spatial.SetVec(s.f, dof*i, s.Gravity.Mul(b.Mass))
	}
}

// makeBigAb stacks the joint equations in joint order, followed by one
// unit-quaternion row per body: 2q·q̈ = −2q̇·q̇.
func (s *System) makeBigAb() {
	s.a.Zero()
	s.b.Zero()

	row := 0
	for _, j := range s.joints {
		c0 := dof * s.index[j.Bodies[0]]
		spatial.SetBlock(s.a, row, c0, j.A1)
		if j.A2 != nil {
			c1 := dof * s.index[j.Bodies[1]]
			spatial.SetBlock(s.a, row, c1, j.A2)
		}
		for k := 0; k < j.B.Len(); k++ {
			s.b.SetVec(row+k, j.B.AtVec(k))
		}
		row += j.Rows()
	}

	for i, b := range s.bodies {
		q := [4]float64{}
		spatial.PutQuat(q[:], b.Quat)
		for k, v := range q {
			s.a.Set(row, dof*i+3+k, 2*v)
		}
		s.b.SetVec(row, -2*spatial.Dot4(b.QuatRate, b.QuatRate))
		row++
	}
}
