package joint

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/spatial"
)

// kinematics caches the inertial-frame quantities of one body that every
// constraint needs.
type kinematics struct {
	b *body.Body
	// rt is R·T, mapping q̈ to inertial angular acceleration.
	rt    *mat.Dense
	omega r3.Vector
	// tdq is R·Td·q̇.
	tdq r3.Vector
}

func kinematicsOf(b *body.Body) kinematics {
	return kinematics{
		b:     b,
		rt:    spatial.Mul(b.DCM, b.T),
		omega: b.WorldOmega(),
		tdq:   spatial.Apply(b.DCM, spatial.RateTimes(b.Td, b.QuatRate)),
	}
}

// anchor is a body-fixed point expressed in the inertial frame.
type anchor struct {
	offset r3.Vector
	// jac is −[R·p]ₓ·R·T, the sensitivity of the point's acceleration to q̈.
	jac  *mat.Dense
	bias r3.Vector
}

func (k kinematics) anchor(p r3.Vector) anchor {
	off := spatial.Apply(k.b.DCM, p)
	jac := spatial.Mul(spatial.Skew(off), k.rt)
	jac.Scale(-1, jac)
	centripetal := k.omega.Cross(k.omega.Cross(off))
	return anchor{
		offset: off,
		jac:    jac,
		bias:   off.Cross(k.tdq).Sub(centripetal),
	}
}

// coincide writes the three rows at row that keep p1 on the first body and
// p2 on the second body at the same inertial location.
func coincide(row int, k1, k2 kinematics, p1, p2 r3.Vector, a1, a2 *mat.Dense, b *mat.VecDense) {
	an1 := k1.anchor(p1)
	an2 := k2.anchor(p2)

	spatial.SetBlock(a1, row, 0, spatial.Eye(3))
	spatial.SetBlock(a1, row, 3, an1.jac)

	neg := spatial.Eye(3)
	neg.Scale(-1, neg)
	spatial.SetBlock(a2, row, 0, neg)
	var jac2 mat.Dense
	jac2.Scale(-1, an2.jac)
	spatial.SetBlock(a2, row, 3, &jac2)

	spatial.SetVec(b, row, an1.bias.Sub(an2.bias))
}

// lockRotation writes the three rows at row that keep the two bodies'
// inertial angular velocities equal.
func lockRotation(row int, k1, k2 kinematics, a1, a2 *mat.Dense, b *mat.VecDense) {
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			a1.Set(row+r, c, 0)
			a2.Set(row+r, c, 0)
		}
	}
	spatial.SetBlock(a1, row, 3, k1.rt)
	var rt2 mat.Dense
	rt2.Scale(-1, k2.rt)
	spatial.SetBlock(a2, row, 3, &rt2)
	spatial.SetVec(b, row, k2.tdq.Sub(k1.tdq))
}

// pointGap is the inertial distance between p1 on b1 and p2 on b2.
func pointGap(b1, b2 *body.Body, p1, p2 r3.Vector) float64 {
	return b1.WorldPoint(p1).Sub(b2.WorldPoint(p2)).Norm()
}
