package joint

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/rigidsim/internal/spatial"
)

// slideConstraint is a prismatic joint. The offset d between the anchor
// points stays parallel to Axis1 (u × d = 0, with u = R₁·Axis1) and the two
// bodies share one angular velocity.
type slideConstraint struct{}

func (slideConstraint) Rows() int { return 6 }

func (slideConstraint) Evaluate(j *Joint, a1, a2 *mat.Dense, b *mat.VecDense) {
	b0, b1 := j.Bodies[0], j.Bodies[1]
	k1 := kinematicsOf(b0)
	k2 := kinematicsOf(b1)

	u := spatial.Apply(b0.DCM, j.Axis1)
	dp1 := spatial.Apply(b0.DCM, j.Point1)
	dp2 := spatial.Apply(b1.DCM, j.Point2)
	d := b0.Pos.Add(dp1).Sub(b1.Pos).Sub(dp2)
	dd := b0.Vel.Add(k1.omega.Cross(dp1)).Sub(b1.Vel).Sub(k2.omega.Cross(dp2))

	su := spatial.Skew(u)
	sd := spatial.Skew(d)

	// C̈ = ü×d + 2·u̇×ḋ + u×d̈
	var lin1, tmp mat.Dense
	lin1.Mul(sd, su)
	tmp.Mul(su, spatial.Skew(dp1))
	lin1.Sub(&lin1, &tmp)
	rot1 := spatial.Mul(&lin1, k1.rt)
	rot2 := spatial.Mul(spatial.Mul(su, spatial.Skew(dp2)), k2.rt)

	spatial.SetBlock(a1, 0, 0, su)
	spatial.SetBlock(a1, 0, 3, rot1)
	var nsu mat.Dense
	nsu.Scale(-1, su)
	spatial.SetBlock(a2, 0, 0, &nsu)
	spatial.SetBlock(a2, 0, 3, rot2)

	w1u := k1.omega.Cross(u)
	axial := spatial.Apply(sd, k1.omega.Cross(w1u).Sub(u.Cross(k1.tdq)))
	coriolis := w1u.Cross(dd).Mul(2)
	lever := k1.omega.Cross(k1.omega.Cross(dp1)).
		Sub(dp1.Cross(k1.tdq)).
		Sub(k2.omega.Cross(k2.omega.Cross(dp2))).
		Add(dp2.Cross(k2.tdq))
	spatial.SetVec(b, 0, axial.Sub(coriolis).Sub(u.Cross(lever)))

	lockRotation(3, k1, k2, a1, a2, b)
}

func (slideConstraint) Gap(j *Joint) float64 {
	b0, b1 := j.Bodies[0], j.Bodies[1]
	u := spatial.Apply(b0.DCM, j.Axis1)
	d := b0.WorldPoint(j.Point1).Sub(b1.WorldPoint(j.Point2))
	return u.Cross(d).Norm()
}

// Travel returns the signed displacement of the second anchor from the
// first along the slide axis.
func Travel(j *Joint) float64 {
	if j.Kind != Slide || j.Validate() != nil {
		return 0
	}
	b0, b1 := j.Bodies[0], j.Bodies[1]
	u := spatial.Apply(b0.DCM, j.Axis1)
	return u.Dot(b1.WorldPoint(j.Point2).Sub(b0.WorldPoint(j.Point1)))
}

