package joint

import "gonum.org/v1/gonum/mat"

// fixConstraint welds two bodies: the anchor points coincide and the bodies
// share one angular velocity.
type fixConstraint struct{}

func (fixConstraint) Rows() int { return 6 }

func (fixConstraint) Evaluate(j *Joint, a1, a2 *mat.Dense, b *mat.VecDense) {
	k1 := kinematicsOf(j.Bodies[0])
	k2 := kinematicsOf(j.Bodies[1])
	coincide(0, k1, k2, j.Point1, j.Point2, a1, a2, b)
	lockRotation(3, k1, k2, a1, a2, b)
}

func (fixConstraint) Gap(j *Joint) float64 {
	return pointGap(j.Bodies[0], j.Bodies[1], j.Point1, j.Point2)
}
