package joint

import "gonum.org/v1/gonum/mat"

// sphereConstraint is a ball joint: Point1 on the first body and Point2 on
// the second body coincide.
type sphereConstraint struct{}

func (sphereConstraint) Rows() int { return 3 }

func (sphereConstraint) Evaluate(j *Joint, a1, a2 *mat.Dense, b *mat.VecDense) {
	k1 := kinematicsOf(j.Bodies[0])
	k2 := kinematicsOf(j.Bodies[1])
	coincide(0, k1, k2, j.Point1, j.Point2, a1, a2, b)
}

func (sphereConstraint) Gap(j *Joint) float64 {
	return pointGap(j.Bodies[0], j.Bodies[1], j.Point1, j.Point2)
}
