package joint

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/rigidsim/internal/spatial"
)

// hingeConstraint allows rotation about a shared axis only. It pins two
// point pairs, Point ± Axis on each body. Axis2 is re-derived from Axis1
// through the bodies' relative orientation on every evaluation.
type hingeConstraint struct{}

func (hingeConstraint) Rows() int { return 6 }

func (hingeConstraint) Evaluate(j *Joint, a1, a2 *mat.Dense, b *mat.VecDense) {
	b0, b1 := j.Bodies[0], j.Bodies[1]
	j.Axis2 = spatial.ApplyT(b1.DCM, spatial.Apply(b0.DCM, j.Axis1))

	k1 := kinematicsOf(b0)
	k2 := kinematicsOf(b1)
	coincide(0, k1, k2, j.Point1.Add(j.Axis1), j.Point2.Add(j.Axis2), a1, a2, b)
	coincide(3, k1, k2, j.Point1.Sub(j.Axis1), j.Point2.Sub(j.Axis2), a1, a2, b)
}

func (hingeConstraint) Gap(j *Joint) float64 {
	b0, b1 := j.Bodies[0], j.Bodies[1]
	return math.Max(
		pointGap(b0, b1, j.Point1.Add(j.Axis1), j.Point2.Add(j.Axis2)),
		pointGap(b0, b1, j.Point1.Sub(j.Axis1), j.Point2.Sub(j.Axis2)),
	)
}
