package joint

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/rigidsim/internal/spatial"
)

// groundConstraint holds all seven coordinates of a single body constant.
type groundConstraint struct{}

func (groundConstraint) Rows() int { return 7 }

func (groundConstraint) Evaluate(_ *Joint, a1, _ *mat.Dense, b *mat.VecDense) {
	a1.Copy(spatial.Eye(7))
	b.Zero()
}

func (groundConstraint) Gap(*Joint) float64 { return 0 }
