package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/rigidsim/internal/dynamo"
)

// QuaternionNorm tracks the largest deviation of any body's quaternion from
// unit length, reading quaternions from a [x, ẋ] state with seven
// coordinates per body.
type QuaternionNorm struct {
	name   string
	bodies int
	maxErr float64
}

func NewQuaternionNorm(bodies int) *QuaternionNorm {
	return &QuaternionNorm{
		name:   "quat_norm_error",
		bodies: bodies,
	}
}

func (q *QuaternionNorm) Name() string { return q.name }

func (q *QuaternionNorm) Observe(x dynamo.State, t float64) {
	for i := 0; i < q.bodies; i++ {
		o := 7*i + 3
		if o+4 > len(x) {
			return
		}
		err := math.Abs(floats.Norm(x[o:o+4], 2) - 1)
		q.maxErr = math.Max(q.maxErr, err)
	}
}

func (q *QuaternionNorm) Value() float64 { return q.maxErr }

func (q *QuaternionNorm) Reset() { q.maxErr = 0 }

// ConstraintGap tracks the largest position-level constraint violation
// reported by the dynamics.
type ConstraintGap struct {
	name   string
	dyn    dynamo.Constrained
	maxGap float64
}

func NewConstraintGap(dyn dynamo.Constrained) *ConstraintGap {
	return &ConstraintGap{
		name: "constraint_gap",
		dyn:  dyn,
	}
}

func (c *ConstraintGap) Name() string { return c.name }

func (c *ConstraintGap) Observe(x dynamo.State, t float64) {
	c.maxGap = math.Max(c.maxGap, c.dyn.ConstraintGap())
}

func (c *ConstraintGap) Value() float64 { return c.maxGap }

func (c *ConstraintGap) Reset() { c.maxGap = 0 }
