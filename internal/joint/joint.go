// Package joint generates acceleration-level constraint equations between
// rigid bodies.
//
// A joint relates the generalized accelerations of its bodies through
//
//	A1·ẍ₁ + A2·ẍ₂ = B
//
// where ẍᵢ = [ẍ, ÿ, z̈, q̈ₓ, q̈ᵧ, q̈_z, q̈_w] for body i. A1, A2 and B are rebuilt
// from the current body state by Evaluate; a joint keeps no history.
package joint

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/dynamo"
)

const (
	axisZeroTol = 1e-8
	axisNormTol = 1e-3
)

// Constraint is implemented once per joint kind.
type Constraint interface {
	// Rows is the number of scalar equations the constraint contributes.
	Rows() int
	// Evaluate fills a1, a2 and b from the joint's bodies. a2 is nil for
	// single-body constraints.
	Evaluate(j *Joint, a1, a2 *mat.Dense, b *mat.VecDense)
	// Gap measures the position-level violation of the constraint.
	Gap(j *Joint) float64
}

// Joint connects body Bodies[0] to Bodies[1], or pins Bodies[0] to ground.
// Point1 and Axis1 are expressed in the frame of Bodies[0], Point2 and Axis2
// in the frame of Bodies[1].
type Joint struct {
	Name   string
	Kind   Kind
	Bodies [2]*body.Body

	Point1 r3.Vector
	Point2 r3.Vector
	Axis1  r3.Vector
	Axis2  r3.Vector

	A1 *mat.Dense
	A2 *mat.Dense
	B  *mat.VecDense

	constraint Constraint
	logger     *zap.SugaredLogger
}

// New returns an unconfigured joint. SetKind must be called before use.
func New(name string, logger *zap.SugaredLogger) (*Joint, error) {
	if err := dynamo.ValidateName(name); err != nil {
		return nil, fmt.Errorf("joint: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Joint{
		Name:   name,
		Axis1:  r3.Vector{Z: 1},
		Axis2:  r3.Vector{Y: 1},
		logger: logger.With("joint", name),
	}, nil
}

// SetKind binds the constraint for k and resizes A1, A2 and B.
func (j *Joint) SetKind(k Kind) error {
	c, err := constraintFor(k)
	if err != nil {
		return fmt.Errorf("joint %s: %w", j.Name, err)
	}
	j.Kind = k
	j.constraint = c
	rows := c.Rows()
	j.A1 = mat.NewDense(rows, 7, nil)
	j.A2 = nil
	if k != Ground {
		j.A2 = mat.NewDense(rows, 7, nil)
	}
	j.B = mat.NewVecDense(rows, nil)
	return nil
}

// Rows returns the number of equations of the bound constraint, or zero.
func (j *Joint) Rows() int {
	if j.constraint == nil {
		return 0
	}
	return j.constraint.Rows()
}

// SetAxis sets Axis1 (which == 1) or Axis2 (which == 2) to the normalized
// direction (x, y, z).
func (j *Joint) SetAxis(x, y, z float64, which int) error {
	if which != 1 && which != 2 {
		return fmt.Errorf("%w: joint %s: axis index %d, want 1 or 2", dynamo.ErrValidation, j.Name, which)
	}
	v := r3.Vector{X: x, Y: y, Z: z}
	n := v.Norm()
	if n < axisZeroTol {
		return fmt.Errorf("%w: joint %s: axis %d is near zero", dynamo.ErrValidation, j.Name, which)
	}
	if math.Abs(n-1) > axisNormTol {
		j.logger.Warnw("axis is not unit length, normalizing", "axis", which, "norm", n)
	}
	v = v.Mul(1 / n)
	if which == 1 {
		j.Axis1 = v
	} else {
		j.Axis2 = v
	}
	return nil
}

// Attach sets the joint's bodies. b1 is ignored by ground joints.
func (j *Joint) Attach(b0, b1 *body.Body) {
	j.Bodies = [2]*body.Body{b0, b1}
}

// Validate reports whether the joint is fully specified.
func (j *Joint) Validate() error {
	if j.constraint == nil {
		return fmt.Errorf("%w: joint %s has no type", dynamo.ErrConfiguration, j.Name)
	}
	if j.Bodies[0] == nil {
		return fmt.Errorf("%w: joint %s has no first body", dynamo.ErrConfiguration, j.Name)
	}
	if j.Kind == Ground {
		return nil
	}
	if j.Bodies[1] == nil {
		return fmt.Errorf("%w: %s joint %s needs two bodies", dynamo.ErrConfiguration, j.Kind, j.Name)
	}
	if j.Bodies[0] == j.Bodies[1] {
		return fmt.Errorf("%w: joint %s connects body %s to itself", dynamo.ErrConfiguration, j.Name, j.Bodies[0].Name)
	}
	return nil
}

// Evaluate rebuilds A1, A2 and B from the current state of the bodies, which
// must have been refreshed.
func (j *Joint) Evaluate() error {
	if err := j.Validate(); err != nil {
		return err
	}
	j.constraint.Evaluate(j, j.A1, j.A2, j.B)
	return nil
}

// Gap returns the position-level violation of the joint, or zero for an
// unconfigured joint.
func (j *Joint) Gap() float64 {
	if j.Validate() != nil {
		return 0
	}
	return j.constraint.Gap(j)
}

func (j *Joint) String() string {
	return fmt.Sprintf("Joint(%s %s)", j.Name, j.Kind)
}
