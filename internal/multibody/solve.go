package multibody

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/rigidsim/internal/dynamo"
	"github.com/san-kum/rigidsim/internal/spatial"
)

const (
	// pinvTol is the singular-value cutoff of the constraint pseudo-inverse,
	// relative to the largest singular value.
	pinvTol = 1e-16
	epsilon = 2.220446049250313e-16
)

// calxdd solves for the generalized accelerations at the synchronized state.
// It must immediately follow x2body.
func (s *System) calxdd() {
	s.makeBigM()
	s.makeBigF()
	s.makeBigAb()

	var xdd mat.VecDense
	if err := solveProjected(s.m, s.f, s.a, s.b, &xdd); err != nil {
		if s.solveErr == nil {
			s.solveErr = err
		}
		s.xdd.Zero()
		return
	}
	s.xdd.CopyVec(&xdd)
}

// solveProjected solves M·ẍ = F subject to A·ẍ = b. The mass matrix is
// projected with (I − A⁺A) so that the applied forces only act along free
// directions, and the stacked system
//
//	[(I − A⁺A)·M]     [F]
//	[     A     ] ẍ = [b]
//
// is solved in the least-squares sense. Rank deficiency in either matrix is
// absorbed by singular value truncation.
func solveProjected(m *mat.Dense, f *mat.VecDense, a *mat.Dense, b *mat.VecDense, dst *mat.VecDense) error {
	rows, n := a.Dims()

	var svdA mat.SVD
	if ok := svdA.Factorize(a, mat.SVDThin); !ok {
		return fmt.Errorf("%w: constraint Jacobian SVD did not converge", dynamo.ErrUnstable)
	}
	pinv := pseudoInverse(&svdA, rows, n)

	proj := spatial.Eye(n)
	var pa mat.Dense
	pa.Mul(pinv, a)
	proj.Sub(proj, &pa)

	var aa, mbar mat.Dense
	aa.Mul(proj, m)
	mbar.Stack(&aa, a)

	rhs := make([]float64, 0, n+rows)
	rhs = append(rhs, f.RawVector().Data...)
	rhs = append(rhs, b.RawVector().Data...)

	var svdM mat.SVD
	if ok := svdM.Factorize(&mbar, mat.SVDThin); !ok {
		return fmt.Errorf("%w: augmented mass matrix SVD did not converge", dynamo.ErrUnstable)
	}
	rank := svdM.Rank(epsilon * float64(min(n+rows, n)))
	if rank == 0 {
		dst.ReuseAsVec(n)
		dst.Zero()
		return nil
	}
	svdM.SolveVecTo(dst, mat.NewVecDense(n+rows, rhs), rank)
	return nil
}

// pseudoInverse forms V·Σ⁺·Uᵗ, zeroing singular values at or below the cutoff.
// The cutoff is never tighter than the round-off level of the factorization.
func pseudoInverse(svd *mat.SVD, rows, cols int) *mat.Dense {
	values := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	cutoff := 0.0
	if len(values) > 0 {
		cutoff = values[0] * math.Max(pinvTol, epsilon*float64(max(rows, cols)))
	}
	for k, sv := range values {
		inv := 0.0
		if sv > cutoff {
			inv = 1 / sv
		}
		col := v.ColView(k).(*mat.VecDense)
		col.ScaleVec(inv, col)
	}

	var pinv mat.Dense
	pinv.Mul(&v, u.T())
	return &pinv
}

// x2body scatters y = [x, ẋ] into the bodies, refreshes them and
// re-evaluates every joint. calxdd is valid only right after this.
func (s *System) x2body(y dynamo.State) {
	n := dof * len(s.bodies)
	x, xd := y[:n], y[n:]
	for i, b := range s.bodies {
		o := dof * i
		b.Pos.X, b.Pos.Y, b.Pos.Z = x[o], x[o+1], x[o+2]
		b.Quat = spatial.QuatFrom(x[o+3 : o+7])
		b.Vel.X, b.Vel.Y, b.Vel.Z = xd[o], xd[o+1], xd[o+2]
		b.QuatRate = spatial.QuatFrom(xd[o+3 : o+7])
		b.RefreshWith(s.Normalization)
	}
	copy(s.x.RawVector().Data, x)
	copy(s.xd.RawVector().Data, xd)
	s.evaluateJoints()
	s.synced = y.Clone()
}

// body2x gathers the generalized coordinates from the bodies.
func (s *System) body2x() {
	for i, b := range s.bodies {
		o := dof * i
		spatial.SetVec(s.x, o, b.Pos)
		spatial.SetVec(s.xd, o, b.Vel)
		spatial.PutQuat(s.x.RawVector().Data[o+3:o+7], b.Quat)
		spatial.PutQuat(s.xd.RawVector().Data[o+3:o+7], b.QuatRate)
	}
	s.synced = s.State()
}

func (s *System) evaluateJoints() {
	for _, j := range s.joints {
		if err := j.Evaluate(); err != nil && s.solveErr == nil {
			s.solveErr = err
		}
	}
}

// State returns a copy of [x, ẋ].
func (s *System) State() dynamo.State {
	n := dof * len(s.bodies)
	y := make(dynamo.State, 2*n)
	if s.x == nil {
		return y
	}
	copy(y[:n], s.x.RawVector().Data)
	copy(y[n:], s.xd.RawVector().Data)
	return y
}

// Accel returns a copy of ẍ at the synchronized state.
func (s *System) Accel() dynamo.State {
	if s.xdd == nil {
		return nil
	}
	return append(dynamo.State(nil), s.xdd.RawVector().Data...)
}

// Derive returns [ẋ, ẍ] at y = [x, ẋ]. Unless y is the state the system is
// already synchronized to, the bodies and joints are moved to y first.
func (s *System) Derive(y dynamo.State, t float64) dynamo.State {
	if s.synced == nil || !floats.Equal(y, s.synced) {
		s.x2body(y)
		s.calxdd()
	}
	n := dof * len(s.bodies)
	dy := make(dynamo.State, 2*n)
	copy(dy[:n], y[n:])
	copy(dy[n:], s.xdd.RawVector().Data)
	return dy
}
