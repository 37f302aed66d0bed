// Package body models a single rigid body in quaternion coordinates.
//
// A body carries seven generalized coordinates: its inertial position and a
// unit quaternion orientation. Angular velocity is expressed in the body
// frame and related to the quaternion rate through the 3×4 transform T:
//
//	ω = T(q)·q̇        q̇ = ¼·T(q)ᵗ·ω
//
// The derived quantities T, Td, DCM and Inertia4 are recomputed by Refresh and
// must not be edited directly.
package body

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"github.com/san-kum/rigidsim/internal/dynamo"
	"github.com/san-kum/rigidsim/internal/spatial"
)

const (
	// QuatZeroTol is the norm below which a quaternion is rejected.
	QuatZeroTol = 1e-8
	// QuatNormTol is the deviation from unit length that triggers a warning.
	QuatNormTol = 1e-3
)

// NormPolicy controls whether Refresh rescales the quaternion to unit length.
type NormPolicy int

const (
	// Renormalize rescales the quaternion on every refresh.
	Renormalize NormPolicy = iota
	// ConstraintOnly leaves the norm to the acceleration-level unit-norm row.
	ConstraintOnly
)

func (p NormPolicy) String() string {
	switch p {
	case Renormalize:
		return "renormalize"
	case ConstraintOnly:
		return "constraint-only"
	default:
		return fmt.Sprintf("NormPolicy(%d)", int(p))
	}
}

// Body is a rigid body. The exported state fields may be set by
// configuration code before a system is set up; during integration they are
// owned by the system.
type Body struct {
	Name string

	Pos      r3.Vector
	Vel      r3.Vector
	Quat     quat.Number
	QuatRate quat.Number
	// Omega is the angular velocity in the body frame.
	Omega r3.Vector

	Mass    float64
	Inertia *mat.SymDense

	T        *mat.Dense
	Td       *mat.Dense
	DCM      *mat.Dense
	Inertia4 *mat.Dense

	logger *zap.SugaredLogger
}

// New returns a unit-mass body at the origin with identity orientation.
func New(name string, logger *zap.SugaredLogger) (*Body, error) {
	if err := dynamo.ValidateName(name); err != nil {
		return nil, fmt.Errorf("body: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	b := &Body{
		Name:    name,
		Quat:    spatial.Identity,
		Mass:    1,
		Inertia: mat.NewSymDense(3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}),
		logger:  logger.With("body", name),
	}
	b.Refresh()
	return b, nil
}

// SetMass sets the body mass.
func (b *Body) SetMass(m float64) error {
	if !(m > 0) || math.IsInf(m, 0) {
		return fmt.Errorf("%w: body %s: mass %g must be positive", dynamo.ErrValidation, b.Name, m)
	}
	b.Mass = m
	return nil
}

// SetInertia sets the symmetric body-frame inertia tensor.
func (b *Body) SetInertia(ixx, iyy, izz, ixy, ixz, iyz float64) error {
	if !(ixx > 0) || !(iyy > 0) || !(izz > 0) {
		return fmt.Errorf("%w: body %s: inertia diagonal (%g, %g, %g) must be positive",
			dynamo.ErrValidation, b.Name, ixx, iyy, izz)
	}
	b.Inertia = mat.NewSymDense(3, []float64{
		ixx, ixy, ixz,
		ixy, iyy, iyz,
		ixz, iyz, izz,
	})
	b.Inertia4 = inertia4(b.T, b.Inertia)
	return nil
}

// SetQuaternion stores the normalized orientation q and re-derives the
// quaternion rate from the current angular velocity.
func (b *Body) SetQuaternion(q quat.Number) error {
	n := spatial.Norm4(q)
	if n < QuatZeroTol {
		return fmt.Errorf("%w: body %s: quaternion norm %g is near zero", dynamo.ErrValidation, b.Name, n)
	}
	if math.Abs(n-1) > QuatNormTol {
		b.logger.Warnw("quaternion is not unit length, normalizing", "norm", n)
	}
	b.Quat = quat.Scale(1/n, q)
	b.T = spatial.RateMatrix(b.Quat)
	b.QuatRate = spatial.RateFromOmega(b.T, b.Omega)
	return nil
}

// SetAngularVelocity stores the body-frame angular velocity and re-derives
// the quaternion rate under the current orientation.
func (b *Body) SetAngularVelocity(wx, wy, wz float64) {
	b.Omega = r3.Vector{X: wx, Y: wy, Z: wz}
	if b.T == nil {
		b.T = spatial.RateMatrix(b.Quat)
	}
	b.QuatRate = spatial.RateFromOmega(b.T, b.Omega)
}

// Refresh recomputes every derived quantity, renormalizing the quaternion.
func (b *Body) Refresh() {
	b.RefreshWith(Renormalize)
}

// RefreshWith recomputes every derived quantity from Quat and QuatRate.
// The angular velocity is taken from the quaternion rate and the rate is then
// re-projected from it, so consistent inputs are left unchanged.
func (b *Body) RefreshWith(policy NormPolicy) {
	if policy == Renormalize {
		b.Quat = spatial.Normalize(b.Quat)
	}
	b.T = spatial.RateMatrix(b.Quat)
	b.DCM = spatial.RotationMatrix(b.Quat)
	b.Omega = spatial.RateTimes(b.T, b.QuatRate)
	b.QuatRate = spatial.RateFromOmega(b.T, b.Omega)
	b.Td = spatial.RateMatrix(b.QuatRate)
	b.Inertia4 = inertia4(b.T, b.Inertia)
}

// WorldOmega returns the angular velocity in the inertial frame.
func (b *Body) WorldOmega() r3.Vector {
	return spatial.Apply(b.DCM, b.Omega)
}

// WorldPoint returns the inertial position of the body-frame offset p.
func (b *Body) WorldPoint(p r3.Vector) r3.Vector {
	return b.Pos.Add(spatial.Apply(b.DCM, p))
}

// KineticEnergy is ½·m·|v|² + ½·ωᵗ·I·ω.
func (b *Body) KineticEnergy() float64 {
	w := spatial.Vec(b.Omega)
	rot := mat.Inner(w, b.Inertia, w)
	return 0.5*b.Mass*b.Vel.Norm2() + 0.5*rot
}

// PotentialEnergy is the gravitational potential −m·g·x.
func (b *Body) PotentialEnergy(gravity r3.Vector) float64 {
	return -b.Mass * gravity.Dot(b.Pos)
}

func (b *Body) String() string {
	return fmt.Sprintf("Body(%s pos=%v quat=%v)", b.Name, b.Pos, b.Quat)
}

func inertia4(t *mat.Dense, inertia mat.Matrix) *mat.Dense {
	var it, out mat.Dense
	it.Mul(inertia, t)
	out.Mul(t.T(), &it)
	return &out
}
