// Package spatial holds the small linear-algebra helpers shared by bodies and
// joints: cross-product matrices, the quaternion-rate transform and the
// direction cosine matrix.
//
// Quaternions are gonum quat.Number values. When flattened into a
// generalized coordinate vector the layout is [x, y, z, w], vector part first.
package spatial

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// Identity is the unit quaternion.
var Identity = quat.Number{Real: 1}

// Eye returns an n×n identity matrix.
func Eye(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// Skew returns the cross-product matrix of v, so Skew(v)*w == v×w.
func Skew(v r3.Vector) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		0, -v.Z, v.Y,
		v.Z, 0, -v.X,
		-v.Y, v.X, 0,
	})
}

// Vec converts v to a gonum column vector.
func Vec(v r3.Vector) *mat.VecDense {
	return mat.NewVecDense(3, []float64{v.X, v.Y, v.Z})
}

// Apply returns m*v for a 3×3 (or 3×k with k=3) matrix m.
func Apply(m mat.Matrix, v r3.Vector) r3.Vector {
	var out mat.VecDense
	out.MulVec(m, Vec(v))
	return r3.Vector{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

// ApplyT returns mᵗ*v for a 3×3 matrix m.
func ApplyT(m mat.Matrix, v r3.Vector) r3.Vector {
	return Apply(m.T(), v)
}

// Part returns the vector part of q.
func Part(q quat.Number) r3.Vector {
	return r3.Vector{X: q.Imag, Y: q.Jmag, Z: q.Kmag}
}

// Quat builds a quaternion from its vector part v and scalar part w.
func Quat(v r3.Vector, w float64) quat.Number {
	return quat.Number{Real: w, Imag: v.X, Jmag: v.Y, Kmag: v.Z}
}

// QuatVec returns q as a gonum vector in [x, y, z, w] order.
func QuatVec(q quat.Number) *mat.VecDense {
	return mat.NewVecDense(4, []float64{q.Imag, q.Jmag, q.Kmag, q.Real})
}

// QuatFrom reads a quaternion from s in [x, y, z, w] order.
func QuatFrom(s []float64) quat.Number {
	return quat.Number{Real: s[3], Imag: s[0], Jmag: s[1], Kmag: s[2]}
}

// PutQuat writes q into dst in [x, y, z, w] order.
func PutQuat(dst []float64, q quat.Number) {
	dst[0], dst[1], dst[2], dst[3] = q.Imag, q.Jmag, q.Kmag, q.Real
}

// Dot4 is the Euclidean inner product of two quaternions seen as 4-vectors.
func Dot4(p, q quat.Number) float64 {
	return p.Real*q.Real + p.Imag*q.Imag + p.Jmag*q.Jmag + p.Kmag*q.Kmag
}

// Norm4 is the Euclidean length of q.
func Norm4(q quat.Number) float64 {
	return quat.Abs(q)
}

// Normalize returns q scaled to unit length. A zero quaternion is returned
// unchanged.
func Normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return q
	}
	return quat.Scale(1/n, q)
}

// RateMatrix returns the 3×4 transform T(q) = [2(w·I − [v]ₓ), −2v] for which
// ω = T(q)·q̇ gives the body-frame angular velocity of a unit quaternion q.
// Because T is linear in q, RateMatrix(q̇) is its time derivative.
func RateMatrix(q quat.Number) *mat.Dense {
	v := Part(q)
	w := q.Real
	t := mat.NewDense(3, 4, nil)
	s := Skew(v)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t.Set(i, j, -2*s.At(i, j))
		}
		t.Set(i, i, t.At(i, i)+2*w)
	}
	t.Set(0, 3, -2*v.X)
	t.Set(1, 3, -2*v.Y)
	t.Set(2, 3, -2*v.Z)
	return t
}

// RotationMatrix returns the direction cosine matrix mapping body-frame
// vectors to the inertial frame: (w²−v·v)·I + 2·v·vᵗ + 2·w·[v]ₓ.
func RotationMatrix(q quat.Number) *mat.Dense {
	v := Part(q)
	w := q.Real
	d := Skew(v)
	d.Scale(2*w, d)
	vs := [3]float64{v.X, v.Y, v.Z}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			d.Set(i, j, d.At(i, j)+2*vs[i]*vs[j])
		}
		d.Set(i, i, d.At(i, i)+w*w-v.Dot(v))
	}
	return d
}

// RateTimes returns T·q̇ as a 3-vector.
func RateTimes(t mat.Matrix, qd quat.Number) r3.Vector {
	var out mat.VecDense
	out.MulVec(t, QuatVec(qd))
	return r3.Vector{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

// RateFromOmega returns ¼·Tᵗ·ω, the quaternion rate that produces ω.
func RateFromOmega(t mat.Matrix, omega r3.Vector) quat.Number {
	var out mat.VecDense
	out.MulVec(t.T(), Vec(omega))
	out.ScaleVec(0.25, &out)
	return QuatFrom(out.RawVector().Data)
}

// AxisAngle returns the unit quaternion rotating by angle about axis.
func AxisAngle(axis r3.Vector, angle float64) quat.Number {
	half := 0.5 * angle
	return Quat(axis.Normalize().Mul(math.Sin(half)), math.Cos(half))
}

// Mul returns the product a·b of two dense matrices as a new matrix.
func Mul(a, b mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Mul(a, b)
	return &out
}

// SetBlock copies src into dst with its top-left corner at (i, j).
func SetBlock(dst *mat.Dense, i, j int, src mat.Matrix) {
	r, c := src.Dims()
	for ii := 0; ii < r; ii++ {
		for jj := 0; jj < c; jj++ {
			dst.Set(i+ii, j+jj, src.At(ii, jj))
		}
	}
}

// SetVec writes v into dst starting at index i.
func SetVec(dst *mat.VecDense, i int, v r3.Vector) {
	dst.SetVec(i, v.X)
	dst.SetVec(i+1, v.Y)
	dst.SetVec(i+2, v.Z)
}
