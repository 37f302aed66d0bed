package body

import (
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r3"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"github.com/san-kum/rigidsim/internal/dynamo"
	"github.com/san-kum/rigidsim/internal/spatial"
)

func newBody(t *testing.T, name string) *Body {
	t.Helper()
	b, err := New(name, zaptest.NewLogger(t).Sugar())
	if err != nil {
		t.Fatalf("New(%q): %v", name, err)
	}
	return b
}

func TestNewDefaults(t *testing.T) {
	g := NewWithT(t)
	b := newBody(t, "b0")

	g.Expect(b.Mass).To(Equal(1.0))
	g.Expect(b.Quat).To(Equal(spatial.Identity))
	g.Expect(mat.Equal(b.Inertia, spatial.Eye(3))).To(BeTrue())
	g.Expect(mat.Equal(b.Inertia4, mat.NewDense(4, 4, []float64{
		4, 0, 0, 0,
		0, 4, 0, 0,
		0, 0, 4, 0,
		0, 0, 0, 0,
	}))).To(BeTrue())
}

func TestNewRejectsBadNames(t *testing.T) {
	for _, name := range []string{"", "has space", "a-b", "ü"} {
		if _, err := New(name, nil); !errors.Is(err, dynamo.ErrConfiguration) {
			t.Errorf("New(%q) error = %v, want ErrConfiguration", name, err)
		}
	}
}

func TestSetMassAndInertia(t *testing.T) {
	g := NewWithT(t)
	b := newBody(t, "b")

	g.Expect(b.SetMass(0)).To(MatchError(dynamo.ErrValidation))
	g.Expect(b.SetMass(-2)).To(MatchError(dynamo.ErrValidation))
	g.Expect(b.SetMass(math.NaN())).To(MatchError(dynamo.ErrValidation))
	g.Expect(b.SetMass(2.5)).To(Succeed())
	g.Expect(b.Mass).To(Equal(2.5))

	g.Expect(b.SetInertia(1, 0, 1, 0, 0, 0)).To(MatchError(dynamo.ErrValidation))
	g.Expect(b.SetInertia(1, 2, 3, 0.1, 0.2, 0.3)).To(Succeed())
	g.Expect(b.Inertia.At(0, 1)).To(Equal(0.1))
	g.Expect(b.Inertia.At(2, 0)).To(Equal(0.2))
	g.Expect(b.Inertia.At(1, 2)).To(Equal(0.3))
}

func TestSetQuaternion(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	b, err := New("b", zap.New(core).Sugar())
	if err != nil {
		t.Fatal(err)
	}

	if err := b.SetQuaternion(quat.Number{}); !errors.Is(err, dynamo.ErrValidation) {
		t.Fatalf("zero quaternion error = %v, want ErrValidation", err)
	}

	if err := b.SetQuaternion(quat.Number{Real: 2}); err != nil {
		t.Fatal(err)
	}
	if b.Quat != spatial.Identity {
		t.Errorf("quaternion not normalized: %v", b.Quat)
	}
	if logs.Len() != 1 {
		t.Fatalf("got %d warnings, want 1", logs.Len())
	}
	if got := logs.All()[0].ContextMap()["body"]; got != "b" {
		t.Errorf("warning body field = %v", got)
	}

	if err := b.SetQuaternion(spatial.AxisAngle(r3.Vector{X: 1}, 0.3)); err != nil {
		t.Fatal(err)
	}
	if logs.Len() != 1 {
		t.Errorf("unit quaternion should not warn, got %d warnings", logs.Len())
	}
}

func TestSetQuaternionKeepsOmega(t *testing.T) {
	b := newBody(t, "b")
	b.SetAngularVelocity(0.5, -1, 2)
	if err := b.SetQuaternion(spatial.AxisAngle(r3.Vector{X: 1, Y: 1}, 1.1)); err != nil {
		t.Fatal(err)
	}
	b.Refresh()
	want := r3.Vector{X: 0.5, Y: -1, Z: 2}
	if d := b.Omega.Sub(want).Norm(); d > 1e-12 {
		t.Errorf("omega = %v, want %v", b.Omega, want)
	}
}

func TestRoundTripLaw(t *testing.T) {
	cases := []struct {
		name  string
		q     quat.Number
		omega r3.Vector
	}{
		{"identity", spatial.Identity, r3.Vector{X: 1, Y: 2, Z: 3}},
		{"tilted", spatial.AxisAngle(r3.Vector{X: 1, Y: -2, Z: 0.5}, 2.2), r3.Vector{X: -0.3, Y: 0.1, Z: 4}},
		{"flipped", spatial.AxisAngle(r3.Vector{Z: 1}, math.Pi), r3.Vector{Y: 7}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := newBody(t, "b")
			if err := b.SetQuaternion(tc.q); err != nil {
				t.Fatal(err)
			}
			b.SetAngularVelocity(tc.omega.X, tc.omega.Y, tc.omega.Z)
			b.Refresh()

			if d := spatial.RateTimes(b.T, b.QuatRate).Sub(tc.omega).Norm(); d > 1e-12 {
				t.Errorf("T·q̇ differs from ω by %g", d)
			}
			want := spatial.RateFromOmega(b.T, tc.omega)
			if d := quat.Abs(quat.Sub(b.QuatRate, want)); d > 1e-12 {
				t.Errorf("q̇ differs from ¼Tᵗω by %g", d)
			}
		})
	}
}

func TestRefreshIdempotent(t *testing.T) {
	b := newBody(t, "b")
	if err := b.SetQuaternion(spatial.AxisAngle(r3.Vector{X: 0.2, Y: 1}, 0.7)); err != nil {
		t.Fatal(err)
	}
	b.SetAngularVelocity(1, 0.5, -0.25)
	b.Refresh()

	dcm := mat.DenseCopyOf(b.DCM)
	t4 := mat.DenseCopyOf(b.T)
	i4 := mat.DenseCopyOf(b.Inertia4)
	omega := b.Omega

	b.Refresh()
	if !mat.EqualApprox(dcm, b.DCM, 1e-12) || !mat.EqualApprox(t4, b.T, 1e-12) ||
		!mat.EqualApprox(i4, b.Inertia4, 1e-12) || b.Omega.Sub(omega).Norm() > 1e-12 {
		t.Error("second refresh changed derived quantities")
	}
}

func TestRefreshPolicy(t *testing.T) {
	b := newBody(t, "b")
	b.Quat = quat.Number{Real: 1.01}

	b.RefreshWith(ConstraintOnly)
	if b.Quat.Real != 1.01 {
		t.Errorf("ConstraintOnly rescaled quaternion to %v", b.Quat)
	}
	b.RefreshWith(Renormalize)
	if math.Abs(quat.Abs(b.Quat)-1) > 1e-15 {
		t.Errorf("Renormalize left |q| = %g", quat.Abs(b.Quat))
	}
}

func TestEnergy(t *testing.T) {
	b := newBody(t, "b")
	if err := b.SetMass(2); err != nil {
		t.Fatal(err)
	}
	if err := b.SetInertia(1, 2, 3, 0, 0, 0); err != nil {
		t.Fatal(err)
	}
	b.Vel = r3.Vector{X: 1, Y: 2}
	b.SetAngularVelocity(1, 1, 1)
	b.Pos = r3.Vector{Y: 3}

	// ½·2·5 + ½·(1+2+3)
	if ke := b.KineticEnergy(); math.Abs(ke-8) > 1e-12 {
		t.Errorf("KineticEnergy = %g, want 8", ke)
	}
	if pe := b.PotentialEnergy(r3.Vector{Y: -9.8}); math.Abs(pe-58.8) > 1e-12 {
		t.Errorf("PotentialEnergy = %g, want 58.8", pe)
	}
}

func TestWorldPoint(t *testing.T) {
	b := newBody(t, "b")
	b.Pos = r3.Vector{X: 1}
	if err := b.SetQuaternion(spatial.AxisAngle(r3.Vector{Z: 1}, math.Pi/2)); err != nil {
		t.Fatal(err)
	}
	b.Refresh()
	got := b.WorldPoint(r3.Vector{X: 0.5})
	want := r3.Vector{X: 1, Y: 0.5}
	if got.Sub(want).Norm() > 1e-12 {
		t.Errorf("WorldPoint = %v, want %v", got, want)
	}
}
