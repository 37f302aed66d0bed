package joint

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/dynamo"
	"github.com/san-kum/rigidsim/internal/spatial"
)

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if k, err := ParseKind(" Hinge "); err != nil || k != Hinge {
		t.Errorf("ParseKind is not case-insensitive: %v, %v", k, err)
	}
	if _, err := ParseKind("universal"); !errors.Is(err, dynamo.ErrUnsupportedJoint) {
		t.Errorf("ParseKind(universal) error = %v", err)
	}
}

func TestSetKindShapes(t *testing.T) {
	tests := []struct {
		kind  Kind
		rows  int
		hasA2 bool
	}{
		{Ground, 7, false},
		{Sphere, 3, true},
		{Fix, 6, true},
		{Hinge, 6, true},
		{Slide, 6, true},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			g := NewWithT(t)
			j, err := New("j", nil)
			g.Expect(err).NotTo(HaveOccurred())
			g.Expect(j.SetKind(tt.kind)).To(Succeed())

			r, c := j.A1.Dims()
			g.Expect([]int{r, c}).To(Equal([]int{tt.rows, 7}))
			g.Expect(j.B.Len()).To(Equal(tt.rows))
			g.Expect(j.Rows()).To(Equal(tt.rows))
			if tt.hasA2 {
				r, c = j.A2.Dims()
				g.Expect([]int{r, c}).To(Equal([]int{tt.rows, 7}))
			} else {
				g.Expect(j.A2).To(BeNil())
			}
		})
	}
}

func TestSetKindRejectsUnknown(t *testing.T) {
	j, _ := New("j", nil)
	if err := j.SetKind(Kind(42)); !errors.Is(err, dynamo.ErrUnsupportedJoint) {
		t.Errorf("SetKind(42) error = %v", err)
	}
	if err := j.SetKind(KindNone); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("SetKind(none) error = %v", err)
	}
}

func TestSetAxis(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	j, err := New("j", zap.New(core).Sugar())
	if err != nil {
		t.Fatal(err)
	}

	if err := j.SetAxis(0, 0, 0, 1); !errors.Is(err, dynamo.ErrValidation) {
		t.Errorf("zero axis error = %v", err)
	}
	if err := j.SetAxis(1, 0, 0, 3); !errors.Is(err, dynamo.ErrValidation) {
		t.Errorf("axis index 3 error = %v", err)
	}
	if err := j.SetAxis(0, 3, 4, 2); err != nil {
		t.Fatal(err)
	}
	if want := (r3.Vector{Y: 0.6, Z: 0.8}); j.Axis2.Sub(want).Norm() > 1e-15 {
		t.Errorf("Axis2 = %v, want %v", j.Axis2, want)
	}
	if logs.Len() != 1 {
		t.Errorf("got %d warnings, want 1", logs.Len())
	}
	if err := j.SetAxis(1, 0, 0, 1); err != nil {
		t.Fatal(err)
	}
	if logs.Len() != 1 {
		t.Errorf("unit axis should not warn")
	}
}

func TestValidate(t *testing.T) {
	b0, _ := body.New("b0", nil)
	b1, _ := body.New("b1", nil)

	j, _ := New("j", nil)
	if err := j.Validate(); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("untyped joint validated: %v", err)
	}
	if err := j.Evaluate(); err == nil {
		t.Error("Evaluate on untyped joint succeeded")
	}
	if j.Gap() != 0 {
		t.Error("Gap on untyped joint is non-zero")
	}

	_ = j.SetKind(Sphere)
	j.Attach(b0, nil)
	if err := j.Validate(); err == nil {
		t.Error("sphere joint with one body validated")
	}
	j.Attach(b0, b0)
	if err := j.Validate(); err == nil {
		t.Error("sphere joint on a single body validated")
	}
	j.Attach(b0, b1)
	if err := j.Validate(); err != nil {
		t.Errorf("valid sphere joint: %v", err)
	}

	_ = j.SetKind(Ground)
	j.Attach(b0, nil)
	if err := j.Validate(); err != nil {
		t.Errorf("valid ground joint: %v", err)
	}
}

func TestGroundEvaluate(t *testing.T) {
	b0, _ := body.New("b0", nil)
	j, _ := New("g", nil)
	_ = j.SetKind(Ground)
	j.Attach(b0, nil)
	j.B.SetVec(2, 5)

	if err := j.Evaluate(); err != nil {
		t.Fatal(err)
	}
	if !mat.Equal(j.A1, spatial.Eye(7)) {
		t.Errorf("A1 = %v", mat.Formatted(j.A1))
	}
	if mat.Dot(j.B, j.B) != 0 {
		t.Errorf("B = %v", mat.Formatted(j.B))
	}
}

// motion is a body trajectory with constant generalized acceleration.
type motion struct {
	pos, vel, acc r3.Vector
	q, qd, qdd    quat.Number
}

// frame is the inertial placement and angular velocity of a body.
type frame struct {
	pos   r3.Vector
	rot   *mat.Dense
	omega r3.Vector
}

func (f frame) point(p r3.Vector) r3.Vector {
	return f.pos.Add(spatial.Apply(f.rot, p))
}

func randomVec(rng *rand.Rand) r3.Vector {
	return r3.Vector{X: rng.Float64()*2 - 1, Y: rng.Float64()*2 - 1, Z: rng.Float64()*2 - 1}
}

func randomMotion(rng *rand.Rand) motion {
	q := spatial.AxisAngle(randomVec(rng), 3*rng.Float64())
	qd := spatial.RateFromOmega(spatial.RateMatrix(q), randomVec(rng))
	r := quat.Number{Real: rng.Float64(), Imag: rng.Float64(), Jmag: rng.Float64(), Kmag: rng.Float64()}
	// q·q̈ = −q̇·q̇ keeps the norm stationary to second order.
	qdd := quat.Sub(r, quat.Scale(spatial.Dot4(q, r)+spatial.Dot4(qd, qd), q))
	return motion{
		pos: randomVec(rng), vel: randomVec(rng), acc: randomVec(rng),
		q: q, qd: qd, qdd: qdd,
	}
}

func (m motion) body(t *testing.T, name string) *body.Body {
	t.Helper()
	b, err := body.New(name, zaptest.NewLogger(t).Sugar())
	if err != nil {
		t.Fatal(err)
	}
	b.Pos = m.pos
	b.Vel = m.vel
	b.Quat = m.q
	b.QuatRate = m.qd
	b.Refresh()
	return b
}

func (m motion) at(h float64) frame {
	q := quat.Add(m.q, quat.Add(quat.Scale(h, m.qd), quat.Scale(0.5*h*h, m.qdd)))
	qd := quat.Add(m.qd, quat.Scale(h, m.qdd))
	rot := spatial.RotationMatrix(q)
	return frame{
		pos:   m.pos.Add(m.vel.Mul(h)).Add(m.acc.Mul(0.5 * h * h)),
		rot:   rot,
		omega: spatial.Apply(rot, spatial.RateTimes(spatial.RateMatrix(q), qd)),
	}
}

func (m motion) accel() *mat.VecDense {
	v := mat.NewVecDense(7, nil)
	spatial.SetVec(v, 0, m.acc)
	spatial.PutQuat(v.RawVector().Data[3:], m.qdd)
	return v
}

func cat(vs ...r3.Vector) []float64 {
	out := make([]float64, 0, 3*len(vs))
	for _, v := range vs {
		out = append(out, v.X, v.Y, v.Z)
	}
	return out
}

// constraintCase describes a joint by position-level rows, differentiated
// twice, and velocity-level rows, differentiated once.
type constraintCase struct {
	kind     Kind
	position func(j *Joint, f1, f2 frame) []float64
	velocity func(j *Joint, f1, f2 frame) []float64
}

func TestJacobiansMatchFiniteDifferences(t *testing.T) {
	coincident := func(j *Joint, f1, f2 frame) []float64 {
		return cat(f1.point(j.Point1).Sub(f2.point(j.Point2)))
	}
	sameOmega := func(_ *Joint, f1, f2 frame) []float64 {
		return cat(f1.omega.Sub(f2.omega))
	}
	cases := []constraintCase{
		{kind: Sphere, position: coincident},
		{kind: Fix, position: coincident, velocity: sameOmega},
		{
			kind: Hinge,
			position: func(j *Joint, f1, f2 frame) []float64 {
				return cat(
					f1.point(j.Point1.Add(j.Axis1)).Sub(f2.point(j.Point2.Add(j.Axis2))),
					f1.point(j.Point1.Sub(j.Axis1)).Sub(f2.point(j.Point2.Sub(j.Axis2))),
				)
			},
		},
		{
			kind: Slide,
			position: func(j *Joint, f1, f2 frame) []float64 {
				u := spatial.Apply(f1.rot, j.Axis1)
				return cat(u.Cross(f1.point(j.Point1).Sub(f2.point(j.Point2))))
			},
			velocity: sameOmega,
		},
	}

	rng := rand.New(rand.NewSource(7))
	const h = 1e-4
	for _, tc := range cases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			for trial := 0; trial < 5; trial++ {
				m1, m2 := randomMotion(rng), randomMotion(rng)
				j, _ := New("j", nil)
				if err := j.SetKind(tc.kind); err != nil {
					t.Fatal(err)
				}
				j.Point1, j.Point2 = randomVec(rng), randomVec(rng)
				a := randomVec(rng).Normalize()
				j.Axis1 = a
				j.Attach(m1.body(t, "b1"), m2.body(t, "b2"))
				if err := j.Evaluate(); err != nil {
					t.Fatal(err)
				}

				var got, tmp mat.VecDense
				got.MulVec(j.A1, m1.accel())
				tmp.MulVec(j.A2, m2.accel())
				got.AddVec(&got, &tmp)
				got.SubVec(&got, j.B)

				var want []float64
				if tc.position != nil {
					fp := tc.position(j, m1.at(h), m2.at(h))
					f0 := tc.position(j, m1.at(0), m2.at(0))
					fm := tc.position(j, m1.at(-h), m2.at(-h))
					for i := range f0 {
						want = append(want, (fp[i]-2*f0[i]+fm[i])/(h*h))
					}
				}
				if tc.velocity != nil {
					fp := tc.velocity(j, m1.at(h), m2.at(h))
					fm := tc.velocity(j, m1.at(-h), m2.at(-h))
					for i := range fp {
						want = append(want, (fp[i]-fm[i])/(2*h))
					}
				}
				if len(want) != got.Len() {
					t.Fatalf("compared %d rows, joint has %d", len(want), got.Len())
				}
				for i, w := range want {
					if d := math.Abs(got.AtVec(i) - w); d > 1e-5*(1+math.Abs(w)) {
						t.Errorf("trial %d row %d: A·ẍ − B = %.9g, finite difference %.9g", trial, i, got.AtVec(i), w)
					}
				}
			}
		})
	}
}

func TestHingeRederivesAxis2(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	m1, m2 := randomMotion(rng), randomMotion(rng)
	b1, b2 := m1.body(t, "b1"), m2.body(t, "b2")

	j, _ := New("h", nil)
	_ = j.SetKind(Hinge)
	_ = j.SetAxis(1, 1, 0, 1)
	j.Attach(b1, b2)
	if err := j.Evaluate(); err != nil {
		t.Fatal(err)
	}
	w1 := spatial.Apply(b1.DCM, j.Axis1)
	w2 := spatial.Apply(b2.DCM, j.Axis2)
	if w1.Sub(w2).Norm() > 1e-12 {
		t.Errorf("inertial axes differ: %v vs %v", w1, w2)
	}
}

func TestGap(t *testing.T) {
	b0, _ := body.New("b0", nil)
	b1, _ := body.New("b1", nil)
	b1.Pos = r3.Vector{X: 1, Y: 0.5}
	b1.Refresh()

	sphere, _ := New("s", nil)
	_ = sphere.SetKind(Sphere)
	sphere.Attach(b0, b1)
	sphere.Point1 = r3.Vector{X: 0.5}
	sphere.Point2 = r3.Vector{X: -0.5}
	if g := sphere.Gap(); math.Abs(g-0.5) > 1e-15 {
		t.Errorf("sphere gap = %g, want 0.5", g)
	}

	slide, _ := New("p", nil)
	_ = slide.SetKind(Slide)
	slide.Attach(b0, b1)
	_ = slide.SetAxis(1, 0, 0, 1)
	if g := slide.Gap(); math.Abs(g-0.5) > 1e-15 {
		t.Errorf("slide gap = %g, want 0.5", g)
	}
	if d := Travel(slide); math.Abs(d-1) > 1e-15 {
		t.Errorf("slide travel = %g, want 1", d)
	}

	ground, _ := New("g", nil)
	_ = ground.SetKind(Ground)
	ground.Attach(b1, nil)
	if ground.Gap() != 0 {
		t.Error("ground gap is non-zero")
	}
}
