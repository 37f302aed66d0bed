package multibody

import (
	"context"
	"math"

	"github.com/golang/geo/r3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/dynamo"
	"github.com/san-kum/rigidsim/internal/joint"
	"github.com/san-kum/rigidsim/internal/metrics"
)

type stepCounter struct{ calls int }

func (c *stepCounter) OnStep(x dynamo.State, t float64) { c.calls++ }

var _ = Describe("System", func() {
	Describe("membership", func() {
		var s *System

		BeforeEach(func() {
			var err error
			s, err = New("rig", nil)
			Expect(err).NotTo(HaveOccurred())
			mustAdd(s,
				newTestBody("a", r3.Vector{}),
				newTestBody("b", r3.Vector{X: 1}),
				newTestBody("c", r3.Vector{X: 2}),
			)
		})

		It("rejects invalid system names", func() {
			_, err := New("bad name", nil)
			Expect(err).To(MatchError(dynamo.ErrConfiguration))
		})

		It("returns insertion indices", func() {
			Expect(s.BodyIndex("a")).To(Equal(0))
			Expect(s.BodyIndex("c")).To(Equal(2))
			Expect(s.BodyIndex("missing")).To(Equal(-1))
			i, err := s.AddBody(newTestBody("d", r3.Vector{}))
			Expect(err).NotTo(HaveOccurred())
			Expect(i).To(Equal(3))
		})

		It("rejects duplicate names", func() {
			_, err := s.AddBody(newTestBody("b", r3.Vector{}))
			Expect(err).To(MatchError(dynamo.ErrDuplicateName))
			Expect(s.Bodies()).To(HaveLen(3))

			j := newTestJoint("j", joint.Sphere, s.Body("a"), s.Body("b"), r3.Vector{}, r3.Vector{})
			_, err = s.AddJoint(j)
			Expect(err).NotTo(HaveOccurred())
			_, err = s.AddJoint(newTestJoint("j", joint.Fix, s.Body("b"), s.Body("c"), r3.Vector{}, r3.Vector{}))
			Expect(err).To(MatchError(dynamo.ErrDuplicateName))
		})

		It("renumbers after removal", func() {
			Expect(s.RemoveBody("b")).To(Succeed())
			Expect(s.BodyIndex("c")).To(Equal(1))
			Expect(s.Body("b")).To(BeNil())
			Expect(s.RemoveBody("b")).To(MatchError(dynamo.ErrNotFound))
			Expect(s.RemoveJoint("nothing")).To(MatchError(dynamo.ErrNotFound))
		})

		It("requires setup after a membership change", func() {
			Expect(s.Setup()).To(Succeed())
			Expect(s.Ready()).To(BeTrue())
			Expect(s.StateDim()).To(Equal(42))
			Expect(s.SnapshotDim()).To(Equal(64))

			Expect(s.RemoveBody("c")).To(Succeed())
			Expect(s.Ready()).To(BeFalse())
			Expect(s.Step()).To(MatchError(dynamo.ErrNotSetup))
			_, err := s.Solve(context.Background(), 1)
			Expect(err).To(MatchError(dynamo.ErrNotSetup))
		})

		It("fails setup when a joint refers to a removed body", func() {
			mustAdd(s, newTestJoint("ab", joint.Sphere, s.Body("a"), s.Body("b"), r3.Vector{}, r3.Vector{}))
			Expect(s.RemoveBody("b")).To(Succeed())
			Expect(s.Setup()).To(MatchError(dynamo.ErrNotFound))

			Expect(s.RemoveJoint("ab")).To(Succeed())
			Expect(s.Setup()).To(Succeed())
		})

		It("fails setup for incomplete joints", func() {
			j, err := joint.New("loose", nil)
			Expect(err).NotTo(HaveOccurred())
			mustAdd(s, j)
			Expect(s.Setup()).To(MatchError(dynamo.ErrConfiguration))
		})

		It("fails setup without bodies or with a bad step", func() {
			empty, err := New("empty", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(empty.Setup()).To(MatchError(dynamo.ErrConfiguration))

			s.Dt = 0
			Expect(s.Setup()).To(MatchError(dynamo.ErrValidation))
		})
	})

	Describe("simulation", func() {
		It("keeps a pendulum on its pivot", func() {
			s := anchoredSystem(joint.Sphere, nil, WithDt(1e-3))
			s.AddMetric(metrics.NewConstraintGap(s))
			res, err := s.Solve(context.Background(), 300)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.StepsTaken).To(Equal(300))
			Expect(res.Log).To(HaveLen(301))
			Expect(res.Metrics["constraint_gap"]).To(BeNumerically("<", 1e-6))
			Expect(s.Time()).To(BeNumerically("~", 0.3, 1e-9))

			bob := s.Body("bob")
			Expect(bob.Pos.Y).To(BeNumerically("<", -0.1))
			Expect(bob.Pos.Norm()).To(BeNumerically("~", 1, 1e-6))
		})

		It("keeps a hinged arm in the plane of rotation", func() {
			s := anchoredSystem(joint.Hinge, func(j *joint.Joint) {
				Expect(j.SetAxis(0, 0, 1, 1)).To(Succeed())
			}, WithDt(1e-3))
			_, err := s.Solve(context.Background(), 300)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.ConstraintGap()).To(BeNumerically("<", 1e-6))

			bob := s.Body("bob")
			Expect(bob.Pos.Z).To(BeNumerically("~", 0, 1e-9))
			Expect(bob.Quat.Imag).To(BeNumerically("~", 0, 1e-9))
			Expect(bob.Quat.Jmag).To(BeNumerically("~", 0, 1e-9))
			Expect(math.Abs(bob.Quat.Kmag)).To(BeNumerically(">", 0.01))
		})

		It("slides along an inclined axis without turning", func() {
			s := anchoredSystem(joint.Slide, func(j *joint.Joint) {
				Expect(j.SetAxis(1, -1, 0, 1)).To(Succeed())
			}, WithDt(1e-3))
			_, err := s.Solve(context.Background(), 300)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.ConstraintGap()).To(BeNumerically("<", 1e-6))

			bob := s.Body("bob")
			// g/√2 along the incline puts g/2 on each of x and -y.
			travel := 0.5 * 4.9 * 0.3 * 0.3
			Expect(bob.Pos.X).To(BeNumerically("~", 1+travel, 1e-6))
			Expect(bob.Pos.Y).To(BeNumerically("~", -travel, 1e-6))
			Expect(bob.Quat.Real).To(BeNumerically("~", 1, 1e-9))
			Expect(joint.Travel(s.Joint("pivot"))).To(BeNumerically("~", math.Sqrt2*travel, 1e-6))
		})

		It("drops welded bodies together", func() {
			s, err := New("weld", nil, WithDt(1e-3))
			Expect(err).NotTo(HaveOccurred())
			a := newTestBody("a", r3.Vector{})
			b := newTestBody("b", r3.Vector{X: 1})
			mustAdd(s, a, b, newTestJoint("w", joint.Fix, a, b, r3.Vector{X: 0.5}, r3.Vector{X: -0.5}))
			Expect(s.Setup()).To(Succeed())

			_, err = s.Solve(context.Background(), 100)
			Expect(err).NotTo(HaveOccurred())
			offset := b.Pos.Sub(a.Pos)
			Expect(offset.X).To(BeNumerically("~", 1, 1e-9))
			Expect(offset.Y).To(BeNumerically("~", 0, 1e-9))
			Expect(a.Pos.Y).To(BeNumerically("~", -0.5*9.8*0.01, 1e-9))
		})

		It("notifies observers once per step", func() {
			s := chainSystem(WithDt(1e-3))
			c := &stepCounter{}
			s.AddObserver(c)
			_, err := s.Solve(context.Background(), 12)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.calls).To(Equal(12))
		})

		It("returns a partial result when cancelled", func() {
			s := chainSystem(WithDt(1e-3))
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			res, err := s.Solve(ctx, 10)
			Expect(err).To(MatchError(context.Canceled))
			Expect(res).NotTo(BeNil())
			Expect(res.StepsTaken).To(Equal(0))
			Expect(res.Log).To(HaveLen(1))
		})

		It("rejects a negative step count", func() {
			s := chainSystem()
			_, err := s.Solve(context.Background(), -1)
			Expect(err).To(MatchError(dynamo.ErrValidation))
		})

		It("skips the log when logging is off", func() {
			s := chainSystem(WithLogging(false), WithDt(1e-3))
			res, err := s.Solve(context.Background(), 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Log).To(BeEmpty())
			Expect(s.Steps()).To(Equal(5))
		})

		It("reports a non-finite state", func() {
			s := anchoredSystem(joint.Sphere, nil, WithDt(1e-3))
			s.Body("bob").Vel = r3.Vector{X: math.Inf(1)}
			_, err := s.Solve(context.Background(), 3)
			var simErr *dynamo.SimulationError
			Expect(err).To(HaveOccurred())
			Expect(err).To(BeAssignableToTypeOf(simErr))
		})

		It("holds the quaternion norm on constraint rows alone", func() {
			s, err := New("spin", nil, WithDt(1e-3), WithGravity(r3.Vector{}), WithNormalization(body.ConstraintOnly))
			Expect(err).NotTo(HaveOccurred())
			b := newTestBody("top", r3.Vector{})
			b.SetAngularVelocity(0.3, 0, 5)
			mustAdd(s, b)
			Expect(s.Setup()).To(Succeed())
			s.AddMetric(metrics.NewQuaternionNorm(1))
			s.AddMetric(metrics.NewEnergyDrift(s))

			res, err := s.Solve(context.Background(), 500)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Metrics["quat_norm_error"]).To(BeNumerically("<", 1e-6))
			Expect(res.EnergyDrift).To(BeNumerically("<", 1e-6))
		})
	})
})
