// Package multibody assembles bodies and joints into a system of
// constrained equations of motion and integrates it.
//
// For n bodies the generalized coordinates are x = [x₁ … xₙ], seven per body
// (position then quaternion in [x, y, z, w] order). Each evaluation builds
//
//	M·ẍ = F        A·ẍ = b
//
// and solves them together by projecting M onto the null space of A.
package multibody

import (
	"fmt"

	"github.com/golang/geo/r3"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/dynamo"
	"github.com/san-kum/rigidsim/internal/integrators"
	"github.com/san-kum/rigidsim/internal/joint"
)

const (
	DefaultDt = 1e-4
	// dof is the number of generalized coordinates per body.
	dof = 7
)

// DefaultGravity points down the y axis.
var DefaultGravity = r3.Vector{Y: -9.8}

type Option func(*System)

func WithDt(dt float64) Option {
	return func(s *System) { s.Dt = dt }
}

func WithGravity(g r3.Vector) Option {
	return func(s *System) { s.Gravity = g }
}

func WithIntegrator(integ dynamo.Integrator) Option {
	return func(s *System) { s.integrator = integ }
}

// WithLogging toggles the snapshot log.
func WithLogging(on bool) Option {
	return func(s *System) { s.Logging = on }
}

func WithNormalization(p body.NormPolicy) Option {
	return func(s *System) { s.Normalization = p }
}

// System is a named collection of bodies and joints. Bodies and joints are
// referenced, not owned: the same body may be shared with other code, but
// must not be mutated while a step is running.
type System struct {
	Name          string
	Dt            float64
	Gravity       r3.Vector
	Logging       bool
	Normalization body.NormPolicy

	// Log holds one row [t, x…, ẋ…, ẍ…] per snapshot.
	Log []dynamo.State

	bodies []*body.Body
	joints []*joint.Joint
	index  map[*body.Body]int

	x, xd, xdd *mat.VecDense
	m          *mat.Dense
	f          *mat.VecDense
	a          *mat.Dense
	b          *mat.VecDense

	// synced is the [x, ẋ] that the bodies, joints and xdd currently
	// reflect.
	synced   dynamo.State
	solveErr error

	time       float64
	steps      int
	ready      bool
	started    bool
	integrator dynamo.Integrator
	metrics    []dynamo.Metric
	observers  []dynamo.Observer
	energy0    float64

	logger *zap.SugaredLogger
}

func New(name string, logger *zap.SugaredLogger, opts ...Option) (*System, error) {
	if err := dynamo.ValidateName(name); err != nil {
		return nil, fmt.Errorf("system: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &System{
		Name:       name,
		Dt:         DefaultDt,
		Gravity:    DefaultGravity,
		Logging:    true,
		integrator: integrators.NewRK4(),
		logger:     logger.With("system", name),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// AddBody appends b and returns its index.
func (s *System) AddBody(b *body.Body) (int, error) {
	if b == nil {
		return -1, fmt.Errorf("%w: nil body", dynamo.ErrConfiguration)
	}
	if s.BodyIndex(b.Name) >= 0 {
		return -1, fmt.Errorf("%w: body %q in system %s", dynamo.ErrDuplicateName, b.Name, s.Name)
	}
	s.bodies = append(s.bodies, b)
	s.invalidate()
	return len(s.bodies) - 1, nil
}

// AddJoint appends j and returns its index.
func (s *System) AddJoint(j *joint.Joint) (int, error) {
	if j == nil {
		return -1, fmt.Errorf("%w: nil joint", dynamo.ErrConfiguration)
	}
	if s.JointIndex(j.Name) >= 0 {
		return -1, fmt.Errorf("%w: joint %q in system %s", dynamo.ErrDuplicateName, j.Name, s.Name)
	}
	s.joints = append(s.joints, j)
	s.invalidate()
	return len(s.joints) - 1, nil
}

// RemoveBody drops the named body. Later bodies move down one index.
func (s *System) RemoveBody(name string) error {
	i := s.BodyIndex(name)
	if i < 0 {
		return fmt.Errorf("%w: body %q in system %s", dynamo.ErrNotFound, name, s.Name)
	}
	s.bodies = append(s.bodies[:i], s.bodies[i+1:]...)
	s.invalidate()
	return nil
}

// RemoveJoint drops the named joint. Later joints move down one index.
func (s *System) RemoveJoint(name string) error {
	i := s.JointIndex(name)
	if i < 0 {
		return fmt.Errorf("%w: joint %q in system %s", dynamo.ErrNotFound, name, s.Name)
	}
	s.joints = append(s.joints[:i], s.joints[i+1:]...)
	s.invalidate()
	return nil
}

// BodyIndex returns the membership index of the named body, or -1.
func (s *System) BodyIndex(name string) int {
	for i, b := range s.bodies {
		if b.Name == name {
			return i
		}
	}
	return -1
}

// JointIndex returns the membership index of the named joint, or -1.
func (s *System) JointIndex(name string) int {
	for i, j := range s.joints {
		if j.Name == name {
			return i
		}
	}
	return -1
}

func (s *System) Body(name string) *body.Body {
	if i := s.BodyIndex(name); i >= 0 {
		return s.bodies[i]
	}
	return nil
}

func (s *System) Joint(name string) *joint.Joint {
	if i := s.JointIndex(name); i >= 0 {
		return s.joints[i]
	}
	return nil
}

func (s *System) Bodies() []*body.Body   { return s.bodies }
func (s *System) Joints() []*joint.Joint { return s.joints }

func (s *System) invalidate() {
	s.ready = false
	s.started = false
}

// Setup validates the joints and sizes every global vector and matrix from
// the current membership. It must be called after any membership change.
func (s *System) Setup() error {
	if len(s.bodies) == 0 {
		return fmt.Errorf("%w: system %s has no bodies", dynamo.ErrConfiguration, s.Name)
	}
	if !(s.Dt > 0) {
		return fmt.Errorf("%w: system %s: dt %g must be positive", dynamo.ErrValidation, s.Name, s.Dt)
	}

	index := make(map[*body.Body]int, len(s.bodies))
	for i, b := range s.bodies {
		index[b] = i
	}

	rows := len(s.bodies)
	for _, j := range s.joints {
		if err := j.Validate(); err != nil {
			return err
		}
		for k, b := range j.Bodies {
			if b == nil {
				continue
			}
			if _, ok := index[b]; !ok {
				return fmt.Errorf("%w: joint %s body %d (%s) is not in system %s",
					dynamo.ErrNotFound, j.Name, k+1, b.Name, s.Name)
			}
		}
		rows += j.Rows()
	}

	n := dof * len(s.bodies)
	s.index = index
	s.x = mat.NewVecDense(n, nil)
	s.xd = mat.NewVecDense(n, nil)
	s.xdd = mat.NewVecDense(n, nil)
	s.m = mat.NewDense(n, n, nil)
	s.f = mat.NewVecDense(n, nil)
	s.a = mat.NewDense(rows, n, nil)
	s.b = mat.NewVecDense(rows, nil)
	s.Log = make([]dynamo.State, 0)
	s.synced = nil
	s.solveErr = nil
	s.ready = true
	s.started = false

	s.logger.Debugw("system set up", "bodies", len(s.bodies), "joints", len(s.joints), "constraint_rows", rows)
	return nil
}

// Ready reports whether Setup has run since the last membership change.
func (s *System) Ready() bool { return s.ready }

// StateDim is the length of [x, ẋ].
func (s *System) StateDim() int { return 2 * dof * len(s.bodies) }

// SnapshotDim is the length of one log row.
func (s *System) SnapshotDim() int { return 3*dof*len(s.bodies) + 1 }

func (s *System) Time() float64 { return s.time }
func (s *System) Steps() int    { return s.steps }

// Integrator returns the integrator used by Step.
func (s *System) Integrator() dynamo.Integrator { return s.integrator }

func (s *System) AddMetric(m dynamo.Metric)     { s.metrics = append(s.metrics, m) }
func (s *System) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }
