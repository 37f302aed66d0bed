package multibody

import (
	"context"
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/rigidsim/internal/dynamo"
	"github.com/san-kum/rigidsim/internal/spatial"
)

// Start synchronizes the system with its bodies, computes the initial
// accelerations and records the first snapshot. Time restarts at zero.
func (s *System) Start() error {
	if !s.ready {
		return fmt.Errorf("%w: %s", dynamo.ErrNotSetup, s.Name)
	}
	s.solveErr = nil
	for _, b := range s.bodies {
		b.RefreshWith(s.Normalization)
	}
	s.evaluateJoints()
	if s.solveErr != nil {
		return s.solveErr
	}
	s.body2x()
	s.calxdd()
	if err := s.takeError(0); err != nil {
		return err
	}

	s.time = 0
	s.steps = 0
	s.Log = make([]dynamo.State, 0, 1)
	s.snapshot()

	y := s.synced
	s.energy0 = s.Energy(y)
	for _, m := range s.metrics {
		m.Reset()
		m.Observe(y, s.time)
	}
	s.started = true

	s.logger.Debugw("system started",
		"integrator", s.integrator.Name(),
		"dt", s.Dt,
		"normalization", s.Normalization.String(),
		"energy", s.energy0,
	)
	return nil
}

// Step advances the system by one time step of Dt.
func (s *System) Step() error {
	if !s.ready {
		return fmt.Errorf("%w: %s", dynamo.ErrNotSetup, s.Name)
	}
	if !s.started {
		if err := s.Start(); err != nil {
			return err
		}
	}

	y := s.integrator.Step(s, s.State(), s.time, s.Dt)
	if err := s.takeError(s.steps + 1); err != nil {
		return err
	}
	if !y.IsValid() {
		return &dynamo.SimulationError{Step: s.steps + 1, Time: s.time + s.Dt, Wrapped: dynamo.ErrInvalidState}
	}

	if s.synced == nil || !y.Equal(s.synced) {
		s.x2body(y)
		s.calxdd()
	}
	if err := s.takeError(s.steps + 1); err != nil {
		return err
	}

	s.time += s.Dt
	s.steps++
	s.snapshot()

	for _, m := range s.metrics {
		m.Observe(y, s.time)
	}
	for _, o := range s.observers {
		o.OnStep(y, s.time)
	}
	return nil
}

// Solve starts the system and takes nsteps steps. The returned result holds
// the snapshot log and metric values even when a step fails or ctx is
// cancelled part way.
func (s *System) Solve(ctx context.Context, nsteps int) (*dynamo.Result, error) {
	if nsteps < 0 {
		return nil, fmt.Errorf("%w: negative step count %d", dynamo.ErrValidation, nsteps)
	}
	if err := s.Start(); err != nil {
		return nil, err
	}

	var runErr error
	for i := 0; i < nsteps; i++ {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
		default:
			runErr = s.Step()
		}
		if runErr != nil {
			break
		}
	}

	result := s.result()
	if runErr != nil {
		s.logger.Warnw("solve stopped early", "steps", s.steps, "time", s.time, "error", runErr)
		return result, runErr
	}
	s.logger.Infow("solve finished",
		"steps", s.steps,
		"time", s.time,
		"energy_drift", result.EnergyDrift,
		"constraint_gap", s.ConstraintGap(),
	)
	return result, nil
}

func (s *System) result() *dynamo.Result {
	r := &dynamo.Result{
		Log:        s.Log,
		Metrics:    make(map[string]float64, len(s.metrics)),
		StepsTaken: s.steps,
	}
	for _, m := range s.metrics {
		r.Metrics[m.Name()] = m.Value()
	}
	if s.energy0 != 0 {
		r.EnergyDrift = math.Abs(s.Energy(s.State())-s.energy0) / math.Abs(s.energy0)
	}
	return r
}

func (s *System) takeError(step int) error {
	if s.solveErr == nil {
		return nil
	}
	err := s.solveErr
	s.solveErr = nil
	return &dynamo.SimulationError{Step: step, Time: s.time, Wrapped: err}
}

// snapshot appends [t, x, ẋ, ẍ] to the log when logging is on.
func (s *System) snapshot() {
	if !s.Logging {
		return
	}
	row := make(dynamo.State, 0, s.SnapshotDim())
	row = append(row, s.time)
	row = append(row, s.x.RawVector().Data...)
	row = append(row, s.xd.RawVector().Data...)
	row = append(row, s.xdd.RawVector().Data...)
	s.Log = append(s.Log, row)
}

// Energy returns the kinetic plus gravitational potential energy at
// y = [x, ẋ], without moving the bodies.
func (s *System) Energy(y dynamo.State) float64 {
	n := dof * len(s.bodies)
	if len(y) < 2*n {
		return 0
	}
	total := 0.0
	for i, b := range s.bodies {
		o := dof * i
		pos := r3.Vector{X: y[o], Y: y[o+1], Z: y[o+2]}
		vel := r3.Vector{X: y[n+o], Y: y[n+o+1], Z: y[n+o+2]}
		q := spatial.QuatFrom(y[o+3 : o+7])
		qd := spatial.QuatFrom(y[n+o+3 : n+o+7])

		w := spatial.Vec(spatial.RateTimes(spatial.RateMatrix(q), qd))
		total += 0.5*b.Mass*vel.Norm2() + 0.5*mat.Inner(w, b.Inertia, w)
		total -= b.Mass * s.Gravity.Dot(pos)
	}
	return total
}

// ConstraintGap returns the largest position-level joint violation at the
// synchronized state.
func (s *System) ConstraintGap() float64 {
	gap := 0.0
	for _, j := range s.joints {
		gap = math.Max(gap, j.Gap())
	}
	return gap
}
