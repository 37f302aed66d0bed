package config

import (
	"fmt"
	"os"

	"github.com/golang/geo/r3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/num/quat"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/dynamo"
	"github.com/san-kum/rigidsim/internal/integrators"
	"github.com/san-kum/rigidsim/internal/joint"
	"github.com/san-kum/rigidsim/internal/metrics"
	"github.com/san-kum/rigidsim/internal/multibody"
)

const (
	DefaultDt    = 1e-3
	DefaultSteps = 1000
	// DefaultStabilityLimit is the state magnitude past which the stability
	// metric counts a violation.
	DefaultStabilityLimit = 1e6
)

// Config describes a scenario. Empty vectors take their zero or identity
// defaults; vector lengths are checked by Validate.
type Config struct {
	Name        string        `yaml:"name"`
	Dt          float64       `yaml:"dt"`
	Steps       int           `yaml:"steps"`
	Gravity     []float64     `yaml:"gravity,omitempty"`
	Integrator  string        `yaml:"integrator"`
	Renormalize *bool         `yaml:"renormalize,omitempty"`
	Log         *bool         `yaml:"log,omitempty"`
	Bodies      []BodyConfig  `yaml:"bodies"`
	Joints      []JointConfig `yaml:"joints,omitempty"`
}

type BodyConfig struct {
	Name string   `yaml:"name"`
	Mass *float64 `yaml:"mass,omitempty"`
	// Inertia is [ixx, iyy, izz, ixy, ixz, iyz].
	Inertia  []float64 `yaml:"inertia,omitempty"`
	Position []float64 `yaml:"position,omitempty"`
	// Quaternion is [x, y, z, w].
	Quaternion []float64 `yaml:"quaternion,omitempty"`
	Velocity   []float64 `yaml:"velocity,omitempty"`
	Omega      []float64 `yaml:"omega,omitempty"`
}

type JointConfig struct {
	Name   string    `yaml:"name"`
	Type   string    `yaml:"type"`
	Body1  string    `yaml:"body1"`
	Body2  string    `yaml:"body2,omitempty"`
	Point1 []float64 `yaml:"point1,omitempty"`
	Point2 []float64 `yaml:"point2,omitempty"`
	Axis1  []float64 `yaml:"axis1,omitempty"`
	Axis2  []float64 `yaml:"axis2,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Name:       "scenario",
		Dt:         DefaultDt,
		Steps:      DefaultSteps,
		Gravity:    []float64{0, multibody.DefaultGravity.Y, 0},
		Integrator: "rk4",
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", dynamo.ErrConfiguration, path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// RenormalizeEnabled reports whether bodies renormalize their quaternion on
// refresh. It defaults to true.
func (c *Config) RenormalizeEnabled() bool { return c.Renormalize == nil || *c.Renormalize }

// LogEnabled reports whether snapshots are logged. It defaults to true.
func (c *Config) LogEnabled() bool { return c.Log == nil || *c.Log }

// Validate reports every problem in the scenario at once.
func (c *Config) Validate() error {
	var errs error
	add := func(format string, args ...any) {
		errs = multierr.Append(errs, fmt.Errorf("%w: "+format, append([]any{dynamo.ErrValidation}, args...)...))
	}

	if err := dynamo.ValidateName(c.Name); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("scenario: %w", err))
	}
	if !(c.Dt > 0) {
		add("dt %g must be positive", c.Dt)
	}
	if c.Steps < 0 {
		add("steps %d must not be negative", c.Steps)
	}
	if !sized(c.Gravity, 3) {
		add("gravity needs 3 components, got %d", len(c.Gravity))
	}
	if _, err := integrators.ByName(c.Integrator); err != nil {
		errs = multierr.Append(errs, err)
	}
	if len(c.Bodies) == 0 {
		add("scenario %s has no bodies", c.Name)
	}

	bodies := make(map[string]bool, len(c.Bodies))
	for i, b := range c.Bodies {
		if err := dynamo.ValidateName(b.Name); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("body %d: %w", i, err))
		}
		if bodies[b.Name] {
			errs = multierr.Append(errs, fmt.Errorf("%w: body %q", dynamo.ErrDuplicateName, b.Name))
		}
		bodies[b.Name] = true
		if b.Mass != nil && !(*b.Mass > 0) {
			add("body %s: mass %g must be positive", b.Name, *b.Mass)
		}
		if !sized(b.Inertia, 6) {
			add("body %s: inertia needs 6 components, got %d", b.Name, len(b.Inertia))
		}
		if !sized(b.Quaternion, 4) {
			add("body %s: quaternion needs 4 components, got %d", b.Name, len(b.Quaternion))
		}
		for field, v := range map[string][]float64{"position": b.Position, "velocity": b.Velocity, "omega": b.Omega} {
			if !sized(v, 3) {
				add("body %s: %s needs 3 components, got %d", b.Name, field, len(v))
			}
		}
	}

	joints := make(map[string]bool, len(c.Joints))
	for i, j := range c.Joints {
		if err := dynamo.ValidateName(j.Name); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("joint %d: %w", i, err))
		}
		if joints[j.Name] {
			errs = multierr.Append(errs, fmt.Errorf("%w: joint %q", dynamo.ErrDuplicateName, j.Name))
		}
		joints[j.Name] = true

		kind, err := joint.ParseKind(j.Type)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("joint %s: %w", j.Name, err))
		}
		if !bodies[j.Body1] {
			errs = multierr.Append(errs, fmt.Errorf("%w: joint %s: body1 %q", dynamo.ErrNotFound, j.Name, j.Body1))
		}
		if kind != joint.Ground && err == nil && !bodies[j.Body2] {
			errs = multierr.Append(errs, fmt.Errorf("%w: joint %s: body2 %q", dynamo.ErrNotFound, j.Name, j.Body2))
		}
		for field, v := range map[string][]float64{"point1": j.Point1, "point2": j.Point2, "axis1": j.Axis1, "axis2": j.Axis2} {
			if !sized(v, 3) {
				add("joint %s: %s needs 3 components, got %d", j.Name, field, len(v))
			}
		}
	}
	return errs
}

// Build validates the scenario and assembles a set-up system from it, with
// the energy drift, constraint gap, quaternion norm and stability metrics
// attached.
func Build(cfg *Config, logger *zap.SugaredLogger) (*multibody.System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	integ, err := integrators.ByName(cfg.Integrator)
	if err != nil {
		return nil, err
	}

	policy := body.Renormalize
	if !cfg.RenormalizeEnabled() {
		policy = body.ConstraintOnly
	}
	gravity := multibody.DefaultGravity
	if len(cfg.Gravity) == 3 {
		gravity = vec(cfg.Gravity)
	}
	sys, err := multibody.New(cfg.Name, logger,
		multibody.WithDt(cfg.Dt),
		multibody.WithGravity(gravity),
		multibody.WithIntegrator(integ),
		multibody.WithLogging(cfg.LogEnabled()),
		multibody.WithNormalization(policy),
	)
	if err != nil {
		return nil, err
	}

	for _, bc := range cfg.Bodies {
		b, err := buildBody(bc, logger)
		if err != nil {
			return nil, err
		}
		if _, err := sys.AddBody(b); err != nil {
			return nil, err
		}
	}
	for _, jc := range cfg.Joints {
		j, err := buildJoint(jc, sys, logger)
		if err != nil {
			return nil, err
		}
		if _, err := sys.AddJoint(j); err != nil {
			return nil, err
		}
	}
	if err := sys.Setup(); err != nil {
		return nil, err
	}

	sys.AddMetric(metrics.NewEnergyDrift(sys))
	sys.AddMetric(metrics.NewConstraintGap(sys))
	sys.AddMetric(metrics.NewQuaternionNorm(len(cfg.Bodies)))
	sys.AddMetric(metrics.NewStability(DefaultStabilityLimit))
	return sys, nil
}

func buildBody(bc BodyConfig, logger *zap.SugaredLogger) (*body.Body, error) {
	b, err := body.New(bc.Name, logger)
	if err != nil {
		return nil, err
	}
	if bc.Mass != nil {
		if err := b.SetMass(*bc.Mass); err != nil {
			return nil, err
		}
	}
	if len(bc.Inertia) == 6 {
		in := bc.Inertia
		if err := b.SetInertia(in[0], in[1], in[2], in[3], in[4], in[5]); err != nil {
			return nil, err
		}
	}
	if len(bc.Quaternion) == 4 {
		q := quat.Number{Real: bc.Quaternion[3], Imag: bc.Quaternion[0], Jmag: bc.Quaternion[1], Kmag: bc.Quaternion[2]}
		if err := b.SetQuaternion(q); err != nil {
			return nil, err
		}
	}
	b.Pos = vec(bc.Position)
	b.Vel = vec(bc.Velocity)
	w := vec(bc.Omega)
	b.SetAngularVelocity(w.X, w.Y, w.Z)
	return b, nil
}

func buildJoint(jc JointConfig, sys *multibody.System, logger *zap.SugaredLogger) (*joint.Joint, error) {
	j, err := joint.New(jc.Name, logger)
	if err != nil {
		return nil, err
	}
	kind, err := joint.ParseKind(jc.Type)
	if err != nil {
		return nil, err
	}
	if err := j.SetKind(kind); err != nil {
		return nil, err
	}
	j.Attach(sys.Body(jc.Body1), sys.Body(jc.Body2))
	j.Point1 = vec(jc.Point1)
	j.Point2 = vec(jc.Point2)
	for which, axis := range map[int][]float64{1: jc.Axis1, 2: jc.Axis2} {
		if len(axis) != 3 {
			continue
		}
		if err := j.SetAxis(axis[0], axis[1], axis[2], which); err != nil {
			return nil, err
		}
	}
	return j, nil
}

func sized(v []float64, n int) bool { return len(v) == 0 || len(v) == n }

func vec(v []float64) r3.Vector {
	if len(v) != 3 {
		return r3.Vector{}
	}
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}
