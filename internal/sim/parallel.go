// Package sim runs batches of independent scenarios side by side.
package sim

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/dynamo"
)

// Outcome is the result of one scenario in an ensemble. Err holds a build or
// solve failure; Result may still be set when the solve stopped part way.
type Outcome struct {
	Label   string
	Config  *config.Config
	Result  *dynamo.Result
	Elapsed time.Duration
	Err     error
}

// Ensemble builds and solves each of its scenarios on its own system. No
// state is shared between runs.
type Ensemble struct {
	labels  []string
	configs []*config.Config
	workers int
	logger  *zap.SugaredLogger
}

// NewEnsemble returns an empty ensemble running at most workers scenarios at
// once. workers <= 0 means one per CPU.
func NewEnsemble(logger *zap.SugaredLogger, workers int) *Ensemble {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Ensemble{workers: workers, logger: logger}
}

// Add queues cfg under label. The ensemble takes ownership of cfg.
func (e *Ensemble) Add(label string, cfg *config.Config) {
	e.labels = append(e.labels, label)
	e.configs = append(e.configs, cfg)
}

func (e *Ensemble) Len() int { return len(e.configs) }

// Run solves every queued scenario for its configured number of steps.
// Outcomes are returned in the order they were added. The error is non-nil
// only when ctx ends before every scenario has run.
func (e *Ensemble) Run(ctx context.Context) ([]Outcome, error) {
	outcomes := make([]Outcome, len(e.configs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range e.configs {
		g.Go(func() error {
			outcomes[i] = e.runOne(gctx, e.labels[i], e.configs[i])
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, ctx.Err()
}

func (e *Ensemble) runOne(ctx context.Context, label string, cfg *config.Config) Outcome {
	out := Outcome{Label: label, Config: cfg}
	if err := ctx.Err(); err != nil {
		out.Err = err
		return out
	}

	sys, err := config.Build(cfg, e.logger.With("run", label))
	if err != nil {
		out.Err = err
		return out
	}

	start := time.Now()
	out.Result, out.Err = sys.Solve(ctx, cfg.Steps)
	out.Elapsed = time.Since(start)
	if out.Err != nil {
		e.logger.Debugw("ensemble run failed", "run", label, "error", out.Err)
	}
	return out
}
