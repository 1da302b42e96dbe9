// Package sweep runs many independent backtests over shared bars.
package sweep

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"backtest-lab/internal/backtest"
	"backtest-lab/internal/domain"
	"backtest-lab/internal/observability"
)

// Sweep errors
var (
	ErrNoJobs = errors.New("sweep has no jobs")
)

// Job outcome labels
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomePartial = "partial"
)

// Job is one backtest of a sweep.
type Job struct {
	Name     string
	Backtest domain.BacktestConfig
	Strategy domain.StrategyConfig
}

// Outcome is the result of one job. Exactly one of Result and Err is set.
type Outcome struct {
	Job      Job
	Result   *domain.BacktestResult
	Err      error
	Duration time.Duration
}

// Label returns the outcome label used for metrics.
func (o *Outcome) Label() string {
	switch {
	case o.Err != nil:
		return OutcomeFailed
	case o.Result.Status != domain.RunStatusCompleted:
		return OutcomePartial
	default:
		return OutcomeOK
	}
}

// Options configures a Runner.
type Options struct {
	Workers     int // concurrent jobs, 1 when <= 0
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	AbortPolicy backtest.AbortPolicy

	// OnOutcome is called from worker goroutines as jobs finish.
	// A returned error cancels the remaining jobs.
	OnOutcome func(ctx context.Context, o *Outcome) error
}

// Runner executes jobs concurrently. Every job builds its own engine, so
// runs share nothing but the read-only bars.
type Runner struct {
	workers     int
	logger      *zap.Logger
	metrics     *observability.Metrics
	abortPolicy backtest.AbortPolicy
	onOutcome   func(context.Context, *Outcome) error
}

// NewRunner creates a sweep runner.
func NewRunner(opts Options) *Runner {
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		workers:     workers,
		logger:      logger,
		metrics:     opts.Metrics,
		abortPolicy: opts.AbortPolicy,
		onOutcome:   opts.OnOutcome,
	}
}

// Run executes jobs over bars and returns outcomes in job order.
// A failing job does not stop the others; its error is kept in its Outcome.
// The returned error is non-nil only when OnOutcome fails.
func (r *Runner) Run(ctx context.Context, bars []domain.Bar, jobs []Job) ([]Outcome, error) {
	if len(jobs) == 0 {
		return nil, ErrNoJobs
	}

	outcomes := make([]Outcome, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	r.logger.Info("sweep started", zap.Int("jobs", len(jobs)), zap.Int("workers", r.workers))
	for i := range jobs {
		g.Go(func() error {
			outcomes[i] = r.runJob(gctx, bars, jobs[i])
			if r.onOutcome != nil {
				return r.onOutcome(gctx, &outcomes[i])
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	r.logger.Info("sweep finished", zap.Int("jobs", len(jobs)))
	return outcomes, nil
}

func (r *Runner) runJob(ctx context.Context, bars []domain.Bar, job Job) Outcome {
	r.metrics.SweepJobStarted()
	started := time.Now()

	out := Outcome{Job: job}
	engine, err := backtest.NewEngine(job.Backtest, job.Strategy,
		backtest.WithLogger(r.logger.With(zap.String("job", job.Name))),
		backtest.WithMetrics(r.metrics),
		backtest.WithAbortPolicy(r.abortPolicy),
	)
	if err == nil {
		out.Result, err = engine.Run(ctx, bars)
	}
	out.Err = err
	out.Duration = time.Since(started)

	r.metrics.SweepJobFinished(out.Label())
	if err != nil {
		r.logger.Warn("sweep job failed", zap.String("job", job.Name), zap.Error(err))
	}
	return out
}

// Best returns the index of the completed outcome with the highest Sharpe
// ratio, ties broken by lower index. Returns -1 when none completed.
func Best(outcomes []Outcome) int {
	best := -1
	for i := range outcomes {
		o := &outcomes[i]
		if o.Err != nil || o.Result.Status != domain.RunStatusCompleted {
			continue
		}
		if best < 0 || o.Result.SharpeRatio > outcomes[best].Result.SharpeRatio {
			best = i
		}
	}
	return best
}
