package verification

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"backtest-lab/internal/backtest"
	"backtest-lab/internal/domain"
	"backtest-lab/internal/idhash"
	"backtest-lab/internal/storage"
)

var (
	// ErrRunNotFound is returned when run ID doesn't exist.
	ErrRunNotFound = errors.New("run not found")

	// ErrNotReplayable is returned for runs that were cancelled part way.
	// Their bar count at start is not recorded, so the run ID cannot be reproduced.
	ErrNotReplayable = errors.New("run did not complete and cannot be replayed")
)

// ReplayVerifier implements Verifier over a backtest.Runner's stores.
type ReplayVerifier struct {
	runner      *backtest.Runner
	resultStore storage.ResultStore
	logger      *zap.Logger
}

// ReplayVerifierOptions contains configuration for creating a ReplayVerifier.
type ReplayVerifierOptions struct {
	BarStore    storage.BarStore
	ResultStore storage.ResultStore
	TradeStore  storage.TradeStore
	FillStore   storage.FillStore
	Logger      *zap.Logger
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(opts ReplayVerifierOptions) *ReplayVerifier {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReplayVerifier{
		runner: backtest.NewRunner(backtest.RunnerOptions{
			BarStore:    opts.BarStore,
			ResultStore: opts.ResultStore,
			TradeStore:  opts.TradeStore,
			FillStore:   opts.FillStore,
			Logger:      logger,
		}),
		resultStore: opts.ResultStore,
		logger:      logger,
	}
}

// VerifyRun verifies a single run by replaying it.
func (v *ReplayVerifier) VerifyRun(ctx context.Context, runID string) (*VerificationResult, error) {
	// 1. Load stored run with trades and fills
	stored, err := v.runner.Load(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	if stored.Status != domain.RunStatusCompleted {
		return nil, ErrNotReplayable
	}

	// 2. Reload bars and replay with the recorded seed
	bars, err := v.runner.LoadBars(ctx, stored.Strategy.Symbols, stored.StartMs, stored.EndMs)
	if err != nil {
		return nil, err
	}
	replayed, err := v.runner.Replay(ctx, stored, bars)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", runID, err)
	}

	// 3. Compare
	divergences := CompareResults(stored, replayed)

	// Stored fills must hash to the stored digest.
	if len(stored.Fills) > 0 {
		if digest := idhash.ComputeFillsDigest(stored.Fills); digest != stored.FillsDigest {
			divergences = append(divergences, FieldDivergence{
				Field:    "StoredFillsDigest",
				Expected: stored.FillsDigest,
				Actual:   digest,
			})
		}
	}

	v.logger.Debug("run verified",
		zap.String("run_id", runID),
		zap.Int("divergences", len(divergences)),
	)

	return &VerificationResult{
		RunID:          runID,
		Match:          len(divergences) == 0,
		Divergences:    divergences,
		StoredDigest:   stored.FillsDigest,
		ReplayedDigest: replayed.FillsDigest,
	}, nil
}

// VerifyAll verifies all stored runs. Runs that did not complete are counted
// as skipped.
func (v *ReplayVerifier) VerifyAll(ctx context.Context) (*VerificationReport, error) {
	runs, err := v.resultStore.List(ctx)
	if err != nil {
		return nil, err
	}

	report := &VerificationReport{
		TotalRuns: len(runs),
		Results:   make([]VerificationResult, 0, len(runs)),
	}

	for _, run := range runs {
		result, err := v.VerifyRun(ctx, run.RunID)
		switch {
		case errors.Is(err, ErrNotReplayable):
			report.SkippedRuns++
			continue
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Record error as divergence
			report.Results = append(report.Results, VerificationResult{
				RunID:        run.RunID,
				Match:        false,
				StoredDigest: run.FillsDigest,
				Divergences: []FieldDivergence{
					{Field: "Error", Expected: nil, Actual: err.Error()},
				},
			})
			report.DivergentRuns++
			continue
		}

		report.Results = append(report.Results, *result)
		if result.Match {
			report.MatchedRuns++
		} else {
			report.DivergentRuns++
		}
	}

	return report, nil
}
