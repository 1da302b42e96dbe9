package sweep

import (
	"context"
	"errors"
	"fmt"

	"backtest-lab/internal/domain"
)

// Walk-forward errors
var (
	ErrInvalidFolds    = errors.New("folds must be >= 1")
	ErrInvalidFraction = errors.New("in-sample fraction must be within (0, 1)")
	ErrNotEnoughBars   = errors.New("not enough distinct timestamps for the requested folds")
	ErrNoViableJob     = errors.New("no job completed in-sample")
)

// Window is an inclusive time span of bars.
type Window struct {
	StartMs int64
	EndMs   int64
	Bars    int
}

// Fold is one walk-forward step: the best in-sample job re-run out-of-sample.
type Fold struct {
	Index             int
	InSample          Window
	OutOfSample       Window
	Best              Job
	InSampleResult    *domain.BacktestResult
	OutOfSampleResult *domain.BacktestResult
}

// WalkForward splits bars into folds contiguous segments. Within each
// segment the first inSampleFrac of timestamps is in-sample. All jobs run
// in-sample, the best by Sharpe (see Best) runs out-of-sample.
// Segments split on timestamp boundaries so a timestamp never straddles two windows.
func (r *Runner) WalkForward(ctx context.Context, bars []domain.Bar, jobs []Job, folds int, inSampleFrac float64) ([]Fold, error) {
	if len(jobs) == 0 {
		return nil, ErrNoJobs
	}
	if folds < 1 {
		return nil, ErrInvalidFolds
	}
	if !(inSampleFrac > 0 && inSampleFrac < 1) {
		return nil, ErrInvalidFraction
	}

	bounds := timestampBounds(bars)
	// each fold needs at least one timestamp on each side
	if len(bounds)-1 < folds*2 {
		return nil, fmt.Errorf("%w: %d timestamps, %d folds", ErrNotEnoughBars, len(bounds)-1, folds)
	}

	groups := len(bounds) - 1
	result := make([]Fold, 0, folds)
	for f := 0; f < folds; f++ {
		lo := groups * f / folds
		hi := groups * (f + 1) / folds
		split := lo + int(float64(hi-lo)*inSampleFrac)
		if split <= lo {
			split = lo + 1
		}
		if split >= hi {
			split = hi - 1
		}

		inBars := bars[bounds[lo]:bounds[split]]
		outBars := bars[bounds[split]:bounds[hi]]

		outcomes, err := r.Run(ctx, inBars, jobs)
		if err != nil {
			return result, err
		}
		best := Best(outcomes)
		if best < 0 {
			return result, fmt.Errorf("fold %d: %w", f, ErrNoViableJob)
		}

		oos, err := r.Run(ctx, outBars, []Job{jobs[best]})
		if err != nil {
			return result, err
		}
		if oos[0].Err != nil {
			return result, fmt.Errorf("fold %d out-of-sample: %w", f, oos[0].Err)
		}

		result = append(result, Fold{
			Index:             f,
			InSample:          window(inBars),
			OutOfSample:       window(outBars),
			Best:              jobs[best],
			InSampleResult:    outcomes[best].Result,
			OutOfSampleResult: oos[0].Result,
		})
	}
	return result, nil
}

// timestampBounds returns the start index of every distinct timestamp
// group plus len(bars) as the final bound.
func timestampBounds(bars []domain.Bar) []int {
	var bounds []int
	for i := range bars {
		if i == 0 || bars[i].TimestampMs != bars[i-1].TimestampMs {
			bounds = append(bounds, i)
		}
	}
	return append(bounds, len(bars))
}

func window(bars []domain.Bar) Window {
	if len(bars) == 0 {
		return Window{}
	}
	return Window{StartMs: bars[0].TimestampMs, EndMs: bars[len(bars)-1].TimestampMs, Bars: len(bars)}
}
