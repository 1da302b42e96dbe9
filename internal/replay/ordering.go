// Package replay orders and validates historical bar series before replay.
package replay

import (
	"fmt"
	"sort"

	"backtest-lab/internal/domain"
)

// SortBars orders bars by (timestamp ASC, symbol ASC) in place.
// This provides deterministic ordering across multi-symbol series.
func SortBars(bars []domain.Bar) {
	sort.SliceStable(bars, func(i, j int) bool {
		return compareBars(&bars[i], &bars[j]) < 0
	})
}

// MergeBars combines per-symbol series into one sorted series.
// Inputs are not modified.
func MergeBars(series ...[]domain.Bar) []domain.Bar {
	n := 0
	for _, s := range series {
		n += len(s)
	}
	merged := make([]domain.Bar, 0, n)
	for _, s := range series {
		merged = append(merged, s...)
	}
	SortBars(merged)
	return merged
}

// ValidateOrdering checks that bars are strictly ordered by (timestamp, symbol).
// Equal keys are reported as ErrDuplicateBar.
func ValidateOrdering(bars []domain.Bar) error {
	for i := 1; i < len(bars); i++ {
		switch c := compareBars(&bars[i-1], &bars[i]); {
		case c == 0:
			return fmt.Errorf("%w: %s at %d (index %d)", ErrDuplicateBar, bars[i].Symbol, bars[i].TimestampMs, i)
		case c > 0:
			return fmt.Errorf("%w: index %d (%s@%d) after %s@%d", ErrInvalidOrdering,
				i, bars[i].Symbol, bars[i].TimestampMs, bars[i-1].Symbol, bars[i-1].TimestampMs)
		}
	}
	return nil
}

// ValidateSeries checks a series is non-empty, ordered and free of corrupt bars.
func ValidateSeries(bars []domain.Bar) error {
	if len(bars) == 0 {
		return ErrEmptySeries
	}
	for i := range bars {
		if err := bars[i].Validate(); err != nil {
			return fmt.Errorf("bar %d: %w", i, err)
		}
	}
	return ValidateOrdering(bars)
}

// Symbols returns the distinct symbols of bars, sorted.
func Symbols(bars []domain.Bar) []string {
	seen := make(map[string]struct{})
	for i := range bars {
		seen[bars[i].Symbol] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// compareBars returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
//
// Order: (timestamp ASC, symbol ASC)
func compareBars(a, b *domain.Bar) int {
	if a.TimestampMs != b.TimestampMs {
		if a.TimestampMs < b.TimestampMs {
			return -1
		}
		return 1
	}
	if a.Symbol != b.Symbol {
		if a.Symbol < b.Symbol {
			return -1
		}
		return 1
	}
	return 0
}
