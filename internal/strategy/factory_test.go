package strategy

import (
	"errors"
	"testing"

	"backtest-lab/internal/domain"
)

func TestFromConfig_TrendFollowing(t *testing.T) {
	cfg := domain.StrategyConfig{
		Type: domain.StrategyTypeTrendFollowing,
		Parameters: map[string]float64{
			ParamFastPeriod:  3,
			ParamSlowPeriod:  10,
			ParamPositionPct: 25,
			ParamAllowShort:  1,
		},
	}

	s, err := FromConfig(cfg)
	if err != nil {
		t.Fatalf("FromConfig failed: %v", err)
	}

	tf, ok := s.(*TrendFollowingStrategy)
	if !ok {
		t.Fatalf("expected *TrendFollowingStrategy, got %T", s)
	}
	if tf.FastPeriod != 3 || tf.SlowPeriod != 10 {
		t.Errorf("expected periods 3/10, got %d/%d", tf.FastPeriod, tf.SlowPeriod)
	}
	if tf.PositionPct != 25 {
		t.Errorf("expected 25, got %f", tf.PositionPct)
	}
	if !tf.AllowShort {
		t.Error("expected AllowShort")
	}
	if tf.ID() != "TREND_FOLLOWING_3_10" {
		t.Errorf("unexpected ID %s", tf.ID())
	}
}

func TestFromConfig_Defaults(t *testing.T) {
	types := []string{
		domain.StrategyTypeTrendFollowing,
		domain.StrategyTypeMeanReversion,
		domain.StrategyTypeBreakout,
	}
	for _, typ := range types {
		if _, err := FromConfig(domain.StrategyConfig{Type: typ}); err != nil {
			t.Errorf("%s with defaults: unexpected error %v", typ, err)
		}
	}
}

func TestFromConfig_MeanReversion(t *testing.T) {
	cfg := domain.StrategyConfig{
		Type:       domain.StrategyTypeMeanReversion,
		Parameters: map[string]float64{ParamLookback: 30, ParamEntryZ: 2.5, ParamExitZ: 0.25},
	}

	s, err := FromConfig(cfg)
	if err != nil {
		t.Fatalf("FromConfig failed: %v", err)
	}
	mr, ok := s.(*MeanReversionStrategy)
	if !ok {
		t.Fatalf("expected *MeanReversionStrategy, got %T", s)
	}
	if mr.Lookback != 30 || mr.EntryZ != 2.5 || mr.ExitZ != 0.25 {
		t.Errorf("unexpected params %+v", mr)
	}
}

func TestFromConfig_Scheduled(t *testing.T) {
	cfg := domain.StrategyConfig{
		Type:       domain.StrategyTypeScheduled,
		Parameters: map[string]float64{ParamBuyAtBar: 10, ParamQuantity: 2},
	}

	s, err := FromConfig(cfg)
	if err != nil {
		t.Fatalf("FromConfig failed: %v", err)
	}
	sc, ok := s.(*ScheduledStrategy)
	if !ok {
		t.Fatalf("expected *ScheduledStrategy, got %T", s)
	}
	if sc.BuyAtBar != 10 || sc.SellAtBar != -1 || sc.Quantity != 2 {
		t.Errorf("unexpected params %+v", sc)
	}
}

func TestFromConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     domain.StrategyConfig
		wantErr error
	}{
		{
			name:    "unknown type",
			cfg:     domain.StrategyConfig{Type: "UNKNOWN"},
			wantErr: ErrUnknownStrategyType,
		},
		{
			name: "fast not below slow",
			cfg: domain.StrategyConfig{
				Type:       domain.StrategyTypeTrendFollowing,
				Parameters: map[string]float64{ParamFastPeriod: 20, ParamSlowPeriod: 20},
			},
			wantErr: ErrInvalidPeriods,
		},
		{
			name: "position pct above 100",
			cfg: domain.StrategyConfig{
				Type:       domain.StrategyTypeTrendFollowing,
				Parameters: map[string]float64{ParamPositionPct: 150},
			},
			wantErr: ErrInvalidPositionPct,
		},
		{
			name: "exit z above entry z",
			cfg: domain.StrategyConfig{
				Type:       domain.StrategyTypeMeanReversion,
				Parameters: map[string]float64{ParamEntryZ: 1, ParamExitZ: 2},
			},
			wantErr: ErrInvalidThreshold,
		},
		{
			name: "short lookback",
			cfg: domain.StrategyConfig{
				Type:       domain.StrategyTypeBreakout,
				Parameters: map[string]float64{ParamLookback: 1},
			},
			wantErr: ErrInvalidLookback,
		},
		{
			name:    "empty schedule",
			cfg:     domain.StrategyConfig{Type: domain.StrategyTypeScheduled},
			wantErr: ErrMissingSchedule,
		},
		{
			name: "zero scheduled quantity",
			cfg: domain.StrategyConfig{
				Type:       domain.StrategyTypeScheduled,
				Parameters: map[string]float64{ParamBuyAtBar: 1, ParamQuantity: 0},
			},
			wantErr: ErrInvalidQuantity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromConfig(tt.cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
