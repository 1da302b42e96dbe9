package strategy

import (
	"errors"
	"fmt"

	"backtest-lab/internal/domain"
)

// Factory errors
var (
	ErrUnknownStrategyType = errors.New("unknown strategy type")
	ErrInvalidPeriods      = errors.New("TREND_FOLLOWING requires 0 < fast_period < slow_period")
	ErrInvalidLookback     = errors.New("lookback must be >= 2")
	ErrInvalidThreshold    = errors.New("MEAN_REVERSION requires 0 <= exit_z < entry_z")
	ErrInvalidPositionPct  = errors.New("position_pct must be within (0, 100]")
	ErrMissingSchedule     = errors.New("SCHEDULED requires buy_at_bar or sell_at_bar")
	ErrInvalidQuantity     = errors.New("SCHEDULED quantity must be positive")
)

// Parameter keys
const (
	ParamFastPeriod  = "fast_period"
	ParamSlowPeriod  = "slow_period"
	ParamPositionPct = "position_pct"
	ParamAllowShort  = "allow_short"
	ParamLookback    = "lookback"
	ParamEntryZ      = "entry_z"
	ParamExitZ       = "exit_z"
	ParamBuyAtBar    = "buy_at_bar"
	ParamSellAtBar   = "sell_at_bar"
	ParamQuantity    = "quantity"
)

// FromConfig creates a SignalSource from domain.StrategyConfig.
// Validates required parameters per strategy type.
// Returns clear errors for missing/invalid params.
func FromConfig(cfg domain.StrategyConfig) (SignalSource, error) {
	switch cfg.Type {
	case domain.StrategyTypeTrendFollowing:
		return fromTrendFollowingConfig(cfg)
	case domain.StrategyTypeMeanReversion:
		return fromMeanReversionConfig(cfg)
	case domain.StrategyTypeBreakout:
		return fromBreakoutConfig(cfg)
	case domain.StrategyTypeScheduled:
		return fromScheduledConfig(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategyType, cfg.Type)
	}
}

// fromTrendFollowingConfig creates TrendFollowingStrategy from config.
func fromTrendFollowingConfig(cfg domain.StrategyConfig) (*TrendFollowingStrategy, error) {
	fast := int(cfg.ParamOr(ParamFastPeriod, 5))
	slow := int(cfg.ParamOr(ParamSlowPeriod, 20))
	if fast <= 0 || slow <= fast {
		return nil, ErrInvalidPeriods
	}
	pct, err := positionPct(cfg)
	if err != nil {
		return nil, err
	}

	return NewTrendFollowingStrategy(fast, slow, pct, cfg.ParamOr(ParamAllowShort, 0) != 0), nil
}

// fromMeanReversionConfig creates MeanReversionStrategy from config.
func fromMeanReversionConfig(cfg domain.StrategyConfig) (*MeanReversionStrategy, error) {
	lookback := int(cfg.ParamOr(ParamLookback, 20))
	if lookback < 2 {
		return nil, ErrInvalidLookback
	}
	entryZ := cfg.ParamOr(ParamEntryZ, 2)
	exitZ := cfg.ParamOr(ParamExitZ, 0.5)
	if exitZ < 0 || entryZ <= exitZ {
		return nil, ErrInvalidThreshold
	}
	pct, err := positionPct(cfg)
	if err != nil {
		return nil, err
	}

	return NewMeanReversionStrategy(lookback, entryZ, exitZ, pct, cfg.ParamOr(ParamAllowShort, 0) != 0), nil
}

// fromBreakoutConfig creates BreakoutStrategy from config.
func fromBreakoutConfig(cfg domain.StrategyConfig) (*BreakoutStrategy, error) {
	lookback := int(cfg.ParamOr(ParamLookback, 20))
	if lookback < 2 {
		return nil, ErrInvalidLookback
	}
	pct, err := positionPct(cfg)
	if err != nil {
		return nil, err
	}

	return NewBreakoutStrategy(lookback, pct), nil
}

// fromScheduledConfig creates ScheduledStrategy from config.
func fromScheduledConfig(cfg domain.StrategyConfig) (*ScheduledStrategy, error) {
	buyAt := int(cfg.ParamOr(ParamBuyAtBar, -1))
	sellAt := int(cfg.ParamOr(ParamSellAtBar, -1))
	if buyAt < 0 && sellAt < 0 {
		return nil, ErrMissingSchedule
	}
	qty := cfg.ParamOr(ParamQuantity, 1)
	if !(qty > 0) {
		return nil, ErrInvalidQuantity
	}

	return NewScheduledStrategy(buyAt, sellAt, qty), nil
}

func positionPct(cfg domain.StrategyConfig) (float64, error) {
	pct := cfg.ParamOr(ParamPositionPct, 10)
	if !(pct > 0) || pct > 100 {
		return 0, ErrInvalidPositionPct
	}
	return pct, nil
}
