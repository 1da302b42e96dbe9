// Package config loads command configuration from an optional YAML file,
// defaults and BTLAB_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"backtest-lab/internal/backtest"
	"backtest-lab/internal/domain"
)

// EnvPrefix prefixes environment overrides, e.g. BTLAB_BACKTEST_SEED.
const EnvPrefix = "BTLAB"

// Abort policy names
const (
	AbortPolicyExclude    = "exclude"
	AbortPolicyForceClose = "force_close"
)

// ErrUnknownAbortPolicy is returned for abort policy names other than the constants above.
var ErrUnknownAbortPolicy = errors.New("unknown abort policy")

// Config is the full command configuration.
type Config struct {
	Backtest BacktestSection `mapstructure:"backtest"`
	Strategy StrategySection `mapstructure:"strategy"`
	Storage  StorageSection  `mapstructure:"storage"`
	Sweep    SweepSection    `mapstructure:"sweep"`
	Log      LogSection      `mapstructure:"log"`
}

// BacktestSection holds execution parameters and the replay period.
type BacktestSection struct {
	InitialCapital   float64         `mapstructure:"initial_capital"`
	FillModel        string          `mapstructure:"fill_model"`
	CustomProfile    *ProfileSection `mapstructure:"custom_profile"`
	CommissionRate   float64         `mapstructure:"commission_rate"`
	MakerDiscount    float64         `mapstructure:"maker_discount"`
	SlippageBps      *float64        `mapstructure:"slippage_bps"`
	LatencyMs        *float64        `mapstructure:"latency_ms"`
	Seed             *int64          `mapstructure:"seed"`
	BookDepth        int             `mapstructure:"book_depth"`
	EquitySnapshotMs int64           `mapstructure:"equity_snapshot_ms"`
	AbortPolicy      string          `mapstructure:"abort_policy"`
	StartMs          int64           `mapstructure:"start_ms"`
	EndMs            int64           `mapstructure:"end_ms"` // 0 means unbounded
}

// ProfileSection is a CUSTOM fill model profile.
type ProfileSection struct {
	LimitFillProbability float64 `mapstructure:"limit_fill_probability"`
	SlippageProbability  float64 `mapstructure:"slippage_probability"`
	AvgSlippageBps       float64 `mapstructure:"avg_slippage_bps"`
	BaseLatencyMs        float64 `mapstructure:"base_latency_ms"`
	LatencyVarianceMs    float64 `mapstructure:"latency_variance_ms"`
	LatencySizeFactorMs  float64 `mapstructure:"latency_size_factor_ms"`
}

// StrategySection describes the strategy to run.
type StrategySection struct {
	ID            string             `mapstructure:"id"`
	Type          string             `mapstructure:"type"`
	Symbols       []string           `mapstructure:"symbols"`
	Parameters    map[string]float64 `mapstructure:"parameters"`
	StopLossPct   float64            `mapstructure:"stop_loss_pct"`
	TakeProfitPct float64            `mapstructure:"take_profit_pct"`
}

// StorageSection selects stores. Empty DSNs fall back to memory stores.
type StorageSection struct {
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	ClickHouseDSN string `mapstructure:"clickhouse_dsn"`
	BarsCSV       string `mapstructure:"bars_csv"` // file or directory of per-symbol CSV files
	Migrate       bool   `mapstructure:"migrate"`
}

// SweepSection configures parameter sweeps and walk-forward analysis.
type SweepSection struct {
	Workers      int                  `mapstructure:"workers"`
	Grid         map[string][]float64 `mapstructure:"grid"`
	Folds        int                  `mapstructure:"folds"` // 0 disables walk-forward
	InSampleFrac float64              `mapstructure:"in_sample_frac"`
}

// LogSection configures logging.
type LogSection struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backtest.initial_capital", 100_000.0)
	v.SetDefault("backtest.fill_model", domain.FillModelStandard)
	v.SetDefault("backtest.commission_rate", 0.001)
	v.SetDefault("backtest.maker_discount", 0.0)
	v.SetDefault("backtest.book_depth", domain.DefaultBookDepth)
	v.SetDefault("backtest.equity_snapshot_ms", domain.DefaultEquitySnapshotMs)
	v.SetDefault("backtest.abort_policy", AbortPolicyExclude)
	v.SetDefault("backtest.start_ms", 0)
	v.SetDefault("backtest.end_ms", 0)

	v.SetDefault("strategy.type", domain.StrategyTypeTrendFollowing)

	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.clickhouse_dsn", "")
	v.SetDefault("storage.bars_csv", "")
	v.SetDefault("storage.migrate", false)

	v.SetDefault("sweep.workers", 4)
	v.SetDefault("sweep.folds", 0)
	v.SetDefault("sweep.in_sample_frac", 0.7)

	v.SetDefault("log.level", "info")
}

// Load reads path (optional, YAML) and applies defaults and environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Keys without defaults are invisible to AutomaticEnv during Unmarshal.
	for _, key := range []string{"backtest.seed", "backtest.slippage_bps", "backtest.latency_ms", "strategy.id"} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// BacktestConfig converts the backtest section and validates it.
func (c *Config) BacktestConfig() (domain.BacktestConfig, error) {
	b := c.Backtest
	cfg := domain.BacktestConfig{
		InitialCapital:   b.InitialCapital,
		FillModel:        strings.ToUpper(b.FillModel),
		CommissionRate:   b.CommissionRate,
		MakerDiscount:    b.MakerDiscount,
		SlippageBps:      b.SlippageBps,
		LatencyMs:        b.LatencyMs,
		Seed:             b.Seed,
		BookDepth:        b.BookDepth,
		EquitySnapshotMs: b.EquitySnapshotMs,
	}
	if p := b.CustomProfile; p != nil {
		cfg.CustomProfile = &domain.FillModelProfile{
			Name:                 domain.FillModelCustom,
			LimitFillProbability: p.LimitFillProbability,
			SlippageProbability:  p.SlippageProbability,
			AvgSlippageBps:       p.AvgSlippageBps,
			BaseLatencyMs:        p.BaseLatencyMs,
			LatencyVarianceMs:    p.LatencyVarianceMs,
			LatencySizeFactorMs:  p.LatencySizeFactorMs,
		}
	}
	if err := cfg.Validate(); err != nil {
		return domain.BacktestConfig{}, err
	}
	return cfg, nil
}

// StrategyConfig converts the strategy section.
func (c *Config) StrategyConfig() domain.StrategyConfig {
	s := c.Strategy
	params := make(map[string]float64, len(s.Parameters))
	for k, v := range s.Parameters {
		params[k] = v
	}
	return domain.StrategyConfig{
		StrategyID: s.ID,
		Type:       strings.ToUpper(s.Type),
		Symbols:    append([]string(nil), s.Symbols...),
		Parameters: params,
		Risk: domain.RiskParameters{
			StopLossPct:   s.StopLossPct,
			TakeProfitPct: s.TakeProfitPct,
		},
	}
}

// AbortPolicy converts the abort policy name.
func (c *Config) AbortPolicy() (backtest.AbortPolicy, error) {
	switch strings.ToLower(c.Backtest.AbortPolicy) {
	case "", AbortPolicyExclude:
		return backtest.AbortExclude, nil
	case AbortPolicyForceClose:
		return backtest.AbortForceClose, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAbortPolicy, c.Backtest.AbortPolicy)
	}
}
