// Package config loads and validates the pools configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ctraderhq/ctrader/internal/domain/rebalance"
	"github.com/ctraderhq/ctrader/internal/domain/weights"
)

// ErrInvalidConfig marks configuration errors that must stop a run before
// any plan is produced.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the root of the pools configuration file.
type Config struct {
	Global      GlobalConfig                `yaml:"global"`
	Sizing      SizingConfig                `yaml:"sizing"`
	Momentum    MomentumConfig              `yaml:"momentum"`
	Rebalance   RebalanceConfig             `yaml:"rebalance"`
	Execution   ExecutionConfig             `yaml:"execution"`
	Constraints map[string]ConstraintConfig `yaml:"constraints"`
	Pools       map[string]PoolConfig       `yaml:"pools"`
}

// GlobalConfig holds venue-wide costs and the trend filter settings.
type GlobalConfig struct {
	QuoteCurrency      string  `yaml:"quote_currency"`
	FeeBps             float64 `yaml:"fee_bps"`
	SlippageBps        float64 `yaml:"slippage_bps"`
	TrendFilterSMADays int     `yaml:"trend_filter_sma_days"`
	TrendMinWeight     float64 `yaml:"trend_min_weight"`
}

// SizingConfig holds the inverse-volatility sizing settings.
type SizingConfig struct {
	RiskParity         bool    `yaml:"risk_parity"`
	VolLookbackDays    int     `yaml:"vol_lookback_days"`
	VolFloor           float64 `yaml:"vol_floor"`
	RiskParityStrength float64 `yaml:"risk_parity_strength"`
}

// MomentumConfig holds the momentum boost settings.
type MomentumConfig struct {
	Enabled          bool    `yaml:"enabled"`
	LookbackMonths   int     `yaml:"lookback_months"`
	SkipRecentMonths int     `yaml:"skip_recent_months"`
	TopK             int     `yaml:"top_k"`
	BoostPct         float64 `yaml:"momentum_boost_pct"`
}

// RebalanceConfig holds the plan construction thresholds.
type RebalanceConfig struct {
	ThresholdPct  float64 `yaml:"threshold_pct"`
	MinOrderValue float64 `yaml:"min_order_value"`
}

// ExecutionConfig selects the execution mode at process start.
type ExecutionConfig struct {
	Mode        string `yaml:"mode"` // "simulated" or "live"
	ConfirmLive bool   `yaml:"confirm_live"`
}

// ConstraintConfig mirrors one tier of the exchange constraint table.
// Pointers distinguish "absent" from an explicit zero.
type ConstraintConfig struct {
	MinNotional *float64 `yaml:"min_notional"`
	MinQty      *float64 `yaml:"min_qty"`
	QtyStep     *float64 `yaml:"qty_step"`
}

// PoolConfig describes one independently-managed portfolio.
type PoolConfig struct {
	Assets           map[string]float64 `yaml:"assets"`
	InitialEquity    float64            `yaml:"initial_equity"`
	Strategy         string             `yaml:"strategy"`
	MaxPerAssetPct   float64            `yaml:"max_per_asset_pct"`
	PerAssetCaps     map[string]float64 `yaml:"per_asset_caps"`
	BucketCaps       map[string]float64 `yaml:"bucket_caps"`
	Categories       map[string]string  `yaml:"categories"`
}

// Load reads, parses and validates the pools configuration.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pools config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse pools config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate enforces the invariants a run cannot recover from: at least one
// pool, a non-empty universe per pool, and base weights with positive sum.
func (c *Config) Validate() error {
	if len(c.Pools) == 0 {
		return fmt.Errorf("%w: no pools defined", ErrInvalidConfig)
	}
	for name, p := range c.Pools {
		if len(p.Assets) == 0 {
			return fmt.Errorf("%w: pool %q has an empty universe", ErrInvalidConfig, name)
		}
		var sum float64
		for sym, w := range p.Assets {
			if strings.TrimSpace(sym) == "" {
				return fmt.Errorf("%w: pool %q has a blank symbol", ErrInvalidConfig, name)
			}
			if w > 0 {
				sum += w
			}
		}
		if sum <= 0 {
			return fmt.Errorf("%w: pool %q base weights sum to zero", ErrInvalidConfig, name)
		}
	}
	if c.Global.FeeBps < 0 || c.Global.SlippageBps < 0 {
		return fmt.Errorf("%w: negative fee or slippage bps", ErrInvalidConfig)
	}
	return nil
}

// Pool returns the named pool or an error listing the known pools.
func (c *Config) Pool(name string) (PoolConfig, error) {
	p, ok := c.Pools[name]
	if !ok {
		known := make([]string, 0, len(c.Pools))
		for k := range c.Pools {
			known = append(known, k)
		}
		return PoolConfig{}, fmt.Errorf("%w: unknown pool %q (have %s)",
			ErrInvalidConfig, name, strings.Join(known, ", "))
	}
	return p, nil
}

// BaseWeights returns the pool's configured asset weights with uppercased
// symbols.
func (p PoolConfig) BaseWeights() weights.Map {
	w := make(weights.Map, len(p.Assets))
	for sym, v := range p.Assets {
		w[strings.ToUpper(sym)] = v
	}
	return w
}

// PipelineConfig assembles the overlay pipeline settings for a pool.
func (c *Config) PipelineConfig(p PoolConfig) weights.PipelineConfig {
	return weights.PipelineConfig{
		Trend: weights.TrendConfig{
			SMADays:        c.Global.TrendFilterSMADays,
			MinWeightFloor: c.Global.TrendMinWeight,
		},
		InverseVolEnabled: c.Sizing.RiskParity,
		InverseVol: weights.InverseVolConfig{
			LookbackDays: c.Sizing.VolLookbackDays,
			VolFloor:     c.Sizing.VolFloor,
			Strength:     c.Sizing.RiskParityStrength,
		},
		MomentumEnabled: c.Momentum.Enabled,
		Momentum: weights.MomentumConfig{
			LookbackMonths:   c.Momentum.LookbackMonths,
			SkipRecentMonths: c.Momentum.SkipRecentMonths,
			TopK:             c.Momentum.TopK,
			BoostPct:         c.Momentum.BoostPct,
		},
		Caps: weights.CapsConfig{
			MaxPerAssetPct:  p.MaxPerAssetPct,
			PerAssetCapsPct: p.PerAssetCaps,
			BucketCapsPct:   p.BucketCaps,
			Categories:      p.Categories,
		},
	}
}

// ConstraintSet converts the constraint table into the planner's form.
func (c *Config) ConstraintSet() rebalance.ConstraintSet {
	cs := make(rebalance.ConstraintSet, len(c.Constraints))
	for key, cc := range c.Constraints {
		tier := rebalance.Constraints{}
		if cc.MinNotional != nil {
			tier.MinNotional = *cc.MinNotional
		}
		if cc.MinQty != nil {
			tier.MinQty = *cc.MinQty
		}
		if cc.QtyStep != nil {
			tier.QtyStep = *cc.QtyStep
		}
		if key != rebalance.DefaultTier {
			key = strings.ToUpper(key)
		}
		cs[key] = tier
	}
	return cs
}
