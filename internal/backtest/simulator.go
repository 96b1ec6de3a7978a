package backtest

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ctraderhq/ctrader/internal/domain/allocation"
	"github.com/ctraderhq/ctrader/internal/domain/rebalance"
	"github.com/ctraderhq/ctrader/internal/domain/weights"
)

// SimConfig parameterizes one backtest run over a pool.
type SimConfig struct {
	Days        int
	InitialCash float64
	FeeBps      float64
	SlippageBps float64

	ThresholdPct  float64
	MinOrderValue float64
	Constraints   rebalance.ConstraintSet

	BaseWeights weights.Map
	Pipeline    weights.PipelineConfig
}

// DayResult ties one day's plan and execution trace to its day index.
type DayResult struct {
	Day   int
	Plan  rebalance.Plan
	Fills []Fill
}

// SimResult is the full replay trace of a backtest run.
type SimResult struct {
	Snapshots []Snapshot
	Days      []DayResult
}

// EquitySeries extracts the equity curve from the snapshots.
func (r *SimResult) EquitySeries() []float64 {
	eq := make([]float64, len(r.Snapshots))
	for i, s := range r.Snapshots {
		eq[i] = s.Equity
	}
	return eq
}

// Simulate replays the rebalance cycle day-by-day over the supplied history,
// from the earliest requested offset to the most recent day. history maps
// each symbol to its full daily close series, oldest first; day offsets are
// negative indices from the end, so day -1 is the most recent close. Each
// day completes fully, including ledger mutation and snapshot append, before
// the next begins; overlay stages only ever see prices up to the simulated
// day, never ahead of it.
func Simulate(cfg SimConfig, history map[string][]float64) (*SimResult, error) {
	if cfg.Days <= 0 {
		return nil, fmt.Errorf("backtest days must be positive, got %d", cfg.Days)
	}
	if cfg.BaseWeights.Degenerate() {
		return nil, fmt.Errorf("backtest base weights are empty or all zero")
	}

	symbols := make([]string, 0, len(cfg.BaseWeights))
	for sym := range cfg.BaseWeights {
		symbols = append(symbols, sym)
	}

	ledger := NewLedger(cfg.InitialCash)
	costs := CostsFromBps(cfg.FeeBps, cfg.SlippageBps)
	result := &SimResult{}

	for day := -cfg.Days; day < 0; day++ {
		prices := make(map[string]float64, len(symbols))
		for _, sym := range symbols {
			series := history[sym]
			if len(series) >= -day {
				prices[sym] = series[len(series)+day]
			} else {
				prices[sym] = 0 // missing data contributes no price this day
			}
		}

		// Price-history lookup truncated at the simulated day.
		hist := func(sym string) []float64 {
			series := history[sym]
			end := len(series) + day + 1
			if end <= 0 {
				return nil
			}
			return series[:end]
		}

		res := weights.Apply(cfg.BaseWeights, hist, cfg.Pipeline)

		equity := ledger.Equity(prices)
		targets := allocation.Resolve(equity, res.Weights, prices)
		plan := rebalance.BuildPlan(ledger.Holdings, targets, prices, rebalance.Params{
			DriftThresholdPct: cfg.ThresholdPct,
			MinOrderValue:     cfg.MinOrderValue,
			FeeRate:           costs.FeeRate,
			Constraints:       cfg.Constraints,
			PortfolioValue:    equity,
		})
		fills := ApplyPlan(ledger, plan, prices, costs)

		equity = ledger.Equity(prices)
		result.Snapshots = append(result.Snapshots, ledger.snapshot(day, time.Time{}, equity))
		result.Days = append(result.Days, DayResult{Day: day, Plan: plan, Fills: fills})
	}

	last := result.Snapshots[len(result.Snapshots)-1]
	log.Debug().
		Int("days", cfg.Days).
		Float64("final_equity", last.Equity).
		Float64("final_cash", last.Cash).
		Msg("backtest complete")

	return result, nil
}
