// Package app wires the collaborators into the live rebalance cycle: data
// fetch, strategy evaluation, planning, execution and persistence.
package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ctraderhq/ctrader/internal/backtest"
	"github.com/ctraderhq/ctrader/internal/config"
	"github.com/ctraderhq/ctrader/internal/data"
	"github.com/ctraderhq/ctrader/internal/domain/allocation"
	"github.com/ctraderhq/ctrader/internal/domain/rebalance"
	"github.com/ctraderhq/ctrader/internal/domain/strategy"
	"github.com/ctraderhq/ctrader/internal/domain/weights"
	"github.com/ctraderhq/ctrader/internal/execution"
	"github.com/ctraderhq/ctrader/internal/httpapi"
	"github.com/ctraderhq/ctrader/internal/metrics"
	"github.com/ctraderhq/ctrader/internal/notify"
	"github.com/ctraderhq/ctrader/internal/persistence"
	"github.com/ctraderhq/ctrader/internal/persistence/postgres"
	"github.com/ctraderhq/ctrader/internal/risk"
)

// Runner drives one rebalance cycle per pool. Pools are independent and
// run concurrently.
type Runner struct {
	Cfg       *config.Config
	Mode      execution.Mode
	History   data.HistorySource
	Spot      data.SpotSource
	FXRate    float64
	Executors map[string]execution.Executor
	Ledgers   map[string]*backtest.Ledger
	CSV       *persistence.CSVStore
	RunLog    *persistence.RunLog
	PG        *postgres.Store
	Notifier  *notify.DiscordNotifier
	Metrics   *metrics.Metrics
	Status    *httpapi.StatusStore

	mu     sync.Mutex
	equity map[string][]float64
}

// CycleResult is the outcome of one pool's cycle.
type CycleResult struct {
	Pool   string
	Plan   rebalance.Plan
	Fills  []backtest.Fill
	Equity float64
	Report risk.Report
}

// HistoryDays is how much daily history the overlays need: the longest of
// the SMA window, the volatility lookback and the momentum span, plus one
// day for the return calculation.
func HistoryDays(c *config.Config) int {
	days := c.Global.TrendFilterSMADays
	if v := c.Sizing.VolLookbackDays; v > days {
		days = v
	}
	if c.Momentum.Enabled {
		if m := (c.Momentum.LookbackMonths + c.Momentum.SkipRecentMonths) * 30; m > days {
			days = m
		}
	}
	if days < 2 {
		days = 2
	}
	return days + 1
}

// BuildStrategy resolves a pool's strategy tag into the closed variant.
func BuildStrategy(c *config.Config, p config.PoolConfig) (strategy.Strategy, error) {
	base := p.BaseWeights()
	invVol := weights.InverseVolConfig{
		LookbackDays: c.Sizing.VolLookbackDays,
		VolFloor:     c.Sizing.VolFloor,
		Strength:     c.Sizing.RiskParityStrength,
	}

	switch p.Strategy {
	case "", "static":
		return strategy.Strategy{Kind: strategy.KindStatic, StaticWeights: base}, nil
	case "equal":
		return strategy.Strategy{Kind: strategy.KindEqualWeight}, nil
	case "risk_parity":
		return strategy.Strategy{Kind: strategy.KindRiskParity, InverseVol: invVol}, nil
	case "trend_following":
		return strategy.Strategy{
			Kind:          strategy.KindTrendFollowing,
			StaticWeights: base,
			Pipeline:      c.PipelineConfig(p),
		}, nil
	default:
		return strategy.Strategy{}, fmt.Errorf("%w: unknown strategy %q", config.ErrInvalidConfig, p.Strategy)
	}
}

// RunAll runs one cycle for every configured pool concurrently and returns
// the first error encountered, after all pools have finished.
func (r *Runner) RunAll(ctx context.Context) error {
	names := make([]string, 0, len(r.Cfg.Pools))
	for name := range r.Cfg.Pools {
		names = append(names, name)
	}
	sort.Strings(names)

	var wg sync.WaitGroup
	errs := make([]error, len(names))
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			if _, err := r.RunPool(ctx, name); err != nil {
				errs[i] = fmt.Errorf("pool %s: %w", name, err)
			}
		}(i, name)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// RunPool executes one full cycle for a single pool.
func (r *Runner) RunPool(ctx context.Context, name string) (CycleResult, error) {
	started := time.Now()
	result, err := r.runPool(ctx, name)

	status := "ok"
	if err != nil {
		status = "error"
		if r.Notifier != nil {
			if nerr := r.Notifier.CycleError(ctx, name, err); nerr != nil {
				log.Warn().Err(nerr).Str("pool", name).Msg("cycle error notification failed")
			}
		}
	}
	if r.Metrics != nil {
		r.Metrics.CyclesTotal.WithLabelValues(name, status).Inc()
		r.Metrics.CycleDuration.WithLabelValues(name).Observe(time.Since(started).Seconds())
	}
	return result, err
}

func (r *Runner) runPool(ctx context.Context, name string) (CycleResult, error) {
	pool, err := r.Cfg.Pool(name)
	if err != nil {
		return CycleResult{}, err
	}
	ledger, ok := r.Ledgers[name]
	if !ok {
		return CycleResult{}, fmt.Errorf("no ledger for pool %s", name)
	}
	executor, ok := r.Executors[name]
	if !ok {
		return CycleResult{}, fmt.Errorf("no executor for pool %s", name)
	}

	universe := make([]string, 0, len(pool.Assets))
	for sym := range pool.BaseWeights() {
		universe = append(universe, sym)
	}
	sort.Strings(universe)

	fx := r.FXRate
	if fx <= 0 {
		fx = 1
	}
	histDays := HistoryDays(r.Cfg)
	hist := data.HistoryMap(ctx, r.History, universe, histDays, fx)

	prices, err := r.Spot.SpotPrices(ctx, universe)
	if err != nil {
		return CycleResult{}, fmt.Errorf("spot prices: %w", err)
	}
	if fx != 1 {
		for sym, px := range prices {
			prices[sym] = px * fx
		}
	}

	strat, err := BuildStrategy(r.Cfg, pool)
	if err != nil {
		return CycleResult{}, err
	}
	targets, err := strat.TargetAllocations(ledger.Holdings, universe, strategy.Context{
		History: func(sym string) []float64 { return hist[sym] },
	})
	if err != nil {
		return CycleResult{}, err
	}

	equity := ledger.Cash + sumHoldingsValue(ledger.Holdings, prices)
	targetQty := allocation.Resolve(equity, targets, prices)

	var plan rebalance.Plan
	var fills []backtest.Fill
	if rebalance.AnyDriftExceedsThreshold(ledger.Holdings, targetQty, r.Cfg.Rebalance.ThresholdPct) {
		plan = rebalance.BuildPlan(ledger.Holdings, targetQty, prices, rebalance.Params{
			DriftThresholdPct: r.Cfg.Rebalance.ThresholdPct,
			MinOrderValue:     r.Cfg.Rebalance.MinOrderValue,
			FeeRate:           r.Cfg.Global.FeeBps / 10000.0,
			Constraints:       r.Cfg.ConstraintSet(),
			PortfolioValue:    equity,
		})
		if len(plan.Actionable()) > 0 {
			fills, err = executor.Execute(ctx, plan, prices)
			if err != nil {
				return CycleResult{}, fmt.Errorf("execute plan: %w", err)
			}
		} else {
			log.Info().Str("pool", name).Msg("no actionable orders, holding")
		}
	} else {
		log.Info().Str("pool", name).Msg("drift within threshold, skipping rebalance")
	}

	equity = ledger.Cash + sumHoldingsValue(ledger.Holdings, prices)
	series := r.recordEquity(name, equity)

	report := risk.BuildReport(name, series, holdingValues(ledger.Holdings, prices), pool.Categories)
	r.publish(name, plan, fills, equity, series, report)

	if err := r.persist(ctx, name, plan, fills, equity, ledger.Cash); err != nil {
		return CycleResult{}, err
	}

	if r.Notifier != nil && len(fills) > 0 {
		if nerr := r.Notifier.CycleSummary(ctx, name, equity, fills); nerr != nil {
			log.Warn().Err(nerr).Str("pool", name).Msg("cycle notification failed")
		}
	}

	log.Info().
		Str("pool", name).
		Float64("equity", equity).
		Int("orders", len(plan.Orders)).
		Int("fills", len(fills)).
		Msg("cycle complete")

	return CycleResult{Pool: name, Plan: plan, Fills: fills, Equity: equity, Report: report}, nil
}

func (r *Runner) recordEquity(name string, equity float64) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.equity == nil {
		r.equity = make(map[string][]float64)
	}
	r.equity[name] = append(r.equity[name], equity)
	series := make([]float64, len(r.equity[name]))
	copy(series, r.equity[name])
	return series
}

func (r *Runner) publish(name string, plan rebalance.Plan, fills []backtest.Fill, equity float64, series []float64, report risk.Report) {
	if r.Metrics != nil {
		for _, o := range plan.Orders {
			r.Metrics.OrdersPlanned.WithLabelValues(name, string(o.Side)).Inc()
		}
		for _, f := range fills {
			r.Metrics.FillsTotal.WithLabelValues(name, string(f.Status)).Inc()
		}
		r.Metrics.PoolEquity.WithLabelValues(name).Set(equity)
	}
	if r.Status != nil {
		r.Status.Update(httpapi.PoolStatus{
			Pool:      name,
			UpdatedAt: time.Now().UTC(),
			Equity:    series,
			Risk:      report,
		})
	}
}

func (r *Runner) persist(ctx context.Context, name string, plan rebalance.Plan, fills []backtest.Fill, equity, cash float64) error {
	now := time.Now().UTC()
	if r.CSV != nil {
		if err := r.CSV.AppendEquity(name, now, equity, cash); err != nil {
			return fmt.Errorf("persist equity: %w", err)
		}
		if err := r.CSV.AppendTrades(name, now, fills); err != nil {
			return fmt.Errorf("persist trades: %w", err)
		}
	}
	if r.PG != nil {
		if err := r.PG.InsertSnapshot(ctx, name, now, equity, cash); err != nil {
			return fmt.Errorf("persist snapshot: %w", err)
		}
		if err := r.PG.InsertFills(ctx, name, now, fills); err != nil {
			return fmt.Errorf("persist fills: %w", err)
		}
	}
	if r.RunLog != nil {
		skipped := 0
		for _, f := range fills {
			if f.Status == backtest.FillSkipped {
				skipped++
			}
		}
		rec := persistence.RunRecord{
			Pool:         name,
			Time:         now,
			Mode:         string(r.Mode),
			Equity:       equity,
			Cash:         cash,
			OrdersTotal:  len(plan.Orders),
			OrdersActed:  len(plan.Actionable()),
			FillsSkipped: skipped,
		}
		if err := r.RunLog.Append(rec); err != nil {
			return fmt.Errorf("append run log: %w", err)
		}
	}
	return nil
}

func holdingValues(holdings, prices map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(holdings))
	for sym, qty := range holdings {
		out[sym] = qty * prices[sym]
	}
	return out
}

func sumHoldingsValue(holdings, prices map[string]float64) float64 {
	total := 0.0
	for sym, qty := range holdings {
		total += qty * prices[sym]
	}
	return total
}
