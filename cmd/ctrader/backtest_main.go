package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ctraderhq/ctrader/internal/app"
	"github.com/ctraderhq/ctrader/internal/backtest"
	"github.com/ctraderhq/ctrader/internal/data"
	"github.com/ctraderhq/ctrader/internal/risk"
)

func newBacktestCmd() *cobra.Command {
	var pool string
	var days int
	var cash float64

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay the rebalance cycle over historical prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBacktest(cmd.Context(), pool, days, cash)
		},
	}
	cmd.Flags().StringVarP(&pool, "pool", "p", "", "Pool name (required)")
	cmd.Flags().IntVarP(&days, "days", "d", 90, "Number of most recent days to replay")
	cmd.Flags().Float64Var(&cash, "cash", 0, "Starting cash; defaults to the pool's initial_equity")
	cmd.MarkFlagRequired("pool")
	return cmd
}

func runBacktest(ctx context.Context, poolName string, days int, cash float64) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pool, err := cfg.Pool(poolName)
	if err != nil {
		return err
	}
	if cash <= 0 {
		cash = pool.InitialEquity
	}

	client, histSrc := newHistorySource()
	fx := resolveFX(ctx, client, cfg)

	universe := make([]string, 0, len(pool.Assets))
	for sym := range pool.BaseWeights() {
		universe = append(universe, sym)
	}
	sort.Strings(universe)

	// Replay needs the overlay lookback on top of the simulated window.
	histDays := days + app.HistoryDays(cfg)
	history := data.HistoryMap(ctx, histSrc, universe, histDays, fx)

	simCfg := backtest.SimConfig{
		Days:          days,
		InitialCash:   cash,
		FeeBps:        cfg.Global.FeeBps,
		SlippageBps:   cfg.Global.SlippageBps,
		ThresholdPct:  cfg.Rebalance.ThresholdPct,
		MinOrderValue: cfg.Rebalance.MinOrderValue,
		Constraints:   cfg.ConstraintSet(),
		BaseWeights:   pool.BaseWeights(),
		Pipeline:      cfg.PipelineConfig(pool),
	}
	result, err := backtest.Simulate(simCfg, history)
	if err != nil {
		return err
	}

	equity := result.EquitySeries()
	report := risk.BuildReport(poolName, equity, nil, pool.Categories)
	printBacktest(poolName, cash, equity, result, report)
	return nil
}

func printBacktest(pool string, cash float64, equity []float64, result *backtest.SimResult, report risk.Report) {
	fmt.Printf("Backtest for pool %q over %d days (starting cash %.2f)\n\n", pool, len(equity), cash)

	trades := 0
	for _, day := range result.Days {
		for _, f := range day.Fills {
			if f.Status != backtest.FillSkipped {
				trades++
			}
		}
	}

	final := cash
	if len(equity) > 0 {
		final = equity[len(equity)-1]
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Final equity", fmt.Sprintf("%.2f", final)})
	table.Append([]string{"Return", fmt.Sprintf("%.2f%%", (final/cash-1)*100)})
	table.Append([]string{"Max drawdown", fmt.Sprintf("%.2f%%", report.MaxDrawdown*100)})
	table.Append([]string{"Daily volatility", fmt.Sprintf("%.4f", report.DailyVol)})
	table.Append([]string{"Sharpe (daily)", fmt.Sprintf("%.4f", report.SharpeDaily)})
	table.Append([]string{"Trades executed", fmt.Sprintf("%d", trades)})
	table.Render()
}
