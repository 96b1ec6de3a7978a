package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ctraderhq/ctrader/internal/app"
	"github.com/ctraderhq/ctrader/internal/data"
	"github.com/ctraderhq/ctrader/internal/domain/allocation"
	"github.com/ctraderhq/ctrader/internal/domain/rebalance"
	"github.com/ctraderhq/ctrader/internal/domain/strategy"
)

func newPlanCmd() *cobra.Command {
	var pool string
	var equity float64

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Compute and print a rebalance plan without executing it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd.Context(), pool, equity)
		},
	}
	cmd.Flags().StringVarP(&pool, "pool", "p", "", "Pool name (required)")
	cmd.Flags().Float64Var(&equity, "equity", 0, "Override equity; defaults to the pool's initial_equity")
	cmd.MarkFlagRequired("pool")
	return cmd
}

func runPlan(ctx context.Context, poolName string, equity float64) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pool, err := cfg.Pool(poolName)
	if err != nil {
		return err
	}
	if equity <= 0 {
		equity = pool.InitialEquity
	}

	client, histSrc := newHistorySource()
	fx := resolveFX(ctx, client, cfg)

	universe := make([]string, 0, len(pool.Assets))
	for sym := range pool.BaseWeights() {
		universe = append(universe, sym)
	}
	sort.Strings(universe)

	hist := data.HistoryMap(ctx, histSrc, universe, app.HistoryDays(cfg), fx)
	prices, err := client.SpotPrices(ctx, universe)
	if err != nil {
		return err
	}
	for sym, px := range prices {
		prices[sym] = px * fx
	}

	strat, err := app.BuildStrategy(cfg, pool)
	if err != nil {
		return err
	}
	targets, err := strat.TargetAllocations(nil, universe, strategy.Context{
		History: func(sym string) []float64 { return hist[sym] },
	})
	if err != nil {
		return err
	}

	targetQty := allocation.Resolve(equity, targets, prices)
	plan := rebalance.BuildPlan(nil, targetQty, prices, rebalance.Params{
		DriftThresholdPct: cfg.Rebalance.ThresholdPct,
		MinOrderValue:     cfg.Rebalance.MinOrderValue,
		FeeRate:           cfg.Global.FeeBps / 10000.0,
		Constraints:       cfg.ConstraintSet(),
		PortfolioValue:    equity,
	})

	printPlan(poolName, equity, plan)
	return nil
}

func printPlan(pool string, equity float64, plan rebalance.Plan) {
	fmt.Printf("Plan for pool %q (equity %.2f)\n\n", pool, equity)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Symbol", "Side", "Qty", "Price", "Est Value", "Est Fee"})
	for _, o := range plan.Orders {
		table.Append([]string{
			o.Symbol,
			string(o.Side),
			fmt.Sprintf("%.8f", o.Qty),
			fmt.Sprintf("%.2f", o.Price),
			fmt.Sprintf("%.2f", o.EstValue),
			fmt.Sprintf("%.4f", o.EstFee),
		})
	}
	table.Render()

	buys, sells, fees := plan.Summary()
	fmt.Printf("\nBuys %.2f, sells %.2f, est fees %.4f, actionable orders %d\n",
		buys, sells, fees, len(plan.Actionable()))
}
