package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ctraderhq/ctrader/internal/persistence"
	"github.com/ctraderhq/ctrader/internal/risk"
)

func newReportCmd() *cobra.Command {
	var pool string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print risk statistics from the recorded equity series",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(pool)
		},
	}
	cmd.Flags().StringVarP(&pool, "pool", "p", "", "Pool name (required)")
	cmd.MarkFlagRequired("pool")
	return cmd
}

func runReport(poolName string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pool, err := cfg.Pool(poolName)
	if err != nil {
		return err
	}

	store, err := persistence.NewCSVStore(flagOutDir)
	if err != nil {
		return err
	}
	rows, err := store.ReadEquity(poolName)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no recorded equity for pool %q in %s", poolName, flagOutDir)
	}

	equity := make([]float64, len(rows))
	for i, row := range rows {
		equity[i] = row.Equity
	}

	report := risk.BuildReport(poolName, equity, nil, pool.Categories)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Observations", fmt.Sprintf("%d", len(equity))})
	table.Append([]string{"Latest equity", fmt.Sprintf("%.2f", equity[len(equity)-1])})
	table.Append([]string{"Max drawdown", fmt.Sprintf("%.2f%%", report.MaxDrawdown*100)})
	table.Append([]string{"Daily volatility", fmt.Sprintf("%.4f", report.DailyVol)})
	table.Append([]string{"Sharpe (daily)", fmt.Sprintf("%.4f", report.SharpeDaily)})
	table.Render()

	if len(report.BucketExposure) > 0 {
		fmt.Println()
		buckets := tablewriter.NewWriter(os.Stdout)
		buckets.SetHeader([]string{"Bucket", "Exposure"})
		names := make([]string, 0, len(report.BucketExposure))
		for name := range report.BucketExposure {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			buckets.Append([]string{name, fmt.Sprintf("%.2f%%", report.BucketExposure[name]*100)})
		}
		buckets.Render()
	}
	return nil
}
