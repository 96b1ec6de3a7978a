package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ctraderhq/ctrader/internal/httpapi"
	"github.com/ctraderhq/ctrader/internal/metrics"
	"github.com/ctraderhq/ctrader/internal/persistence"
	"github.com/ctraderhq/ctrader/internal/risk"
)

func newMonitorCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Serve the monitoring HTTP API over recorded pool state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8787", "Listen address")
	return cmd
}

func runMonitor(ctx context.Context, addr string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := persistence.NewCSVStore(flagOutDir)
	if err != nil {
		return err
	}

	status := httpapi.NewStatusStore()
	m := metrics.New()
	for name, pool := range cfg.Pools {
		rows, err := store.ReadEquity(name)
		if err != nil {
			log.Warn().Err(err).Str("pool", name).Msg("skipping pool with unreadable equity file")
			continue
		}
		if len(rows) == 0 {
			continue
		}
		equity := make([]float64, len(rows))
		for i, row := range rows {
			equity[i] = row.Equity
		}
		status.Update(httpapi.PoolStatus{
			Pool:      name,
			UpdatedAt: time.Now().UTC(),
			Equity:    equity,
			Risk:      risk.BuildReport(name, equity, nil, pool.Categories),
		})
		m.PoolEquity.WithLabelValues(name).Set(equity[len(equity)-1])
	}

	server := httpapi.NewServer(addr, status, m)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("monitor shutdown")
		}
	}()

	return server.ListenAndServe()
}
