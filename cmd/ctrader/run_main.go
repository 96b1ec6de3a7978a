package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ctraderhq/ctrader/internal/app"
	"github.com/ctraderhq/ctrader/internal/backtest"
	"github.com/ctraderhq/ctrader/internal/config"
	"github.com/ctraderhq/ctrader/internal/execution"
	"github.com/ctraderhq/ctrader/internal/httpapi"
	"github.com/ctraderhq/ctrader/internal/metrics"
	"github.com/ctraderhq/ctrader/internal/notify"
	"github.com/ctraderhq/ctrader/internal/persistence"
	"github.com/ctraderhq/ctrader/internal/persistence/postgres"
)

func newRunCmd() *cobra.Command {
	var every time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one rebalance cycle per pool, or loop with --every",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCycles(cmd.Context(), every)
		},
	}
	cmd.Flags().DurationVar(&every, "every", 0, "Loop interval; zero runs a single cycle")
	return cmd
}

func buildRunner(ctx context.Context, cfg *config.Config) (*app.Runner, error) {
	mode, err := execution.ParseMode(cfg.Execution.Mode, cfg.Execution.ConfirmLive)
	if err != nil {
		return nil, err
	}

	client, histSrc := newHistorySource()
	fx := resolveFX(ctx, client, cfg)

	csv, err := persistence.NewCSVStore(flagOutDir)
	if err != nil {
		return nil, err
	}
	runLog, err := persistence.NewRunLog(flagOutDir)
	if err != nil {
		return nil, err
	}

	var pg *postgres.Store
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		pg, err = postgres.Open(ctx, dsn, 5*time.Second)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			return nil, err
		}
		log.Info().Msg("postgres persistence enabled")
	}

	ledgers := make(map[string]*backtest.Ledger, len(cfg.Pools))
	executors := make(map[string]execution.Executor, len(cfg.Pools))

	if mode.Live() {
		cs, err := execution.NewCoinSpotClient(mode,
			os.Getenv("COINSPOT_API_KEY"), os.Getenv("COINSPOT_API_SECRET"))
		if err != nil {
			return nil, err
		}
		balances, err := cs.Balances(ctx)
		if err != nil {
			return nil, err
		}
		quote := strings.ToUpper(cfg.Global.QuoteCurrency)
		live := execution.NewLiveExecutor(cs)
		for name := range cfg.Pools {
			ledger := backtest.NewLedger(balances[quote])
			for sym, qty := range balances {
				if sym != quote {
					ledger.Holdings[sym] = qty
				}
			}
			ledgers[name] = ledger
			executors[name] = live
		}
		log.Warn().Msg("LIVE execution enabled, orders will be placed on the exchange")
	} else {
		costs := backtest.CostsFromBps(cfg.Global.FeeBps, cfg.Global.SlippageBps)
		for name, pool := range cfg.Pools {
			ledger := backtest.NewLedger(pool.InitialEquity)
			ledgers[name] = ledger
			executors[name] = execution.NewPaperExecutor(ledger, costs)
		}
	}

	return &app.Runner{
		Cfg:       cfg,
		Mode:      mode,
		History:   histSrc,
		Spot:      client,
		FXRate:    fx,
		Executors: executors,
		Ledgers:   ledgers,
		CSV:       csv,
		RunLog:    runLog,
		PG:        pg,
		Notifier:  notify.NewDiscordNotifier(os.Getenv("DISCORD_WEBHOOK_URL")),
		Metrics:   metrics.New(),
		Status:    httpapi.NewStatusStore(),
	}, nil
}

func runCycles(ctx context.Context, every time.Duration) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	runner, err := buildRunner(ctx, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runner.RunAll(ctx); err != nil {
		return err
	}
	if every <= 0 {
		return nil
	}

	log.Info().Dur("every", every).Msg("entering cycle loop")
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down cycle loop")
			return nil
		case <-ticker.C:
			if err := runner.RunAll(ctx); err != nil {
				log.Error().Err(err).Msg("cycle failed, will retry next tick")
			}
		}
	}
}
