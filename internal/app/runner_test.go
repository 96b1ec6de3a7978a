package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctraderhq/ctrader/internal/backtest"
	"github.com/ctraderhq/ctrader/internal/config"
	"github.com/ctraderhq/ctrader/internal/data"
	"github.com/ctraderhq/ctrader/internal/execution"
	"github.com/ctraderhq/ctrader/internal/httpapi"
	"github.com/ctraderhq/ctrader/internal/metrics"
	"github.com/ctraderhq/ctrader/internal/persistence"
)

type stubHistory struct {
	series map[string]data.Series
}

func (s *stubHistory) DailyHistory(ctx context.Context, symbol string, days int) (data.Series, error) {
	if ser, ok := s.series[symbol]; ok {
		return ser, nil
	}
	return nil, errors.New("no data")
}

type stubSpot struct {
	prices map[string]float64
	err    error
}

func (s *stubSpot) SpotPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.prices, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Rebalance: config.RebalanceConfig{ThresholdPct: 0, MinOrderValue: 0},
		Pools: map[string]config.PoolConfig{
			"test": {
				Assets:   map[string]float64{"btc": 0.5, "eth": 0.5},
				Strategy: "static",
			},
		},
	}
}

func testRunner(t *testing.T, cfg *config.Config, spot *stubSpot, cash float64) *Runner {
	t.Helper()
	ledger := backtest.NewLedger(cash)
	csv, err := persistence.NewCSVStore(t.TempDir())
	require.NoError(t, err)
	runlog, err := persistence.NewRunLog(t.TempDir())
	require.NoError(t, err)

	return &Runner{
		Cfg:     cfg,
		Mode:    execution.ModeSimulated,
		History: &stubHistory{},
		Spot:    spot,
		Executors: map[string]execution.Executor{
			"test": execution.NewPaperExecutor(ledger, backtest.Costs{}),
		},
		Ledgers: map[string]*backtest.Ledger{"test": ledger},
		CSV:     csv,
		RunLog:  runlog,
		Metrics: metrics.New(),
		Status:  httpapi.NewStatusStore(),
	}
}

func TestRunPoolStaticCycle(t *testing.T) {
	spot := &stubSpot{prices: map[string]float64{"BTC": 100, "ETH": 10}}
	r := testRunner(t, testConfig(), spot, 1000)

	result, err := r.RunPool(context.Background(), "test")
	require.NoError(t, err)

	assert.Len(t, result.Fills, 2)
	assert.InDelta(t, 1000, result.Equity, 1e-6)
	assert.InDelta(t, 1000, result.Plan.PortfolioValue, 1e-6, "plan records the pre-trade equity, cash included")

	ledger := r.Ledgers["test"]
	assert.InDelta(t, 5, ledger.Quantity("BTC"), 1e-9)
	assert.InDelta(t, 50, ledger.Quantity("ETH"), 1e-9)
	assert.InDelta(t, 0, ledger.Cash, 1e-6)

	rows, err := r.CSV.ReadEquity("test")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 1000, rows[0].Equity, 1e-6)

	recs, err := r.RunLog.Tail(1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 2, recs[0].OrdersActed)

	status, ok := r.Status.Get("test")
	require.True(t, ok)
	assert.Equal(t, []float64{1000}, status.Equity)
}

func TestRunPoolSecondCycleHolds(t *testing.T) {
	spot := &stubSpot{prices: map[string]float64{"BTC": 100, "ETH": 10}}
	r := testRunner(t, testConfig(), spot, 1000)

	_, err := r.RunPool(context.Background(), "test")
	require.NoError(t, err)

	result, err := r.RunPool(context.Background(), "test")
	require.NoError(t, err)
	assert.Empty(t, result.Plan.Actionable(), "already at target, nothing to trade")
	assert.Empty(t, result.Fills)
}

func TestRunPoolUnknownPool(t *testing.T) {
	spot := &stubSpot{prices: map[string]float64{}}
	r := testRunner(t, testConfig(), spot, 1000)

	_, err := r.RunPool(context.Background(), "nope")
	assert.Error(t, err)
}

func TestRunPoolSpotErrorFailsCycle(t *testing.T) {
	spot := &stubSpot{err: errors.New("venue down")}
	r := testRunner(t, testConfig(), spot, 1000)

	_, err := r.RunPool(context.Background(), "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "venue down")
}

func TestRunAllAggregatesPools(t *testing.T) {
	cfg := testConfig()
	cfg.Pools["second"] = config.PoolConfig{
		Assets:   map[string]float64{"btc": 1},
		Strategy: "static",
	}
	spot := &stubSpot{prices: map[string]float64{"BTC": 100, "ETH": 10}}
	r := testRunner(t, cfg, spot, 1000)
	second := backtest.NewLedger(500)
	r.Ledgers["second"] = second
	r.Executors["second"] = execution.NewPaperExecutor(second, backtest.Costs{})

	require.NoError(t, r.RunAll(context.Background()))
	assert.InDelta(t, 5, second.Quantity("BTC"), 1e-9)
}

func TestBuildStrategyRejectsUnknown(t *testing.T) {
	cfg := testConfig()
	_, err := BuildStrategy(cfg, config.PoolConfig{Strategy: "martingale"})
	assert.Error(t, err)
}

func TestHistoryDays(t *testing.T) {
	cfg := &config.Config{}
	cfg.Global.TrendFilterSMADays = 50
	cfg.Sizing.VolLookbackDays = 30
	assert.Equal(t, 51, HistoryDays(cfg))

	cfg.Momentum = config.MomentumConfig{Enabled: true, LookbackMonths: 12, SkipRecentMonths: 1}
	assert.Equal(t, 391, HistoryDays(cfg))

	assert.Equal(t, 3, HistoryDays(&config.Config{}))
}
