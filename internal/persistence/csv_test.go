package persistence

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctraderhq/ctrader/internal/backtest"
	"github.com/ctraderhq/ctrader/internal/domain/rebalance"
)

func TestAppendEquityWritesHeaderOnce(t *testing.T) {
	store, err := NewCSVStore(t.TempDir())
	require.NoError(t, err)

	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.AppendEquity("conservative", at, 10000, 2500))
	require.NoError(t, store.AppendEquity("conservative", at.Add(time.Hour), 10100, 2400))

	raw, err := os.ReadFile(store.equityPath("conservative"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "time,pool,equity,cash", lines[0])
	assert.Contains(t, lines[1], "2024-06-01T12:00:00Z")

	rows, err := store.ReadEquity("conservative")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.InDelta(t, 10000, rows[0].Equity, 1e-9)
	assert.InDelta(t, 10100, rows[1].Equity, 1e-9)
}

func TestAppendTrades(t *testing.T) {
	store, err := NewCSVStore(t.TempDir())
	require.NoError(t, err)

	fills := []backtest.Fill{
		{Symbol: "BTC", Side: rebalance.SideBuy, Qty: 0.01, Price: 45000, FillPrice: 45022.5, Value: 450.225, Fee: 0.45, Status: backtest.FillExecuted},
		{Symbol: "ETH", Side: rebalance.SideSell, Qty: 1, Status: backtest.FillSkipped, Reason: "no price"},
	}
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.AppendTrades("conservative", at, fills))

	raw, err := os.ReadFile(store.tradesPath("conservative"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "BTC,BUY")
	assert.Contains(t, lines[2], "no price")
}

func TestAppendTradesNoFillsWritesNothing(t *testing.T) {
	dir := t.TempDir()
	store, err := NewCSVStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.AppendTrades("conservative", time.Now(), nil))
	_, err = os.Stat(filepath.Join(dir, "trades_conservative.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestReadEquityMissingFile(t *testing.T) {
	store, err := NewCSVStore(t.TempDir())
	require.NoError(t, err)

	rows, err := store.ReadEquity("nope")
	require.NoError(t, err)
	assert.Empty(t, rows)
}
