package weights

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constantSeries(price float64, n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = price
	}
	return s
}

func histFor(m map[string][]float64) Lookup {
	return func(sym string) []float64 { return m[sym] }
}

func TestApplyTrendFilterBelowSMA(t *testing.T) {
	// Declining series: latest price sits below the SMA.
	declining := make([]float64, 250)
	for i := range declining {
		declining[i] = 1000.0 - float64(i)
	}
	hist := histFor(map[string][]float64{
		"BTC": declining,
		"ETH": constantSeries(100, 250), // latest == SMA, untouched
	})

	w := Map{"BTC": 0.5, "ETH": 0.5}
	out := ApplyTrendFilter(w, hist, TrendConfig{SMADays: 200, MinWeightFloor: 0.25})

	// BTC suppressed to 0.5*0.25=0.125 pre-normalization, ETH stays 0.5.
	require.InDelta(t, 1.0, out.Sum(), SumTolerance)
	assert.InDelta(t, 0.125/0.625, out["BTC"], 1e-9)
	assert.InDelta(t, 0.5/0.625, out["ETH"], 1e-9)
}

func TestApplyTrendFilterUniformFloorKeepsProportions(t *testing.T) {
	// All symbols below SMA with a uniform floor: renormalization restores
	// the pre-filter relative proportions.
	declining := make([]float64, 250)
	for i := range declining {
		declining[i] = 500.0 - float64(i)
	}
	hist := histFor(map[string][]float64{"BTC": declining, "ETH": declining, "SOL": declining})

	w := Map{"BTC": 0.5, "ETH": 0.3, "SOL": 0.2}
	out := ApplyTrendFilter(w, hist, TrendConfig{SMADays: 200, MinWeightFloor: 0.25})

	require.InDelta(t, 1.0, out.Sum(), SumTolerance)
	for sym, base := range w {
		assert.InDelta(t, base, out[sym], 1e-9, sym)
	}
}

func TestApplyTrendFilterShortHistoryUntouched(t *testing.T) {
	hist := histFor(map[string][]float64{"BTC": constantSeries(100, 10)})
	w := Map{"BTC": 1.0}
	out := ApplyTrendFilter(w, hist, TrendConfig{SMADays: 200, MinWeightFloor: 0.25})
	assert.InDelta(t, 1.0, out["BTC"], 1e-9)
}

func TestApplyTrendFilterDisabled(t *testing.T) {
	w := Map{"BTC": 0.7, "ETH": 0.3}
	out := ApplyTrendFilter(w, histFor(nil), TrendConfig{SMADays: 1, MinWeightFloor: 0.25})
	assert.Equal(t, w, out)
}

func TestNormalizeDegenerate(t *testing.T) {
	m := Map{"BTC": 0.0, "ETH": 0.0}
	out := m.Normalize()
	assert.Equal(t, m, out)
	assert.True(t, m.Degenerate())
}

func TestNormalizeClampsNegatives(t *testing.T) {
	m := Map{"BTC": 0.5, "ETH": -0.5}
	out := m.Normalize()
	assert.Equal(t, 0.0, out["ETH"])
	assert.InDelta(t, 1.0, out["BTC"], 1e-9)
	assert.False(t, math.IsNaN(out["BTC"]))
}
