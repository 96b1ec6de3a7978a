package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctraderhq/ctrader/internal/domain/weights"
)

func seriesLookup(m map[string][]float64) weights.Lookup {
	return func(sym string) []float64 { return m[sym] }
}

func alternating(start, amp float64, n int) []float64 {
	s := make([]float64, n)
	p := start
	for i := range s {
		s[i] = p
		if i%2 == 0 {
			p *= 1 + amp
		} else {
			p *= 1 - amp
		}
	}
	return s
}

func TestStaticNormalizesOverUniverse(t *testing.T) {
	s := Strategy{Kind: KindStatic, StaticWeights: weights.Map{"BTC": 3, "ETH": 1, "XRP": 4}}
	w, err := s.TargetAllocations(nil, []string{"BTC", "ETH"}, Context{})
	require.NoError(t, err)
	assert.InDelta(t, 0.75, w["BTC"], 1e-9)
	assert.InDelta(t, 0.25, w["ETH"], 1e-9)
	_, ok := w["XRP"] // not in universe
	assert.False(t, ok)
}

func TestStaticZeroSumFailsFast(t *testing.T) {
	s := Strategy{Kind: KindStatic, StaticWeights: weights.Map{"XRP": 1}}
	_, err := s.TargetAllocations(nil, []string{"BTC", "ETH"}, Context{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestEmptyUniverseFailsFast(t *testing.T) {
	for _, k := range []Kind{KindStatic, KindEqualWeight, KindRiskParity, KindTrendFollowing} {
		_, err := Strategy{Kind: k}.TargetAllocations(nil, nil, Context{})
		assert.ErrorIs(t, err, ErrInvalidConfig, string(k))
	}
}

func TestUnknownKindFailsFast(t *testing.T) {
	_, err := Strategy{Kind: "martingale"}.TargetAllocations(nil, []string{"BTC"}, Context{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestEqualWeight(t *testing.T) {
	w, err := Strategy{Kind: KindEqualWeight}.TargetAllocations(nil, []string{"BTC", "ETH", "SOL", "XRP"}, Context{})
	require.NoError(t, err)
	for sym, v := range w {
		assert.InDelta(t, 0.25, v, 1e-9, sym)
	}
}

func TestRiskParityWeightsByInverseVol(t *testing.T) {
	ctx := Context{History: seriesLookup(map[string][]float64{
		"BTC": alternating(100, 0.08, 60),
		"ETH": alternating(100, 0.02, 60),
	})}
	s := Strategy{Kind: KindRiskParity, InverseVol: weights.InverseVolConfig{LookbackDays: 30, VolFloor: 1e-4, Strength: 1}}

	w, err := s.TargetAllocations(nil, []string{"BTC", "ETH"}, ctx)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, w.Sum(), weights.SumTolerance)
	assert.Greater(t, w["ETH"], w["BTC"])
}

func TestRiskParityFallsBackToEqualWithoutHistory(t *testing.T) {
	s := Strategy{Kind: KindRiskParity, InverseVol: weights.InverseVolConfig{LookbackDays: 30, VolFloor: 1e-4}}
	w, err := s.TargetAllocations(nil, []string{"BTC", "ETH"}, Context{History: seriesLookup(nil)})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, w["BTC"], 1e-9)
	assert.InDelta(t, 0.5, w["ETH"], 1e-9)
}

func TestTrendFollowingRunsPipeline(t *testing.T) {
	ctx := Context{History: seriesLookup(map[string][]float64{
		"BTC": alternating(100, 0.02, 300),
		"ETH": alternating(100, 0.05, 300),
	})}
	s := Strategy{
		Kind:          KindTrendFollowing,
		StaticWeights: weights.Map{"BTC": 0.5, "ETH": 0.5},
		Pipeline: weights.PipelineConfig{
			Trend:             weights.TrendConfig{SMADays: 200, MinWeightFloor: 0.25},
			InverseVolEnabled: true,
			InverseVol:        weights.InverseVolConfig{LookbackDays: 30, VolFloor: 1e-4, Strength: 1},
		},
	}
	w, err := s.TargetAllocations(nil, []string{"BTC", "ETH"}, ctx)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, w.Sum(), weights.SumTolerance)
	assert.Greater(t, w["BTC"], w["ETH"]) // calmer asset wins under inverse-vol
}
