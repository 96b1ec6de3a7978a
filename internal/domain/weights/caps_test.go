package weights

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnforceCapsPerAsset(t *testing.T) {
	w := Map{"BTC": 0.6, "ETH": 0.4}
	out, reasons := EnforceCaps(w, CapsConfig{
		PerAssetCapsPct: map[string]float64{"BTC": 40},
	})

	require.InDelta(t, 1.0, out.Sum(), SumTolerance)
	// 0.4/(0.4+0.4) after the clamp.
	assert.InDelta(t, 0.5, out["BTC"], 1e-9)
	assert.Contains(t, reasons, "per_asset:BTC")
}

func TestEnforceCapsUniformMax(t *testing.T) {
	w := Map{"BTC": 0.8, "ETH": 0.1, "SOL": 0.1}
	out, reasons := EnforceCaps(w, CapsConfig{MaxPerAssetPct: 50})

	require.InDelta(t, 1.0, out.Sum(), SumTolerance)
	assert.InDelta(t, 0.5/0.7, out["BTC"], 1e-9)
	assert.Contains(t, reasons, "max_asset:BTC")
}

func TestEnforceCapsBucketScalesProportionally(t *testing.T) {
	w := Map{"DOGE": 0.3, "SHIB": 0.3, "BTC": 0.4}
	cfg := CapsConfig{
		BucketCapsPct: map[string]float64{"meme": 20},
		Categories:    map[string]string{"DOGE": "meme", "SHIB": "meme", "BTC": "core"},
	}
	out, reasons := EnforceCaps(w, cfg)

	require.InDelta(t, 1.0, out.Sum(), SumTolerance)
	assert.Contains(t, reasons, "bucket:meme")

	// Bucket cap property: post-enforcement the bucket sum divided by the
	// total must not exceed the cap.
	memeShare := out["DOGE"] + out["SHIB"]
	assert.LessOrEqual(t, memeShare, 0.20/0.60+SumTolerance)
	// Members keep their relative proportions.
	assert.InDelta(t, out["DOGE"], out["SHIB"], 1e-12)
}

func TestEnforceCapsBucketUnderCapUntouched(t *testing.T) {
	w := Map{"DOGE": 0.1, "BTC": 0.9}
	out, reasons := EnforceCaps(w, CapsConfig{
		BucketCapsPct: map[string]float64{"meme": 20},
		Categories:    map[string]string{"DOGE": "meme"},
	})
	assert.Empty(t, reasons)
	assert.InDelta(t, 0.1, out["DOGE"], 1e-9)
}

func TestEnforceCapsDegenerateReturnsUncapped(t *testing.T) {
	w := Map{"BTC": 0.0}
	out, _ := EnforceCaps(w, CapsConfig{MaxPerAssetPct: 50})
	assert.Equal(t, w, out)
}

func TestEnforceCapsNoConfigIsIdentity(t *testing.T) {
	w := Map{"BTC": 0.6, "ETH": 0.4}
	out, reasons := EnforceCaps(w, CapsConfig{})
	assert.Empty(t, reasons)
	assert.InDelta(t, 0.6, out["BTC"], 1e-9)
	assert.InDelta(t, 0.4, out["ETH"], 1e-9)
}
