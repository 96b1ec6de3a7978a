// Package risk derives drawdown, volatility and exposure statistics from
// equity series and allocations.
package risk

import (
	"github.com/montanaflynn/stats"
)

// Report is the fixed-shape risk record produced for one pool. Persistence
// collaborators must preserve these fields field-for-field.
type Report struct {
	Pool           string             `json:"pool" csv:"pool"`
	MaxDrawdown    float64            `json:"max_drawdown" csv:"max_drawdown"`
	DailyVol       float64            `json:"vol_daily" csv:"vol_daily"`
	SharpeDaily    float64            `json:"sharpe_daily" csv:"sharpe_daily"`
	BucketExposure map[string]float64 `json:"bucket_exposure" csv:"-"`
}

// MaxDrawdown returns the deepest peak-to-trough decline of the equity
// series as a negative fraction, or 0 for an empty or never-positive series.
func MaxDrawdown(equity []float64) float64 {
	if len(equity) == 0 {
		return 0
	}
	var peak, maxDD float64
	for _, eq := range equity {
		if eq > peak {
			peak = eq
		}
		if peak > 0 {
			if dd := eq/peak - 1.0; dd < maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// dailyReturns derives day-over-day returns, skipping days whose predecessor
// is non-positive.
func dailyReturns(equity []float64) []float64 {
	var rets []float64
	for i := 1; i < len(equity); i++ {
		if equity[i-1] > 0 {
			rets = append(rets, equity[i]/equity[i-1]-1.0)
		}
	}
	return rets
}

// DailyVolatility returns the sample standard deviation of daily equity
// returns, or 0 when fewer than two valid returns exist.
func DailyVolatility(equity []float64) float64 {
	rets := dailyReturns(equity)
	if len(rets) < 2 {
		return 0
	}
	vol, err := stats.StandardDeviationSample(rets)
	if err != nil {
		return 0
	}
	return vol
}

// SharpeDaily returns mean daily return over daily volatility, or 0 when the
// volatility is zero.
func SharpeDaily(equity []float64) float64 {
	vol := DailyVolatility(equity)
	if vol <= 0 {
		return 0
	}
	mu, err := stats.Mean(dailyReturns(equity))
	if err != nil {
		return 0
	}
	return mu / vol
}

// BucketExposure sums per-symbol values by category label. Unlabeled symbols
// fall into the "other" bucket.
func BucketExposure(values map[string]float64, categories map[string]string) map[string]float64 {
	out := make(map[string]float64)
	for sym, v := range values {
		bucket, ok := categories[sym]
		if !ok || bucket == "" {
			bucket = "other"
		}
		out[bucket] += v
	}
	return out
}

// BuildReport assembles the full risk record from an equity series and the
// latest allocation values.
func BuildReport(pool string, equity []float64, alloc map[string]float64, categories map[string]string) Report {
	return Report{
		Pool:           pool,
		MaxDrawdown:    MaxDrawdown(equity),
		DailyVol:       DailyVolatility(equity),
		SharpeDaily:    SharpeDaily(equity),
		BucketExposure: BucketExposure(alloc, categories),
	}
}
