package weights

import "math"

// InverseVolConfig controls the inverse-volatility reweighting stage.
type InverseVolConfig struct {
	LookbackDays int     `yaml:"lookback_days"`
	VolFloor     float64 `yaml:"vol_floor"`
	// Strength blends between the incoming weights (0) and the pure
	// inverse-volatility weights (1).
	Strength float64 `yaml:"strength"`
}

// dailyReturns computes day-over-day percentage returns, skipping pairs with
// non-positive prices.
func dailyReturns(prices []float64) []float64 {
	var rets []float64
	for i := 1; i < len(prices); i++ {
		a, b := prices[i-1], prices[i]
		if a > 0 && b > 0 {
			rets = append(rets, b/a-1.0)
		}
	}
	return rets
}

// volatility returns the sample standard deviation of daily returns over the
// trailing lookback window. ok is false when fewer than two valid returns
// exist or the result is non-positive or NaN.
func volatility(prices []float64, lookback int) (float64, bool) {
	if lookback > 0 && len(prices) > lookback {
		prices = prices[len(prices)-lookback-1:]
	}
	rets := dailyReturns(prices)
	if len(rets) < 2 {
		return 0, false
	}
	var mu float64
	for _, r := range rets {
		mu += r
	}
	mu /= float64(len(rets))
	var acc float64
	for _, r := range rets {
		acc += (r - mu) * (r - mu)
	}
	vol := math.Sqrt(acc / float64(len(rets)-1))
	if vol <= 0 || math.IsNaN(vol) {
		return 0, false
	}
	return vol, true
}

// InverseVolWeights reweights each symbol proportionally to
// base_weight / max(volatility, floor). Symbols without a usable volatility
// keep the weight the prior stage assigned. When the incoming map is
// degenerate the stage runs as the sole source of weights: included symbols
// get pure inverse-vol weight and excluded symbols get zero.
func InverseVolWeights(w Map, hist Lookup, cfg InverseVolConfig) Map {
	sole := w.Degenerate()
	inv := make(Map, len(w))
	for sym, base := range w {
		vol, ok := volatility(hist(sym), cfg.LookbackDays)
		if !ok {
			continue
		}
		if sole {
			base = 1.0
		}
		inv[sym] = base / math.Max(vol, cfg.VolFloor)
	}

	if sole {
		out := make(Map, len(w))
		for sym := range w {
			out[sym] = inv[sym] // zero for excluded symbols
		}
		return out.Normalize()
	}
	if len(inv) == 0 {
		return w.Clone()
	}

	inv = inv.Normalize()
	out := make(Map, len(w))
	for sym, base := range w {
		if iw, ok := inv[sym]; ok {
			out[sym] = (1.0-cfg.Strength)*base + cfg.Strength*iw
		} else {
			out[sym] = base
		}
	}
	return out.Normalize()
}
