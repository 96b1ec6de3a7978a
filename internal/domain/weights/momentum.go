package weights

import "sort"

// MomentumConfig controls the trailing-return momentum boost.
type MomentumConfig struct {
	LookbackMonths   int     `yaml:"lookback_months"`
	SkipRecentMonths int     `yaml:"skip_recent_months"`
	TopK             int     `yaml:"top_k"`
	BoostPct         float64 `yaml:"momentum_boost_pct"`
}

// priceAtOffset returns the price offsetDays before the end of the series,
// and false when the offset falls outside the series.
func priceAtOffset(series []float64, offsetDays int) (float64, bool) {
	if len(series) == 0 || offsetDays <= 0 || offsetDays >= len(series) {
		return 0, false
	}
	return series[len(series)-1-offsetDays], true
}

// MomentumScores computes the classic lookback-minus-skip trailing return per
// symbol: price at (now - skip) against price at (now - skip - lookback),
// with months approximated as 30 days. A missing endpoint scores zero.
func MomentumScores(symbols []string, hist Lookup, cfg MomentumConfig) map[string]float64 {
	lbDays := cfg.LookbackMonths * 30
	skipDays := cfg.SkipRecentMonths * 30
	scores := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		series := hist(sym)
		a, okA := priceAtOffset(series, skipDays)
		b, okB := priceAtOffset(series, lbDays+skipDays)
		if !okA || !okB || b <= 0 {
			scores[sym] = 0
			continue
		}
		scores[sym] = a/b - 1.0
	}
	return scores
}

// BoostTopK multiplies the weights of the K highest-scoring symbols by
// (1 + boostPct) and renormalizes the full set. Ties at the K-th rank are
// broken by ascending symbol order. A degenerate incoming map makes the
// stage the sole source of weights: the boost is applied over a uniform
// base instead.
func BoostTopK(w Map, scores map[string]float64, k int, boostPct float64) Map {
	if k <= 0 || len(w) == 0 {
		return w.Clone()
	}

	ordered := make([]string, 0, len(w))
	for sym := range w {
		ordered = append(ordered, sym)
	}
	sort.Strings(ordered)
	sort.SliceStable(ordered, func(i, j int) bool {
		return scores[ordered[i]] > scores[ordered[j]]
	})

	top := make(map[string]bool, k)
	for i := 0; i < k && i < len(ordered); i++ {
		top[ordered[i]] = true
	}

	sole := w.Degenerate()
	out := make(Map, len(w))
	for sym, base := range w {
		if sole {
			base = 1.0
		}
		if top[sym] {
			base *= 1.0 + boostPct
		}
		out[sym] = base
	}
	return out.Normalize()
}
