package weights

// TrendConfig controls the moving-average regime filter.
type TrendConfig struct {
	SMADays        int     `yaml:"sma_days"`
	MinWeightFloor float64 `yaml:"min_weight_floor"`
}

// sma returns the simple moving average over the trailing window, and false
// when the series is shorter than the window.
func sma(prices []float64, window int) (float64, bool) {
	if window <= 0 || len(prices) < window {
		return 0, false
	}
	var s float64
	for _, p := range prices[len(prices)-window:] {
		s += p
	}
	return s / float64(window), true
}

// ApplyTrendFilter suppresses the weight of any symbol whose latest price is
// below its trailing SMA, multiplying it once by the configured floor.
// Symbols with insufficient history keep their weight for this stage. The
// result is renormalized unless the filtered sum is zero.
func ApplyTrendFilter(w Map, hist Lookup, cfg TrendConfig) Map {
	if cfg.SMADays <= 1 {
		return w.Clone()
	}
	out := w.Clone()
	for sym, base := range w {
		series := hist(sym)
		avg, ok := sma(series, cfg.SMADays)
		if !ok {
			continue
		}
		latest := series[len(series)-1]
		if latest < avg {
			out[sym] = base * cfg.MinWeightFloor
		}
	}
	return out.Normalize()
}
