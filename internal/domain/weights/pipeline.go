package weights

import "sort"

// PipelineConfig assembles the four overlay stages in their fixed order.
// The trend filter and cap enforcement always run; inverse-vol and momentum
// run only when enabled, and each can act as the sole source of weights when
// its predecessor produced nothing.
type PipelineConfig struct {
	Trend             TrendConfig
	InverseVol        InverseVolConfig
	InverseVolEnabled bool
	Momentum          MomentumConfig
	MomentumEnabled   bool
	Caps              CapsConfig
}

// PipelineResult carries the final weight map together with the cap reasons
// recorded by the enforcement stage.
type PipelineResult struct {
	Weights    Map
	CapReasons []string
}

// Apply runs the overlay pipeline over the base weights. It is a pure
// function of its inputs; the base map is not mutated.
func Apply(base Map, hist Lookup, cfg PipelineConfig) PipelineResult {
	w := ApplyTrendFilter(base, hist, cfg.Trend)
	if cfg.InverseVolEnabled {
		w = InverseVolWeights(w, hist, cfg.InverseVol)
	}
	if cfg.MomentumEnabled {
		symbols := make([]string, 0, len(w))
		for sym := range w {
			symbols = append(symbols, sym)
		}
		sort.Strings(symbols)
		scores := MomentumScores(symbols, hist, cfg.Momentum)
		w = BoostTopK(w, scores, cfg.Momentum.TopK, cfg.Momentum.BoostPct)
	}
	capped, reasons := EnforceCaps(w, cfg.Caps)
	return PipelineResult{Weights: capped, CapReasons: reasons}
}
