// Package allocation converts target weights into per-symbol quantities.
package allocation

import "github.com/ctraderhq/ctrader/internal/domain/weights"

// Resolve computes the target quantity for every weighted symbol:
// (equity * weight) / price. Symbols with a missing or non-positive price
// resolve to zero quantity; missing data is not an error here, the planner
// treats those symbols as unallocatable for the cycle.
func Resolve(equity float64, w weights.Map, prices map[string]float64) map[string]float64 {
	targets := make(map[string]float64, len(w))
	for sym, wgt := range w {
		px := prices[sym]
		if px <= 0 || equity <= 0 {
			targets[sym] = 0
			continue
		}
		targets[sym] = equity * wgt / px
	}
	return targets
}
