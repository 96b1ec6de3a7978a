package rebalance

import "math"

// stepEpsilon counters floating representation error before flooring so that
// values like 0.30000000000000004 floor to 0.3 rather than 0.29.
const stepEpsilon = 1e-12

// Constraints holds the exchange trading rules for one symbol. Zero values
// mean "no constraint".
type Constraints struct {
	MinNotional float64 `yaml:"min_notional"`
	MinQty      float64 `yaml:"min_qty"`
	QtyStep     float64 `yaml:"qty_step"`
}

// ConstraintSet maps symbols to their constraints. The reserved key
// DefaultTier supplies a field-wise fallback for symbols without an entry.
type ConstraintSet map[string]Constraints

// DefaultTier is the fallback key in a ConstraintSet.
const DefaultTier = "default"

// For resolves the effective constraints for a symbol, falling back to the
// default tier field by field.
func (cs ConstraintSet) For(symbol string) Constraints {
	dflt := cs[DefaultTier]
	c, ok := cs[symbol]
	if !ok {
		return dflt
	}
	if c.MinNotional == 0 {
		c.MinNotional = dflt.MinNotional
	}
	if c.MinQty == 0 {
		c.MinQty = dflt.MinQty
	}
	if c.QtyStep == 0 {
		c.QtyStep = dflt.QtyStep
	}
	return c
}

// FloorToStep floors x down to a multiple of step. It is idempotent; a step
// of zero or less returns x unchanged.
func FloorToStep(x, step float64) float64 {
	if step <= 0 {
		return x
	}
	q := math.Floor(x/step + stepEpsilon)
	return roundTo(q*step, 12)
}

// ApplyQtyConstraints floors the magnitude of amount to the quantity step,
// preserving sign, then vetoes the result to zero when the stepped magnitude
// falls below minQty.
func ApplyQtyConstraints(amount, minQty, step float64) float64 {
	amt := amount
	if step > 0 {
		sgn := 1.0
		if amt < 0 {
			sgn = -1.0
		}
		amt = FloorToStep(math.Abs(amt), step) * sgn
	}
	if minQty > 0 && math.Abs(amt) < minQty {
		return 0
	}
	return roundTo(amt, 8)
}

// MeetsMinNotional reports whether a trade value satisfies the minimum
// notional. A non-positive minimum accepts everything.
func MeetsMinNotional(value, minNotional float64) bool {
	if minNotional <= 0 {
		return true
	}
	return value >= minNotional
}

func roundTo(x float64, digits int) float64 {
	factor := math.Pow(10, float64(digits))
	return math.Round(x*factor) / factor
}
