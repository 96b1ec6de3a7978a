// Package weights implements the target-weight overlay pipeline: trend
// filtering, inverse-volatility reweighting, momentum boosting and cap
// enforcement over a base weight map.
package weights

// Map assigns a portfolio fraction to each symbol.
type Map map[string]float64

// Lookup returns the daily closing-price series for a symbol, oldest first,
// ending at the evaluation day. A nil or empty slice means no data.
type Lookup func(symbol string) []float64

// SumTolerance is the accepted deviation from 1.0 for a normalized map.
const SumTolerance = 1e-9

// Clone returns a shallow copy of the map.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Sum returns the sum of non-negative weights.
func (m Map) Sum() float64 {
	var s float64
	for _, v := range m {
		if v > 0 {
			s += v
		}
	}
	return s
}

// Normalize clamps negative weights to zero and rescales so the values sum
// to 1.0. A degenerate map (non-positive sum) is returned unchanged rather
// than divided by zero.
func (m Map) Normalize() Map {
	s := m.Sum()
	if s <= 0 {
		return m.Clone()
	}
	out := make(Map, len(m))
	for k, v := range m {
		if v < 0 {
			v = 0
		}
		out[k] = v / s
	}
	return out
}

// Degenerate reports whether the map carries no usable weight.
func (m Map) Degenerate() bool {
	return len(m) == 0 || m.Sum() <= 0
}
