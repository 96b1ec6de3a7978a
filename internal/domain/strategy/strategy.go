// Package strategy selects target allocations for a pool. Strategies form a
// closed tagged variant dispatched by switch; all parameters are supplied at
// call time through the variant value and context.
package strategy

import (
	"errors"
	"fmt"

	"github.com/ctraderhq/ctrader/internal/domain/weights"
)

// ErrInvalidConfig is returned for configurations that cannot produce a
// usable allocation (empty universe, weights summing to zero). It is a hard
// failure: the planning path never falls back to equal weights silently.
var ErrInvalidConfig = errors.New("invalid strategy configuration")

// Kind tags the strategy variant.
type Kind string

const (
	KindStatic         Kind = "static"
	KindEqualWeight    Kind = "equal"
	KindRiskParity     Kind = "risk_parity"
	KindTrendFollowing Kind = "trend_following"
)

// Strategy is the closed variant. Only the fields relevant to the tagged
// kind are consulted.
type Strategy struct {
	Kind Kind

	// StaticWeights feeds the static and trend-following variants.
	StaticWeights weights.Map

	// InverseVol parameterizes the risk-parity variant.
	InverseVol weights.InverseVolConfig

	// Pipeline parameterizes the trend-following variant's full overlay run.
	Pipeline weights.PipelineConfig
}

// Context carries the external collaborators a strategy may consult.
type Context struct {
	// History resolves a symbol's daily price series, ending at the
	// evaluation day.
	History weights.Lookup
}

// TargetAllocations computes the normalized target weight map for the given
// universe. Holdings are available to strategies but none of the built-in
// variants condition on them; the signature is part of the contract for
// future variants.
func (s Strategy) TargetAllocations(holdings map[string]float64, universe []string, ctx Context) (weights.Map, error) {
	if len(universe) == 0 {
		return nil, fmt.Errorf("%w: empty universe", ErrInvalidConfig)
	}

	switch s.Kind {
	case KindStatic:
		return s.staticAllocations(universe)

	case KindEqualWeight:
		w := make(weights.Map, len(universe))
		eq := 1.0 / float64(len(universe))
		for _, sym := range universe {
			w[sym] = eq
		}
		return w, nil

	case KindRiskParity:
		// Inverse-vol as the sole source of weights over the universe.
		base := make(weights.Map, len(universe))
		for _, sym := range universe {
			base[sym] = 0
		}
		w := weights.InverseVolWeights(base, ctx.History, s.InverseVol)
		if w.Degenerate() {
			// No symbol had usable history: documented degenerate-input
			// policy, equal weight across the universe.
			eq := 1.0 / float64(len(universe))
			for _, sym := range universe {
				w[sym] = eq
			}
		}
		return w, nil

	case KindTrendFollowing:
		base, err := s.staticAllocations(universe)
		if err != nil {
			return nil, err
		}
		res := weights.Apply(base, ctx.History, s.Pipeline)
		return res.Weights, nil

	default:
		return nil, fmt.Errorf("%w: unknown strategy kind %q", ErrInvalidConfig, s.Kind)
	}
}

func (s Strategy) staticAllocations(universe []string) (weights.Map, error) {
	w := make(weights.Map, len(universe))
	for _, sym := range universe {
		w[sym] = s.StaticWeights[sym]
	}
	if w.Sum() <= 0 {
		return nil, fmt.Errorf("%w: static weights sum to zero over universe", ErrInvalidConfig)
	}
	return w.Normalize(), nil
}
