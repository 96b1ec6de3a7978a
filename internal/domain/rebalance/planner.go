// Package rebalance diffs current holdings against target quantities and
// emits a deterministic, exchange-executable trade plan.
package rebalance

import (
	"math"
	"sort"
)

// deltaEpsilon is the quantity dead-band below which a delta is treated as
// floating noise rather than a trade.
const deltaEpsilon = 1e-9

// Side is the direction of a planned order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
	SideHold Side = "HOLD"
)

// Order is one planned trade. Side and quantity are derived by the planner,
// never user-supplied. A HOLD order always carries zero quantity.
type Order struct {
	Symbol   string  `json:"symbol"`
	Side     Side    `json:"side"`
	Qty      float64 `json:"qty"`
	Price    float64 `json:"price"`
	EstValue float64 `json:"est_value"`
	EstFee   float64 `json:"est_fee"`
}

// Plan is the ordered set of orders for one rebalance cycle, listed in
// ascending symbol order, plus the portfolio value used to compute it.
type Plan struct {
	Orders         []Order `json:"orders"`
	PortfolioValue float64 `json:"portfolio_value"`
}

// Summary aggregates planned buy and sell notional and estimated fees.
func (p Plan) Summary() (buys, sells, fees float64) {
	for _, o := range p.Orders {
		switch o.Side {
		case SideBuy:
			buys += o.EstValue
		case SideSell:
			sells += o.EstValue
		}
		fees += o.EstFee
	}
	return buys, sells, fees
}

// Actionable returns the non-HOLD orders of the plan.
func (p Plan) Actionable() []Order {
	var out []Order
	for _, o := range p.Orders {
		if o.Side != SideHold && o.Qty > 0 {
			out = append(out, o)
		}
	}
	return out
}

// Params configures plan construction.
type Params struct {
	// DriftThresholdPct suppresses trades whose drift percentage, relative to
	// the target quantity, stays below the threshold. Zero disables the check.
	DriftThresholdPct float64
	// MinOrderValue is the default minimum notional; a per-symbol
	// min_notional constraint takes precedence when set.
	MinOrderValue float64
	// FeeRate estimates the fee charged on each order's notional.
	FeeRate float64
	// Constraints supplies per-symbol quantity granularity rules.
	Constraints ConstraintSet
	// PortfolioValue is the equity the targets were sized against, cash
	// included. When zero the plan records the holdings value instead.
	PortfolioValue float64
}

// BuildPlan diffs current holdings against target quantities and emits one
// order per symbol in the union of both key sets. It is a pure function of
// its inputs and produces no partial effects.
func BuildPlan(current, targets, prices map[string]float64, p Params) Plan {
	symbols := unionSymbols(current, targets)

	pv := p.PortfolioValue
	if pv == 0 {
		for sym, qty := range current {
			if px := prices[sym]; px > 0 {
				pv += qty * px
			}
		}
	}

	plan := Plan{PortfolioValue: pv}
	for _, sym := range symbols {
		cur := current[sym]
		tgt := targets[sym]
		px := prices[sym]
		delta := tgt - cur

		driftPct := math.Abs(delta) / math.Max(math.Abs(tgt), deltaEpsilon) * 100.0
		if p.DriftThresholdPct > 0 && driftPct < p.DriftThresholdPct {
			plan.Orders = append(plan.Orders, Order{Symbol: sym, Side: SideHold, Price: px})
			continue
		}

		var side Side
		var qty float64
		switch {
		case delta > deltaEpsilon:
			side, qty = SideBuy, delta
		case delta < -deltaEpsilon:
			side, qty = SideSell, -delta
		default:
			plan.Orders = append(plan.Orders, Order{Symbol: sym, Side: SideHold, Price: px})
			continue
		}

		c := p.Constraints.For(sym)
		qty = ApplyQtyConstraints(qty, c.MinQty, c.QtyStep)
		notional := qty * px

		minNotional := p.MinOrderValue
		if c.MinNotional > 0 {
			minNotional = c.MinNotional
		}
		if qty <= 0 || !MeetsMinNotional(notional, minNotional) {
			plan.Orders = append(plan.Orders, Order{Symbol: sym, Side: SideHold, Price: px})
			continue
		}

		plan.Orders = append(plan.Orders, Order{
			Symbol:   sym,
			Side:     side,
			Qty:      qty,
			Price:    px,
			EstValue: notional,
			EstFee:   notional * p.FeeRate,
		})
	}
	return plan
}

// AnyDriftExceedsThreshold reports whether at least one symbol's drift
// percentage meets the threshold, used to short-circuit no-op cycles.
func AnyDriftExceedsThreshold(current, targets map[string]float64, thresholdPct float64) bool {
	for _, sym := range unionSymbols(current, targets) {
		delta := targets[sym] - current[sym]
		pct := math.Abs(delta) / math.Max(math.Abs(targets[sym]), deltaEpsilon) * 100.0
		if pct >= thresholdPct {
			return true
		}
	}
	return false
}

func unionSymbols(a, b map[string]float64) []string {
	seen := make(map[string]bool, len(a)+len(b))
	for sym := range a {
		seen[sym] = true
	}
	for sym := range b {
		seen[sym] = true
	}
	symbols := make([]string, 0, len(seen))
	for sym := range seen {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}
