package backtest

import (
	"math"

	"github.com/google/uuid"

	"github.com/ctraderhq/ctrader/internal/domain/rebalance"
)

// cashTolerance absorbs float accumulation error in the affordability check.
const cashTolerance = 1e-9

// Costs models the simulated venue's fee and slippage rates as fractions.
type Costs struct {
	FeeRate      float64
	SlippageRate float64
}

// CostsFromBps converts basis points into Costs.
func CostsFromBps(feeBps, slippageBps float64) Costs {
	return Costs{FeeRate: feeBps / 10000.0, SlippageRate: slippageBps / 10000.0}
}

// FillStatus classifies the outcome of applying one order.
type FillStatus string

const (
	// FillExecuted means the order was applied in full.
	FillExecuted FillStatus = "executed"
	// FillClamped means a sell was reduced to the available holding.
	FillClamped FillStatus = "clamped"
	// FillSkipped means the order was not applied at all.
	FillSkipped FillStatus = "skipped"
)

// Fill records what actually happened to one planned order, including the
// recoverable conditions the caller may assert on: insufficient cash skips
// and insufficient-holdings clamps.
type Fill struct {
	ID        uuid.UUID      `json:"id"`
	Symbol    string         `json:"symbol"`
	Side      rebalance.Side `json:"side"`
	Qty       float64        `json:"qty"`
	Price     float64        `json:"price"`
	FillPrice float64        `json:"fill_price"`
	Value     float64        `json:"value"`
	Fee       float64        `json:"fee"`
	Status    FillStatus     `json:"status"`
	Reason    string         `json:"reason,omitempty"`
}

// ApplyPlan executes each non-HOLD order of the plan against the ledger, in
// plan order, and returns the execution trace. Buys that exceed available
// cash are skipped wholesale (no partial fills); sells are clamped to the
// current holding so the ledger never goes short. Cash and holdings update
// atomically per order.
func ApplyPlan(l *Ledger, plan rebalance.Plan, prices map[string]float64, c Costs) []Fill {
	var fills []Fill
	for _, o := range plan.Orders {
		if o.Side == rebalance.SideHold || o.Qty <= 0 {
			continue
		}
		px := prices[o.Symbol]
		if px <= 0 {
			fills = append(fills, Fill{
				ID: uuid.New(), Symbol: o.Symbol, Side: o.Side, Qty: o.Qty,
				Status: FillSkipped, Reason: "no price",
			})
			continue
		}

		switch o.Side {
		case rebalance.SideBuy:
			fillPx := px * (1.0 + c.SlippageRate)
			fee := o.Qty * fillPx * c.FeeRate
			cost := o.Qty*fillPx + fee
			if l.Cash < cost-cashTolerance {
				fills = append(fills, Fill{
					ID: uuid.New(), Symbol: o.Symbol, Side: o.Side, Qty: o.Qty,
					Price: px, FillPrice: fillPx,
					Status: FillSkipped, Reason: "insufficient cash",
				})
				continue
			}
			l.Cash -= cost
			l.Holdings[o.Symbol] += o.Qty
			fills = append(fills, Fill{
				ID: uuid.New(), Symbol: o.Symbol, Side: o.Side, Qty: o.Qty,
				Price: px, FillPrice: fillPx, Value: o.Qty * fillPx, Fee: fee,
				Status: FillExecuted,
			})

		case rebalance.SideSell:
			have := l.Holdings[o.Symbol]
			qty := math.Min(o.Qty, have)
			status, reason := FillExecuted, ""
			if qty < o.Qty {
				status, reason = FillClamped, "insufficient holdings"
			}
			fillPx := px * (1.0 - c.SlippageRate)
			gross := qty * fillPx
			fee := gross * c.FeeRate
			l.Cash += gross - fee
			l.Holdings[o.Symbol] = math.Max(0, have-qty)
			fills = append(fills, Fill{
				ID: uuid.New(), Symbol: o.Symbol, Side: o.Side, Qty: qty,
				Price: px, FillPrice: fillPx, Value: gross, Fee: fee,
				Status: status, Reason: reason,
			})
		}
	}
	return fills
}
