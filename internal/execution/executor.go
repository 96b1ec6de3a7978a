package execution

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/ctraderhq/ctrader/internal/backtest"
	"github.com/ctraderhq/ctrader/internal/domain/rebalance"
)

// Executor applies a rebalance plan at the given reference prices and
// reports the resulting fills.
type Executor interface {
	Execute(ctx context.Context, plan rebalance.Plan, prices map[string]float64) ([]backtest.Fill, error)
}

// PaperExecutor settles plans against an in-memory ledger with the same
// fee and slippage model the backtester uses.
type PaperExecutor struct {
	Ledger *backtest.Ledger
	Costs  backtest.Costs
}

func NewPaperExecutor(ledger *backtest.Ledger, costs backtest.Costs) *PaperExecutor {
	return &PaperExecutor{Ledger: ledger, Costs: costs}
}

func (e *PaperExecutor) Execute(ctx context.Context, plan rebalance.Plan, prices map[string]float64) ([]backtest.Fill, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fills := backtest.ApplyPlan(e.Ledger, plan, prices, e.Costs)
	log.Info().
		Int("orders", len(plan.Orders)).
		Int("fills", len(fills)).
		Float64("cash", e.Ledger.Cash).
		Msg("paper execution complete")
	return fills, nil
}
