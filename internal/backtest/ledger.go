// Package backtest executes trade plans against a simulated ledger and
// replays strategies day-by-day over historical price series.
package backtest

import "time"

// Ledger holds the cash and per-symbol holdings of one pool. It is the only
// long-lived mutable entity in the engine and is mutated exclusively by
// ApplyPlan. Cash and holding quantities never go negative.
type Ledger struct {
	Cash     float64
	Holdings map[string]float64
}

// NewLedger creates a ledger with starting cash and no holdings.
func NewLedger(cash float64) *Ledger {
	return &Ledger{Cash: cash, Holdings: make(map[string]float64)}
}

// Quantity returns the held quantity for a symbol, zero if absent.
func (l *Ledger) Quantity(symbol string) float64 {
	return l.Holdings[symbol]
}

// Equity values the ledger at the given prices: cash plus the sum of each
// holding times its price. Symbols without a positive price contribute
// nothing.
func (l *Ledger) Equity(prices map[string]float64) float64 {
	eq := l.Cash
	for sym, qty := range l.Holdings {
		if px := prices[sym]; px > 0 {
			eq += qty * px
		}
	}
	return eq
}

// Snapshot captures the ledger state at one point of a run. Snapshots are
// append-only; they are never mutated after creation.
type Snapshot struct {
	Day      int                `json:"day_index"`
	Time     time.Time          `json:"ts"`
	Equity   float64            `json:"equity"`
	Cash     float64            `json:"cash"`
	Holdings map[string]float64 `json:"holdings"`
}

// snapshot copies the ledger into an immutable record.
func (l *Ledger) snapshot(day int, ts time.Time, equity float64) Snapshot {
	h := make(map[string]float64, len(l.Holdings))
	for sym, qty := range l.Holdings {
		h[sym] = qty
	}
	return Snapshot{Day: day, Time: ts, Equity: equity, Cash: l.Cash, Holdings: h}
}
