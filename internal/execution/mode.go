// Package execution turns rebalance plans into fills, either against the
// in-memory paper ledger or the live exchange.
package execution

import (
	"fmt"
	"strings"
)

// Mode selects how plans are executed.
type Mode string

const (
	// ModeSimulated executes against the paper ledger. This is the default.
	ModeSimulated Mode = "simulated"
	// ModeLiveConfirmed places real orders. It can only be obtained via
	// ParseMode with an explicit confirmation.
	ModeLiveConfirmed Mode = "live"
)

// ParseMode resolves the requested mode. Live execution requires both the
// mode string and a separate confirmation flag so a config typo alone can
// never place real orders.
func ParseMode(raw string, confirmLive bool) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "sim", "simulated", "paper":
		return ModeSimulated, nil
	case "live":
		if !confirmLive {
			return "", fmt.Errorf("refusing live execution: mode is %q but live trading was not confirmed (set confirm_live)", raw)
		}
		return ModeLiveConfirmed, nil
	default:
		return "", fmt.Errorf("unknown execution mode %q", raw)
	}
}

func (m Mode) Live() bool { return m == ModeLiveConfirmed }
