// strategy/state.go
package strategy

import (
	"errors"

	"hedge_pair_go/exchange"
	"hedge_pair_go/risk"
)

var (
	// ErrNotRecovered means the startup position query has not succeeded yet; the controller
	// neither enters nor exits until it does.
	ErrNotRecovered = errors.New("exit mode not recovered from open positions")
	// ErrEntryFailed means an entry round did not open all of its legs.
	ErrEntryFailed = errors.New("hedge entry round failed")
)

// State is the controller's only mutable data. It is passed into every handler by value and the
// handler returns the successor, so transitions can be tested without a gateway.
type State struct {
	ExitAtBreakEven bool
	TargetPips      float64
	Recovered       bool
	Pending         PendingExit
}

// PendingExit is a group exit that was decided but has legs that failed to close. Its remaining
// legs are retried on later ticks without re-evaluating the exit rule; the flag changes only
// once the group is empty.
type PendingExit struct {
	Label  string
	Mode   risk.ExitMode
	Closed []exchange.Position
}

// Active reports whether an exit is in progress for label.
func (p PendingExit) Active(label string) bool {
	return p.Label != "" && p.Label == label
}

// NewState returns the pre-recovery state.
func NewState(targetPips float64) State {
	return State{TargetPips: targetPips}
}

// Mode returns the exit rule currently in force.
func (s State) Mode() risk.ExitMode {
	if s.ExitAtBreakEven {
		return risk.BreakEvenExit
	}
	return risk.TargetExit
}

// Phase is the lifecycle position derived from which groups are open.
type Phase string

const (
	Idle         Phase = "Idle"
	BothOpen     Phase = "BothOpen"
	OneRemaining Phase = "OneRemaining"
)

// PhaseOf classifies a snapshot by its open buy and sell leg counts.
func PhaseOf(buys, sells int) Phase {
	switch {
	case buys == 0 && sells == 0:
		return Idle
	case buys > 0 && sells > 0:
		return BothOpen
	default:
		return OneRemaining
	}
}
