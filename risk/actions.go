// risk/actions.go
package risk

import (
	"fmt"
	"strings"

	"hedge_pair_go/exchange"
)

// Action is anything the decision layer asks the engine to carry out.
type Action interface {
	Description() string
}

// ExitMode names the rule under which a group is closed.
type ExitMode string

const (
	TargetExit    ExitMode = "target"
	BreakEvenExit ExitMode = "break_even"
)

// NoOpAction represents that no action should be taken.
type NoOpAction struct {
	Reason string
}

func (a *NoOpAction) Description() string {
	if a.Reason == "" {
		return "No operation."
	}
	return "No operation: " + a.Reason
}

// Leg is one market order of an entry round.
type Leg struct {
	TradeType exchange.TradeType
	Symbol    string
	Volume    int64
	Label     string
}

func (l Leg) String() string {
	return fmt.Sprintf("%s %s %d [%s]", l.TradeType, l.Symbol, l.Volume, l.Label)
}

// OpenHedgeAction opens both groups: every leg must fill or the round is unwound.
type OpenHedgeAction struct {
	RoundID string
	Legs    []Leg
}

func (a *OpenHedgeAction) Description() string {
	legs := make([]string, 0, len(a.Legs))
	for _, l := range a.Legs {
		legs = append(legs, l.String())
	}
	return fmt.Sprintf("Open hedge round %s: %s", a.RoundID, strings.Join(legs, ", "))
}

// CloseGroupAction closes every position of one group.
type CloseGroupAction struct {
	Label     string
	Mode      ExitMode
	Positions []exchange.Position
	TotalPips float64
	NetProfit float64
}

func (a *CloseGroupAction) Description() string {
	return fmt.Sprintf("Close %s (%d legs) on %s exit, pips: %.1f, net profit: %.2f",
		a.Label, len(a.Positions), a.Mode, a.TotalPips, a.NetProfit)
}
