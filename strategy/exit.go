// strategy/exit.go
package strategy

import (
	"context"
	"errors"
	"fmt"

	"hedge_pair_go/exchange"
	"hedge_pair_go/logs"
	"hedge_pair_go/risk"

	"github.com/shopspring/decimal"
)

// EvaluateExit decides whether a group closes under the mode in st.
//
// Target mode closes when the summed pips reach st.TargetPips and switches to break-even mode.
// Break-even mode closes when the summed net profit is >= 0 and switches back to target mode.
// The returned State is the one to commit once every leg has actually closed; for a NoOpAction
// it equals st.
func EvaluateExit(st State, g Group) (risk.Action, State) {
	if g.Empty() {
		return &risk.NoOpAction{Reason: g.Label + " empty"}, st
	}

	pips := g.TotalPips()
	profit := g.NetProfit()
	next := st

	if st.ExitAtBreakEven {
		if profit.LessThan(decimal.Zero) {
			return &risk.NoOpAction{Reason: fmt.Sprintf("%s net profit %s below break even", g.Label, profit.StringFixed(2))}, st
		}
		next.ExitAtBreakEven = false
		return closeAction(g, risk.BreakEvenExit, pips, profit), next
	}

	if pips.LessThan(decimal.NewFromFloat(st.TargetPips)) {
		return &risk.NoOpAction{Reason: fmt.Sprintf("%s pips %s below target %v", g.Label, pips.StringFixed(1), st.TargetPips)}, st
	}
	next.ExitAtBreakEven = true
	return closeAction(g, risk.TargetExit, pips, profit), next
}

func closeAction(g Group, mode risk.ExitMode, pips, profit decimal.Decimal) *risk.CloseGroupAction {
	p, _ := pips.Float64()
	n, _ := profit.Float64()
	return &risk.CloseGroupAction{
		Label:     g.Label,
		Mode:      mode,
		Positions: g.Positions,
		TotalPips: p,
		NetProfit: n,
	}
}

// executeExit closes every leg of the group. All legs are attempted even if one fails; it returns
// the legs that did close and a joined error listing the ones still open.
func executeExit(ctx context.Context, env *Env, act *risk.CloseGroupAction) ([]exchange.Position, error) {
	closed := make([]exchange.Position, 0, len(act.Positions))
	var errs []error
	for i := range act.Positions {
		pos := act.Positions[i]
		callCtx, cancel := env.callContext(ctx)
		err := env.Gateway.ClosePosition(callCtx, &pos)
		cancel()
		if err != nil {
			errs = append(errs, fmt.Errorf("close %s %s (%s): %w", pos.TradeType, pos.Symbol, pos.ID, err))
			continue
		}
		closed = append(closed, pos)
	}
	return closed, errors.Join(errs...)
}

// stepExit evaluates one group and, if it should close, closes it. A group with a pending exit
// skips evaluation and only retries its remaining legs. The transition is committed once every
// leg of the group has closed.
func stepExit(ctx context.Context, env *Env, st State, g Group) (State, error) {
	var act *risk.CloseGroupAction
	if st.Pending.Active(g.Label) {
		act = closeAction(g, st.Pending.Mode, g.TotalPips(), g.NetProfit())
		logs.Warnf("[Strategy] Retrying %s exit of %s positions, %d legs still open", act.Mode, g.sideName(), len(g.Positions))
	} else {
		action, _ := EvaluateExit(st, g)
		a, ok := action.(*risk.CloseGroupAction)
		if !ok {
			logs.Debugf("[Strategy] %s", action.Description())
			return st, nil
		}
		act = a
	}

	pending := st.Pending
	if !pending.Active(g.Label) {
		pending = PendingExit{Label: g.Label, Mode: act.Mode}
	}
	closed, err := executeExit(ctx, env, act)
	pending.Closed = append(append([]exchange.Position(nil), pending.Closed...), closed...)

	if err != nil {
		logs.WithFields(logs.Fields{"label": g.Label, "mode": act.Mode, "closed": len(closed), "open": len(act.Positions) - len(closed)}).
			Errorf("[Strategy-Error] Failed to close %s positions, will retry next tick: %v", g.sideName(), err)
		env.Hooks.closeFailed(g.Label, err)
		st.Pending = pending
		return st, fmt.Errorf("close %s: %w", g.Label, err)
	}
	return commitExit(env, st, g, pending), nil
}

// commitExit applies the transition of a fully closed group and reports the legs it closed.
func commitExit(env *Env, st State, g Group, p PendingExit) State {
	closedGroup := Group{Label: g.Label, Side: g.Side, Positions: p.Closed}
	pips, _ := closedGroup.TotalPips().Float64()
	profit, _ := closedGroup.NetProfit().Float64()

	fields := logs.Fields{"label": g.Label, "mode": p.Mode, "legs": len(p.Closed), "pips": pips, "net_profit": profit}
	if p.Mode == risk.TargetExit {
		logs.WithFields(fields).Infof("[Strategy] %s positions closed at profit target %.1f", g.sideName(), pips)
	} else {
		logs.WithFields(fields).Infof("[Strategy] %s positions closed at break even, net profit %.2f", g.sideName(), profit)
	}

	st.ExitAtBreakEven = p.Mode == risk.TargetExit
	st.Pending = PendingExit{}
	env.Hooks.groupClosed(GroupClosedEvent{
		Label:         g.Label,
		Mode:          p.Mode,
		Positions:     p.Closed,
		TotalPips:     pips,
		NetProfit:     profit,
		CycleComplete: p.Mode == risk.BreakEvenExit,
	})
	return st
}
