// strategy/entry.go
package strategy

import (
	"context"
	"errors"
	"fmt"

	"hedge_pair_go/exchange"
	"hedge_pair_go/logs"
	"hedge_pair_go/risk"
)

// PlanEntry builds the four-leg round: long on every instrument under the buy label, then short
// on every instrument under the sell label.
func PlanEntry(env *Env, roundID string) *risk.OpenHedgeAction {
	legs := make([]risk.Leg, 0, 2*len(env.Symbols))
	for _, symbol := range env.Symbols {
		legs = append(legs, risk.Leg{TradeType: exchange.Buy, Symbol: symbol, Volume: env.Volume, Label: env.BuyLabel})
	}
	for _, symbol := range env.Symbols {
		legs = append(legs, risk.Leg{TradeType: exchange.Sell, Symbol: symbol, Volume: env.Volume, Label: env.SellLabel})
	}
	return &risk.OpenHedgeAction{RoundID: roundID, Legs: legs}
}

// collectQuotes fetches a quote per gated symbol. A failed fetch leaves the symbol out so the
// gate declines entry.
func collectQuotes(ctx context.Context, env *Env) map[string]*exchange.Quote {
	quotes := make(map[string]*exchange.Quote, len(env.Symbols))
	for _, symbol := range env.Symbols {
		callCtx, cancel := env.callContext(ctx)
		q, err := env.Quotes.GetQuote(callCtx, symbol)
		cancel()
		if err != nil {
			logs.Debugf("[Strategy] Quote for %s unavailable, entry declined this tick: %v", symbol, err)
			continue
		}
		quotes[symbol] = q
	}
	return quotes
}

// tryEntry runs the spread gate and, if it passes, opens a full round.
func tryEntry(ctx context.Context, env *Env, st State) (State, error) {
	res := env.Gate.Check(collectQuotes(ctx, env))
	env.Hooks.gateChecked(res)
	if !res.Allowed {
		logs.Debugf("[Strategy] Entry declined: %s", res.Reason)
		return st, nil
	}

	act := PlanEntry(env, env.newRoundID())
	opened, stranded, err := executeEntry(ctx, env, act)
	env.Hooks.entry(EntryEvent{RoundID: act.RoundID, Opened: opened, Stranded: stranded, Err: err})
	if err != nil {
		logs.Errorf("[Strategy-Error] Entry round %s failed: %v", act.RoundID, err)
		if len(stranded) == 0 {
			return st, err
		}
		// Legs left open make a half-populated snapshot; take the exit mode from the broker exactly
		// as a restart would.
		logs.Warnf("[Strategy] %d legs of round %s left open, re-deriving exit mode from open positions", len(stranded), act.RoundID)
		recovered, rerr := Start(ctx, env, st)
		return recovered, errors.Join(err, rerr)
	}

	logs.WithFields(logs.Fields{"round": act.RoundID, "legs": len(opened)}).
		Infof("[Strategy] New set of market orders submitted (round %s)", act.RoundID)
	st.ExitAtBreakEven = false
	return st, nil
}

// executeEntry submits the legs in order. The first failure stops the round and every leg that
// did open is closed again; legs whose compensating close failed are returned as stranded.
func executeEntry(ctx context.Context, env *Env, act *risk.OpenHedgeAction) ([]exchange.Position, []exchange.Position, error) {
	opened := make([]exchange.Position, 0, len(act.Legs))
	for _, leg := range act.Legs {
		callCtx, cancel := env.callContext(ctx)
		pos, err := env.Gateway.SubmitMarketOrder(callCtx, leg.TradeType, leg.Symbol, leg.Volume, leg.Label)
		cancel()
		if err != nil {
			legErr := fmt.Errorf("%w: leg %s: %v", ErrEntryFailed, leg, err)
			stranded, cerr := compensate(ctx, env, opened)
			return opened, stranded, errors.Join(legErr, cerr)
		}
		opened = append(opened, *pos)
	}
	return opened, nil, nil
}

// compensate closes already opened legs in reverse order and returns the ones it could not close.
func compensate(ctx context.Context, env *Env, opened []exchange.Position) ([]exchange.Position, error) {
	var stranded []exchange.Position
	var errs []error
	for i := len(opened) - 1; i >= 0; i-- {
		pos := opened[i]
		callCtx, cancel := env.callContext(ctx)
		err := env.Gateway.ClosePosition(callCtx, &pos)
		cancel()
		if err != nil {
			logs.Errorf("[Strategy-Error] Compensating close of %s %s (%s) failed, leg left open: %v", pos.TradeType, pos.Symbol, pos.ID, err)
			stranded = append(stranded, pos)
			errs = append(errs, fmt.Errorf("compensate %s %s (%s): %w", pos.TradeType, pos.Symbol, pos.ID, err))
			continue
		}
		logs.Warnf("[Strategy] Compensated leg %s %s (%s)", pos.TradeType, pos.Symbol, pos.ID)
	}
	return stranded, errors.Join(errs...)
}
