// strategy/engine.go
package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hedge_pair_go/config"
	"hedge_pair_go/exchange"
	"hedge_pair_go/logs"
	"hedge_pair_go/risk"
	"hedge_pair_go/utils"

	"github.com/google/uuid"
)

// EntryEvent reports one entry round. Opened lists the legs that filled, including any that
// were compensated after a failure; Stranded lists the ones compensation could not close.
type EntryEvent struct {
	RoundID  string
	Opened   []exchange.Position
	Stranded []exchange.Position
	Err      error
}

// GroupClosedEvent reports a group that closed completely.
type GroupClosedEvent struct {
	Label         string
	Mode          risk.ExitMode
	Positions     []exchange.Position
	TotalPips     float64
	NetProfit     float64
	CycleComplete bool
}

// GroupReport is the bar-time view of one group.
type GroupReport struct {
	Label     string
	Legs      int
	TotalPips float64
	NetProfit float64
}

// Snapshot is what OnBar observed.
type Snapshot struct {
	Phase           Phase
	ExitAtBreakEven bool
	Buy             GroupReport
	Sell            GroupReport
}

// Hooks lets the host observe the controller. Nil hooks are skipped.
type Hooks struct {
	OnEntry       func(EntryEvent)
	OnGroupClosed func(GroupClosedEvent)
	OnCloseFailed func(label string, err error)
	OnGateChecked func(risk.GateResult)
	OnSnapshot    func(Snapshot)
}

func (h Hooks) entry(e EntryEvent) {
	if h.OnEntry != nil {
		h.OnEntry(e)
	}
}

func (h Hooks) groupClosed(e GroupClosedEvent) {
	if h.OnGroupClosed != nil {
		h.OnGroupClosed(e)
	}
}

func (h Hooks) closeFailed(label string, err error) {
	if h.OnCloseFailed != nil {
		h.OnCloseFailed(label, err)
	}
}

func (h Hooks) gateChecked(r risk.GateResult) {
	if h.OnGateChecked != nil {
		h.OnGateChecked(r)
	}
}

func (h Hooks) snapshot(s Snapshot) {
	if h.OnSnapshot != nil {
		h.OnSnapshot(s)
	}
}

// Env is everything a handler needs besides State.
type Env struct {
	Quotes    exchange.QuoteSource
	Gateway   exchange.OrderGateway
	Gate      *risk.SpreadGate
	Symbols   []string
	Volume    int64
	BuyLabel  string
	SellLabel string
	Timeout   time.Duration // per gateway call, 0 = unbounded
	Hooks     Hooks

	NewRoundID func() string
}

// NewEnv wires an Env from configuration and a broker client.
func NewEnv(cfg *config.Config, client exchange.Client) *Env {
	return &Env{
		Quotes:    client,
		Gateway:   client,
		Gate:      risk.NewSpreadGate(cfg.SpreadCeilings(), time.Duration(cfg.Normal.MaxQuoteAgeSeconds)*time.Second),
		Symbols:   cfg.Symbols(),
		Volume:    cfg.Strategy.Volume,
		BuyLabel:  cfg.Strategy.BuyLabel,
		SellLabel: cfg.Strategy.SellLabel,
		Timeout:   time.Duration(cfg.Normal.GatewayTimeoutSeconds) * time.Second,
	}
}

func (e *Env) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.Timeout)
}

func (e *Env) newRoundID() string {
	if e.NewRoundID != nil {
		return e.NewRoundID()
	}
	return uuid.New().String()
}

func (e *Env) findGroup(ctx context.Context, label string, side exchange.TradeType) (Group, error) {
	callCtx, cancel := e.callContext(ctx)
	defer cancel()
	positions, err := e.Gateway.FindOpenPositions(callCtx, label)
	if err != nil {
		return Group{}, fmt.Errorf("query %s positions: %w", label, err)
	}
	return Group{Label: label, Side: side, Positions: positions}, nil
}

func snapshot(ctx context.Context, env *Env) (Group, Group, error) {
	buy, err := env.findGroup(ctx, env.BuyLabel, exchange.Buy)
	if err != nil {
		return Group{}, Group{}, err
	}
	sell, err := env.findGroup(ctx, env.SellLabel, exchange.Sell)
	if err != nil {
		return Group{}, Group{}, err
	}
	return buy, sell, nil
}

// Tick is the per-price-update decision. Both groups are read once; if both are empty the spread
// gate may trigger an entry, otherwise the buy group is evaluated and then the sell group against
// the state the buy evaluation left behind.
func Tick(ctx context.Context, env *Env, st State) (State, error) {
	if !st.Recovered {
		recovered, err := Start(ctx, env, st)
		if err != nil {
			return recovered, err
		}
		st = recovered
	}

	buy, sell, err := snapshot(ctx, env)
	if err != nil {
		return st, err
	}

	// A pending exit whose group emptied since the last attempt is complete.
	for _, g := range []Group{buy, sell} {
		if g.Empty() && st.Pending.Active(g.Label) {
			st = commitExit(env, st, g, st.Pending)
		}
	}

	if buy.Empty() && sell.Empty() {
		return tryEntry(ctx, env, st)
	}

	// The sell group sees the flag as mutated by the buy group in this same tick. If the buy
	// group banks its target here, the sell group is judged on break-even rules immediately.
	var errs []error
	if !buy.Empty() {
		if st, err = stepExit(ctx, env, st, buy); err != nil {
			errs = append(errs, err)
		}
	}
	if !sell.Empty() {
		if st, err = stepExit(ctx, env, st, sell); err != nil {
			errs = append(errs, err)
		}
	}
	return st, errors.Join(errs...)
}

// Bar reports group totals. It reads the same snapshot as Tick but never trades or changes state.
func Bar(ctx context.Context, env *Env, st State) error {
	buy, sell, err := snapshot(ctx, env)
	if err != nil {
		return err
	}

	snap := Snapshot{
		Phase:           PhaseOf(len(buy.Positions), len(sell.Positions)),
		ExitAtBreakEven: st.ExitAtBreakEven,
		Buy:             report(buy),
		Sell:            report(sell),
	}
	for _, r := range []struct {
		side string
		rep  GroupReport
	}{{"buy", snap.Buy}, {"sell", snap.Sell}} {
		if r.rep.Legs == 0 {
			continue
		}
		logs.Infof("[Report] Total %s pips: %v | Net %s profit: %v", r.side, r.rep.TotalPips, r.side, r.rep.NetProfit)
	}
	logs.Debugf("[Report] Phase %s, break even flag = %v", snap.Phase, snap.ExitAtBreakEven)
	env.Hooks.snapshot(snap)
	return nil
}

func report(g Group) GroupReport {
	pips, _ := g.TotalPips().Float64()
	profit, _ := g.NetProfit().Float64()
	return GroupReport{
		Label:     g.Label,
		Legs:      len(g.Positions),
		TotalPips: utils.RoundToPrecision(pips, 1),
		NetProfit: utils.RoundToPrecision(profit, 2),
	}
}

// Stop is the terminal hook. Nothing is owned durably, so it only reports.
func Stop(st State) {
	logs.Infof("[Strategy] Execution stopped (break even flag = %v)", st.ExitAtBreakEven)
}

// Engine holds State between scheduler calls. It must be driven serially.
type Engine struct {
	env   *Env
	state State
}

func NewEngine(env *Env, targetPips float64) *Engine {
	return &Engine{env: env, state: NewState(targetPips)}
}

// OnStart runs startup recovery. An error leaves the engine unrecovered; OnTick keeps retrying.
func (e *Engine) OnStart(ctx context.Context) error {
	st, err := Start(ctx, e.env, e.state)
	e.state = st
	return err
}

func (e *Engine) OnTick(ctx context.Context) error {
	st, err := Tick(ctx, e.env, e.state)
	e.state = st
	return err
}

func (e *Engine) OnBar(ctx context.Context) error {
	return Bar(ctx, e.env, e.state)
}

func (e *Engine) OnStop() {
	Stop(e.state)
}

// State returns the current state.
func (e *Engine) State() State {
	return e.state
}

// Env exposes the handler environment, e.g. to attach hooks.
func (e *Engine) Env() *Env {
	return e.env
}
