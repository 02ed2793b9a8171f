package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hedge_pair_go/exchange"
	"hedge_pair_go/risk"
)

const (
	buyLabel  = "HMSTA-BUY"
	sellLabel = "HMSTA-SELL"
)

var testNow = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

// fakeGateway is a scriptable broker: tests set pips and profit on open positions directly.
type fakeGateway struct {
	quotes    map[string]*exchange.Quote
	positions []exchange.Position
	nextID    int

	submitted   []exchange.Position
	closedIDs   []string
	submitCalls int

	failSubmitAt map[int]bool // 1-based submit call numbers that fail
	failClose    map[string]bool
	findErr      error
	blockFind    bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		quotes: map[string]*exchange.Quote{
			"EURUSD": {Symbol: "EURUSD", Bid: 1.08500, Ask: 1.08503, PipSize: 0.0001, Time: testNow},
			"USDCHF": {Symbol: "USDCHF", Bid: 0.89500, Ask: 0.89505, PipSize: 0.0001, Time: testNow},
		},
		failSubmitAt: map[int]bool{},
		failClose:    map[string]bool{},
	}
}

func (f *fakeGateway) setSpread(symbol string, pips float64) {
	q := f.quotes[symbol]
	q.Ask = q.Bid + pips*q.PipSize
}

func (f *fakeGateway) GetQuote(ctx context.Context, symbol string) (*exchange.Quote, error) {
	q, ok := f.quotes[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", exchange.ErrQuoteUnavailable, symbol)
	}
	copied := *q
	return &copied, nil
}

func (f *fakeGateway) SubmitMarketOrder(ctx context.Context, tradeType exchange.TradeType, symbol string, volume int64, label string) (*exchange.Position, error) {
	f.submitCalls++
	if f.failSubmitAt[f.submitCalls] {
		return nil, fmt.Errorf("%w: scripted", exchange.ErrOrderRejected)
	}
	f.nextID++
	pos := exchange.Position{
		ID:        fmt.Sprintf("p%d", f.nextID),
		Symbol:    symbol,
		TradeType: tradeType,
		Label:     label,
		Volume:    volume,
		OpenTime:  testNow,
	}
	f.positions = append(f.positions, pos)
	f.submitted = append(f.submitted, pos)
	return &pos, nil
}

func (f *fakeGateway) ClosePosition(ctx context.Context, position *exchange.Position) error {
	if f.failClose[position.ID] {
		return fmt.Errorf("%w: scripted close failure", exchange.ErrOrderRejected)
	}
	for i, p := range f.positions {
		if p.ID == position.ID {
			f.positions = append(f.positions[:i], f.positions[i+1:]...)
			f.closedIDs = append(f.closedIDs, p.ID)
			return nil
		}
	}
	return exchange.ErrPositionNotFound
}

func (f *fakeGateway) FindOpenPositions(ctx context.Context, label string) ([]exchange.Position, error) {
	if f.blockFind {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []exchange.Position
	for _, p := range f.positions {
		if p.Label == label {
			out = append(out, p)
		}
	}
	return out, nil
}

// open adds a position without going through SubmitMarketOrder.
func (f *fakeGateway) open(label string, tradeType exchange.TradeType, symbol string, pips, profit float64) string {
	f.nextID++
	id := fmt.Sprintf("p%d", f.nextID)
	f.positions = append(f.positions, exchange.Position{
		ID: id, Symbol: symbol, TradeType: tradeType, Label: label, Volume: 130000,
		Pips: pips, NetProfit: profit, OpenTime: testNow,
	})
	return id
}

// mark sets pips and profit on every leg of a label, split evenly across legs.
func (f *fakeGateway) mark(label string, totalPips, totalProfit float64) {
	var n int
	for _, p := range f.positions {
		if p.Label == label {
			n++
		}
	}
	for i := range f.positions {
		if f.positions[i].Label == label {
			f.positions[i].Pips = totalPips / float64(n)
			f.positions[i].NetProfit = totalProfit / float64(n)
		}
	}
}

func (f *fakeGateway) count(label string) int {
	var n int
	for _, p := range f.positions {
		if p.Label == label {
			n++
		}
	}
	return n
}

func newTestEnv(gw *fakeGateway) *Env {
	gate := risk.NewSpreadGate(map[string]float64{"EURUSD": 0.4, "USDCHF": 0.7}, 30*time.Second)
	gate.SetClock(func() time.Time { return testNow })
	return &Env{
		Quotes:     gw,
		Gateway:    gw,
		Gate:       gate,
		Symbols:    []string{"EURUSD", "USDCHF"},
		Volume:     130000,
		BuyLabel:   buyLabel,
		SellLabel:  sellLabel,
		Timeout:    time.Second,
		NewRoundID: func() string { return "round-1" },
	}
}

var errQuery = errors.New("gateway unreachable")
