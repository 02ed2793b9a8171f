// strategy/group.go
package strategy

import (
	"hedge_pair_go/exchange"

	"github.com/shopspring/decimal"
)

// Group is the snapshot of open positions sharing one label.
type Group struct {
	Label     string
	Side      exchange.TradeType
	Positions []exchange.Position
}

func (g Group) Empty() bool {
	return len(g.Positions) == 0
}

// TotalPips folds the accrued pips of every leg.
func (g Group) TotalPips() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range g.Positions {
		sum = sum.Add(decimal.NewFromFloat(p.Pips))
	}
	return sum
}

// NetProfit folds the account-currency net profit of every leg. Decimal addition keeps a
// group whose legs cancel out at exactly zero.
func (g Group) NetProfit() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range g.Positions {
		sum = sum.Add(decimal.NewFromFloat(p.NetProfit))
	}
	return sum
}

func (g Group) sideName() string {
	if g.Side == exchange.Sell {
		return "Sell"
	}
	return "Buy"
}
