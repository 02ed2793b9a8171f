// risk/gate.go
package risk

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"hedge_pair_go/exchange"
	"hedge_pair_go/utils"
)

// GateResult is the outcome of one spread check.
type GateResult struct {
	Allowed bool
	Spreads map[string]float64 // pips, only for symbols with a usable quote
	Reason  string
}

// SpreadGate allows entry only while every traded instrument's spread is at or below its ceiling.
// It is a pure decision: no orders, no state.
type SpreadGate struct {
	ceilings    map[string]float64
	symbols     []string
	maxQuoteAge time.Duration
	now         func() time.Time
}

// NewSpreadGate builds a gate from per-symbol ceilings in pips. maxQuoteAge <= 0 disables the
// staleness check.
func NewSpreadGate(ceilings map[string]float64, maxQuoteAge time.Duration) *SpreadGate {
	symbols := make([]string, 0, len(ceilings))
	copied := make(map[string]float64, len(ceilings))
	for s, c := range ceilings {
		symbols = append(symbols, s)
		copied[s] = c
	}
	sort.Strings(symbols)
	return &SpreadGate{
		ceilings:    copied,
		symbols:     symbols,
		maxQuoteAge: maxQuoteAge,
		now:         time.Now,
	}
}

// SetClock replaces the clock used for the staleness check.
func (g *SpreadGate) SetClock(now func() time.Time) {
	g.now = now
}

// Check evaluates the quotes. A symbol with a nil, crossed, zero-pip or stale quote declines entry.
func (g *SpreadGate) Check(quotes map[string]*exchange.Quote) GateResult {
	res := GateResult{Allowed: true, Spreads: make(map[string]float64, len(g.symbols))}
	var reasons []string

	for _, symbol := range g.symbols {
		q := quotes[symbol]
		switch {
		case q == nil:
			reasons = append(reasons, fmt.Sprintf("%s quote unavailable", symbol))
			continue
		case q.PipSize <= 0:
			reasons = append(reasons, fmt.Sprintf("%s pip size %v invalid", symbol, q.PipSize))
			continue
		case q.Ask < q.Bid:
			reasons = append(reasons, fmt.Sprintf("%s quote crossed (bid %.5f > ask %.5f)", symbol, q.Bid, q.Ask))
			continue
		case g.maxQuoteAge > 0 && g.now().Sub(q.Time) > g.maxQuoteAge:
			reasons = append(reasons, fmt.Sprintf("%s quote stale (%s old)", symbol, g.now().Sub(q.Time).Round(time.Second)))
			continue
		}

		spread := q.SpreadInPips()
		res.Spreads[symbol] = spread
		// Pip spreads come out of float subtraction; a quote exactly at the ceiling must pass.
		if spread > g.ceilings[symbol]+utils.Epsilon {
			reasons = append(reasons, fmt.Sprintf("%s spread %.2f > %.2f pips", symbol, spread, g.ceilings[symbol]))
		}
	}

	if len(reasons) > 0 {
		res.Allowed = false
		res.Reason = strings.Join(reasons, "; ")
	}
	return res
}
