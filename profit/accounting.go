package profit

import (
	"sync"

	"hedge_pair_go/risk"

	"github.com/shopspring/decimal"
)

// GroupClose is one fully closed group as reported by the engine.
type GroupClose struct {
	Label     string
	Mode      risk.ExitMode
	Legs      int
	TotalPips float64
	NetProfit float64
	Timestamp int64
}

// Summary is the session view of what has been banked.
type Summary struct {
	RealizedProfit  decimal.Decimal
	TargetExits     int
	BreakEvenExits  int
	CompletedCycles int
	EntryRounds     int
	FailedEntries   int
}

// Accountant tracks realized profit per closed group. Sums are kept in decimal so many small
// leg results do not drift.
type Accountant struct {
	mu      sync.Mutex
	summary Summary
	history []GroupClose
}

// NewAccountant creates an empty ledger.
func NewAccountant() *Accountant {
	return &Accountant{
		summary: Summary{RealizedProfit: decimal.Zero},
		history: make([]GroupClose, 0),
	}
}

// RecordGroupClose books a closed group. A break-even close finishes a cycle.
func (a *Accountant) RecordGroupClose(c GroupClose) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.history = append(a.history, c)
	a.summary.RealizedProfit = a.summary.RealizedProfit.Add(decimal.NewFromFloat(c.NetProfit))
	switch c.Mode {
	case risk.TargetExit:
		a.summary.TargetExits++
	case risk.BreakEvenExit:
		a.summary.BreakEvenExits++
		a.summary.CompletedCycles++
	}
}

// RecordEntry counts an entry round.
func (a *Accountant) RecordEntry(ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if ok {
		a.summary.EntryRounds++
	} else {
		a.summary.FailedEntries++
	}
}

// Restore recovers the counters from persistent state.
func (a *Accountant) Restore(s Summary) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.summary = s
}

// GetSummary returns a copy of the current summary.
func (a *Accountant) GetSummary() Summary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.summary
}

// GetRealizedPNL returns cumulative realized profit.
func (a *Accountant) GetRealizedPNL() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	f, _ := a.summary.RealizedProfit.Float64()
	return f
}

// History returns the group closes recorded this session.
func (a *Accountant) History() []GroupClose {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]GroupClose, len(a.history))
	copy(out, a.history)
	return out
}
