package exchange

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"hedge_pair_go/config"
	"hedge_pair_go/logs"
	"hedge_pair_go/utils"

	"github.com/google/uuid"
)

//
// In-memory FX broker for running the controller without a live gateway.
//

var _ Client = (*MockClient)(nil)

type symbolBook struct {
	mid        float64
	spreadPips float64
	pipSize    float64
	updated    time.Time
}

// ClosedPosition is a position the simulator has closed, with its realized result.
type ClosedPosition struct {
	Position
	ClosePrice float64
	CloseTime  time.Time
}

// MockClient simulates a market-order FX broker: random-walk quotes, hedging-mode positions
// and label lookup. Fault injection hooks let tests exercise gateway failures.
type MockClient struct {
	mu               sync.RWMutex
	books            map[string]*symbolBook
	positions        []*Position
	closed           []ClosedPosition
	accountCurrency  string
	commissionPerLeg float64
	volatilityPips   float64
	stepInterval     time.Duration
	rng              *rand.Rand
	now              func() time.Time
	stopChan         chan struct{}
	stopOnce         sync.Once

	failSubmits int
	failCloses  int
	failFinds   int
}

// NewMockClient creates a simulator seeded from the instrument and simulation config.
func NewMockClient(cfg *config.Config) *MockClient {
	sim := cfg.Simulation
	if sim == nil {
		sim = config.NewConfig().Simulation
	}
	seed := sim.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	c := &MockClient{
		books:            make(map[string]*symbolBook),
		accountCurrency:  strings.ToUpper(sim.AccountCurrency),
		commissionPerLeg: sim.CommissionPerLeg,
		volatilityPips:   sim.VolatilityPips,
		stepInterval:     time.Duration(sim.StepIntervalMillis) * time.Millisecond,
		rng:              rand.New(rand.NewSource(seed)),
		now:              time.Now,
		stopChan:         make(chan struct{}),
	}
	for _, inst := range cfg.Instruments {
		c.AddSymbol(inst.Symbol, sim.InitialPrices[inst.Symbol], inst.PipSize, sim.SpreadPips[inst.Symbol])
	}
	return c
}

// AddSymbol registers (or resets) a symbol with a mid price, pip size and spread in pips.
func (c *MockClient) AddSymbol(symbol string, mid, pipSize, spreadPips float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.books[symbol] = &symbolBook{mid: mid, spreadPips: spreadPips, pipSize: pipSize, updated: c.now()}
}

// SetMid moves a symbol's mid price, keeping its spread.
func (c *MockClient) SetMid(symbol string, mid float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.books[symbol]; ok {
		b.mid = mid
		b.updated = c.now()
	}
}

// SetSpread changes a symbol's spread in pips.
func (c *MockClient) SetSpread(symbol string, spreadPips float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.books[symbol]; ok {
		b.spreadPips = spreadPips
		b.updated = c.now()
	}
}

// SetClock replaces the simulator clock.
func (c *MockClient) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// FailNextSubmits makes the next n SubmitMarketOrder calls fail.
func (c *MockClient) FailNextSubmits(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failSubmits = n
}

// FailNextCloses makes the next n ClosePosition calls fail.
func (c *MockClient) FailNextCloses(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failCloses = n
}

// FailNextFinds makes the next n FindOpenPositions calls fail.
func (c *MockClient) FailNextFinds(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failFinds = n
}

// Closed returns the positions closed so far, in close order.
func (c *MockClient) Closed() []ClosedPosition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ClosedPosition, len(c.closed))
	copy(out, c.closed)
	return out
}

// Start launches the price random walk. Must be called after the client is configured.
func (c *MockClient) Start() {
	go c.runPriceSimulator()
	logs.Warnf("[Mock Client] Price simulator started, step=%s volatility=%.2f pips", c.stepInterval, c.volatilityPips)
}

// Stop gracefully stops the simulator goroutine.
func (c *MockClient) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}

func (c *MockClient) runPriceSimulator() {
	if c.stepInterval <= 0 {
		return
	}
	ticker := time.NewTicker(c.stepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopChan:
			logs.Debug("[Mock Client] Price simulator stopped.")
			return
		case <-ticker.C:
			c.step()
		}
	}
}

// step advances every symbol by one normally distributed move.
func (c *MockClient) step() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for _, b := range c.books {
		b.mid += utils.PipsToPrice(c.rng.NormFloat64()*c.volatilityPips, b.pipSize)
		b.updated = now
	}
}

func (c *MockClient) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.books[symbol]
	if !ok || b.mid <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrQuoteUnavailable, symbol)
	}
	q := c.quote_noLock(symbol, b)
	return &q, nil
}

func (c *MockClient) quote_noLock(symbol string, b *symbolBook) Quote {
	half := utils.PipsToPrice(b.spreadPips, b.pipSize) / 2
	return Quote{
		Symbol:  symbol,
		Bid:     b.mid - half,
		Ask:     b.mid + half,
		PipSize: b.pipSize,
		Time:    b.updated,
	}
}

func (c *MockClient) SubmitMarketOrder(ctx context.Context, tradeType TradeType, symbol string, volume int64, label string) (*Position, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failSubmits > 0 {
		c.failSubmits--
		return nil, fmt.Errorf("%w: simulated rejection for %s %s", ErrOrderRejected, tradeType, symbol)
	}
	if volume <= 0 {
		return nil, fmt.Errorf("%w: volume must be positive, got %d", ErrOrderRejected, volume)
	}
	if tradeType != Buy && tradeType != Sell {
		return nil, fmt.Errorf("%w: unknown trade type %q", ErrOrderRejected, tradeType)
	}
	b, ok := c.books[symbol]
	if !ok || b.mid <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrQuoteUnavailable, symbol)
	}

	q := c.quote_noLock(symbol, b)
	entry := q.Ask
	if tradeType == Sell {
		entry = q.Bid
	}
	pos := &Position{
		ID:         uuid.New().String(),
		Symbol:     symbol,
		TradeType:  tradeType,
		Label:      label,
		Volume:     volume,
		EntryPrice: entry,
		OpenTime:   c.now(),
	}
	c.positions = append(c.positions, pos)
	logs.Debugf("[Mock] Filled %s %s %d @ %.5f label=%s id=%s", tradeType, symbol, volume, entry, label, pos.ID)

	out := *pos
	c.mark_noLock(&out)
	return &out, nil
}

func (c *MockClient) ClosePosition(ctx context.Context, position *Position) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if position == nil {
		return fmt.Errorf("%w: nil position", ErrPositionNotFound)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failCloses > 0 {
		c.failCloses--
		return fmt.Errorf("%w: simulated close failure for %s", ErrOrderRejected, position.ID)
	}

	for i, p := range c.positions {
		if p.ID != position.ID {
			continue
		}
		closed := *p
		c.mark_noLock(&closed)
		q := c.quote_noLock(p.Symbol, c.books[p.Symbol])
		closePrice := q.Bid
		if p.TradeType == Sell {
			closePrice = q.Ask
		}
		c.positions = append(c.positions[:i], c.positions[i+1:]...)
		c.closed = append(c.closed, ClosedPosition{Position: closed, ClosePrice: closePrice, CloseTime: c.now()})
		logs.Debugf("[Mock] Closed %s %s @ %.5f pips=%.1f net=%.2f id=%s", p.TradeType, p.Symbol, closePrice, closed.Pips, closed.NetProfit, p.ID)
		return nil
	}
	return fmt.Errorf("%w: %s", ErrPositionNotFound, position.ID)
}

func (c *MockClient) FindOpenPositions(ctx context.Context, label string) ([]Position, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failFinds > 0 {
		c.failFinds--
		return nil, fmt.Errorf("simulated position query failure for label %s", label)
	}

	var out []Position
	for _, p := range c.positions {
		if p.Label != label {
			continue
		}
		snapshot := *p
		c.mark_noLock(&snapshot)
		out = append(out, snapshot)
	}
	return out, nil
}

// mark_noLock fills Pips and NetProfit from the current book. Longs close at the bid, shorts at the ask.
// The caller must hold the lock.
func (c *MockClient) mark_noLock(p *Position) {
	b, ok := c.books[p.Symbol]
	if !ok || b.pipSize <= 0 {
		return
	}
	q := c.quote_noLock(p.Symbol, b)
	var move float64
	if p.TradeType == Buy {
		move = q.Bid - p.EntryPrice
	} else {
		move = p.EntryPrice - q.Ask
	}
	p.Pips = move / b.pipSize
	gross := move * float64(p.Volume) * c.conversionRate_noLock(p.Symbol)
	p.NetProfit = gross - c.commissionPerLeg
}

// conversionRate_noLock returns the factor converting the symbol's quote currency into the
// account currency, using the simulator's own books for crosses.
func (c *MockClient) conversionRate_noLock(symbol string) float64 {
	if len(symbol) != 6 {
		return 1
	}
	base, quote := symbol[:3], symbol[3:]
	switch c.accountCurrency {
	case quote:
		return 1
	case base:
		if b := c.books[symbol]; b != nil && b.mid > 0 {
			return 1 / b.mid
		}
	}
	if b := c.books[c.accountCurrency+quote]; b != nil && b.mid > 0 {
		return 1 / b.mid
	}
	if b := c.books[quote+c.accountCurrency]; b != nil && b.mid > 0 {
		return b.mid
	}
	return 1
}
