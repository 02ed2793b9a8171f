package exchange

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrQuoteUnavailable is returned when no current quote exists for a symbol.
	ErrQuoteUnavailable = errors.New("quote unavailable")
	// ErrPositionNotFound is returned when closing a position that is no longer open.
	ErrPositionNotFound = errors.New("position not found")
	// ErrOrderRejected is returned when the gateway refuses an order.
	ErrOrderRejected = errors.New("order rejected")
)

// TradeType defines the direction of a market order (BUY or SELL).
type TradeType string

const (
	Buy  TradeType = "BUY"
	Sell TradeType = "SELL"
)

// Quote is the current top of book for one instrument.
type Quote struct {
	Symbol  string
	Bid     float64
	Ask     float64
	PipSize float64
	Time    time.Time
}

// SpreadInPips returns (ask - bid) / pipSize. Callers must check PipSize > 0 first.
func (q *Quote) SpreadInPips() float64 {
	return (q.Ask - q.Bid) / q.PipSize
}

// Position is an open market order as reported by the gateway.
type Position struct {
	ID         string
	Symbol     string
	TradeType  TradeType
	Label      string
	Volume     int64
	EntryPrice float64
	Pips       float64 // accrued price movement in pips, positive when in profit
	NetProfit  float64 // account currency, after commissions
	OpenTime   time.Time
}

// QuoteSource supplies current quotes.
type QuoteSource interface {
	GetQuote(ctx context.Context, symbol string) (*Quote, error)
}

// OrderGateway executes market orders and reports open positions by label.
type OrderGateway interface {
	// SubmitMarketOrder opens one leg and returns the resulting position.
	SubmitMarketOrder(ctx context.Context, tradeType TradeType, symbol string, volume int64, label string) (*Position, error)

	// ClosePosition closes an open position at market.
	ClosePosition(ctx context.Context, position *Position) error

	// FindOpenPositions returns a snapshot of open positions carrying the label, oldest first.
	FindOpenPositions(ctx context.Context, label string) ([]Position, error)
}

// Client is everything the controller needs from a broker.
type Client interface {
	QuoteSource
	OrderGateway
}
