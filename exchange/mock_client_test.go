package exchange

import (
	"context"
	"errors"
	"testing"

	"hedge_pair_go/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient() *MockClient {
	cfg := config.NewConfig()
	cfg.Simulation.Seed = 42
	return NewMockClient(cfg)
}

func TestGetQuoteSpread(t *testing.T) {
	c := newTestClient()
	q, err := c.GetQuote(context.Background(), "EURUSD")
	require.NoError(t, err)

	assert.InDelta(t, 1.0850, (q.Bid+q.Ask)/2, 1e-9)
	assert.InDelta(t, 0.3, q.SpreadInPips(), 1e-6)
	assert.Equal(t, 0.0001, q.PipSize)

	_, err = c.GetQuote(context.Background(), "GBPJPY")
	assert.True(t, errors.Is(err, ErrQuoteUnavailable))
}

func TestSubmitAndFindByLabel(t *testing.T) {
	c := newTestClient()
	ctx := context.Background()

	long, err := c.SubmitMarketOrder(ctx, Buy, "EURUSD", 100000, "B")
	require.NoError(t, err)
	_, err = c.SubmitMarketOrder(ctx, Sell, "EURUSD", 100000, "S")
	require.NoError(t, err)
	_, err = c.SubmitMarketOrder(ctx, Buy, "USDCHF", 100000, "B")
	require.NoError(t, err)

	buys, err := c.FindOpenPositions(ctx, "B")
	require.NoError(t, err)
	require.Len(t, buys, 2)
	assert.Equal(t, long.ID, buys[0].ID)
	assert.Equal(t, "USDCHF", buys[1].Symbol)

	// A fresh long is down by the spread.
	assert.InDelta(t, -0.3, buys[0].Pips, 1e-6)

	none, err := c.FindOpenPositions(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPipsAndProfitFollowPrice(t *testing.T) {
	c := newTestClient()
	ctx := context.Background()

	_, err := c.SubmitMarketOrder(ctx, Buy, "EURUSD", 100000, "B")
	require.NoError(t, err)
	_, err = c.SubmitMarketOrder(ctx, Sell, "EURUSD", 100000, "S")
	require.NoError(t, err)

	c.SetMid("EURUSD", 1.0860) // +10 pips mid

	buys, _ := c.FindOpenPositions(ctx, "B")
	sells, _ := c.FindOpenPositions(ctx, "S")
	require.Len(t, buys, 1)
	require.Len(t, sells, 1)

	assert.InDelta(t, 9.7, buys[0].Pips, 1e-6)
	assert.InDelta(t, 97.0, buys[0].NetProfit, 1e-6) // USD account, USD quote currency
	assert.InDelta(t, -10.3, sells[0].Pips, 1e-6)
	assert.InDelta(t, -103.0, sells[0].NetProfit, 1e-6)
}

func TestProfitConvertedWhenAccountIsBaseCurrency(t *testing.T) {
	c := newTestClient()
	ctx := context.Background()
	c.SetSpread("USDCHF", 0)

	_, err := c.SubmitMarketOrder(ctx, Buy, "USDCHF", 100000, "B")
	require.NoError(t, err)
	c.SetMid("USDCHF", 0.9000)

	buys, _ := c.FindOpenPositions(ctx, "B")
	require.Len(t, buys, 1)
	assert.InDelta(t, 50.0, buys[0].Pips, 1e-6)
	assert.InDelta(t, 0.0050*100000/0.9000, buys[0].NetProfit, 1e-6)
}

func TestClosePosition(t *testing.T) {
	c := newTestClient()
	ctx := context.Background()

	p, err := c.SubmitMarketOrder(ctx, Buy, "EURUSD", 100000, "B")
	require.NoError(t, err)

	require.NoError(t, c.ClosePosition(ctx, p))
	open, _ := c.FindOpenPositions(ctx, "B")
	assert.Empty(t, open)
	require.Len(t, c.Closed(), 1)
	assert.Equal(t, p.ID, c.Closed()[0].ID)

	err = c.ClosePosition(ctx, p)
	assert.True(t, errors.Is(err, ErrPositionNotFound))
}

func TestFaultInjection(t *testing.T) {
	c := newTestClient()
	ctx := context.Background()

	c.FailNextSubmits(1)
	_, err := c.SubmitMarketOrder(ctx, Buy, "EURUSD", 100000, "B")
	assert.True(t, errors.Is(err, ErrOrderRejected))
	p, err := c.SubmitMarketOrder(ctx, Buy, "EURUSD", 100000, "B")
	require.NoError(t, err)

	c.FailNextCloses(1)
	assert.Error(t, c.ClosePosition(ctx, p))
	assert.NoError(t, c.ClosePosition(ctx, p))

	c.FailNextFinds(1)
	_, err = c.FindOpenPositions(ctx, "B")
	assert.Error(t, err)
	_, err = c.FindOpenPositions(ctx, "B")
	assert.NoError(t, err)
}

func TestCancelledContext(t *testing.T) {
	c := newTestClient()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetQuote(ctx, "EURUSD")
	assert.True(t, errors.Is(err, context.Canceled))
	_, err = c.SubmitMarketOrder(ctx, Buy, "EURUSD", 1000, "B")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRejectsBadVolume(t *testing.T) {
	c := newTestClient()
	_, err := c.SubmitMarketOrder(context.Background(), Buy, "EURUSD", 0, "B")
	assert.True(t, errors.Is(err, ErrOrderRejected))
}
