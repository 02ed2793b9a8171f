package risk

import (
	"testing"
	"time"

	"hedge_pair_go/exchange"

	"github.com/stretchr/testify/assert"
)

var gateNow = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

func quote(symbol string, bid, spreadPips float64) *exchange.Quote {
	return &exchange.Quote{
		Symbol:  symbol,
		Bid:     bid,
		Ask:     bid + spreadPips*0.0001,
		PipSize: 0.0001,
		Time:    gateNow,
	}
}

func newGate() *SpreadGate {
	g := NewSpreadGate(map[string]float64{"EURUSD": 0.4, "USDCHF": 0.7}, 30*time.Second)
	g.SetClock(func() time.Time { return gateNow })
	return g
}

func TestSpreadGate(t *testing.T) {
	tests := []struct {
		name    string
		quotes  map[string]*exchange.Quote
		allowed bool
	}{
		{
			name:    "both tight",
			quotes:  map[string]*exchange.Quote{"EURUSD": quote("EURUSD", 1.08500, 0.3), "USDCHF": quote("USDCHF", 0.89500, 0.5)},
			allowed: true,
		},
		{
			name:    "both exactly at ceiling",
			quotes:  map[string]*exchange.Quote{"EURUSD": quote("EURUSD", 1.08500, 0.4), "USDCHF": quote("USDCHF", 0.89500, 0.7)},
			allowed: true,
		},
		{
			name:    "first too wide",
			quotes:  map[string]*exchange.Quote{"EURUSD": quote("EURUSD", 1.08500, 0.5), "USDCHF": quote("USDCHF", 0.89500, 0.5)},
			allowed: false,
		},
		{
			name:    "second too wide",
			quotes:  map[string]*exchange.Quote{"EURUSD": quote("EURUSD", 1.08500, 0.3), "USDCHF": quote("USDCHF", 0.89500, 0.8)},
			allowed: false,
		},
		{
			name:    "missing quote",
			quotes:  map[string]*exchange.Quote{"EURUSD": quote("EURUSD", 1.08500, 0.3)},
			allowed: false,
		},
		{
			name: "zero pip size",
			quotes: map[string]*exchange.Quote{
				"EURUSD": {Symbol: "EURUSD", Bid: 1.085, Ask: 1.085, Time: gateNow},
				"USDCHF": quote("USDCHF", 0.89500, 0.5),
			},
			allowed: false,
		},
		{
			name:    "crossed quote",
			quotes:  map[string]*exchange.Quote{"EURUSD": quote("EURUSD", 1.08500, -0.2), "USDCHF": quote("USDCHF", 0.89500, 0.5)},
			allowed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newGate().Check(tt.quotes)
			assert.Equal(t, tt.allowed, res.Allowed, res.Reason)
			if !tt.allowed {
				assert.NotEmpty(t, res.Reason)
			}
		})
	}
}

func TestSpreadGateStaleQuote(t *testing.T) {
	g := newGate()
	stale := quote("USDCHF", 0.89500, 0.5)
	stale.Time = gateNow.Add(-31 * time.Second)

	res := g.Check(map[string]*exchange.Quote{"EURUSD": quote("EURUSD", 1.08500, 0.3), "USDCHF": stale})
	assert.False(t, res.Allowed)
	assert.Contains(t, res.Reason, "stale")

	noAge := NewSpreadGate(map[string]float64{"EURUSD": 0.4, "USDCHF": 0.7}, 0)
	res = noAge.Check(map[string]*exchange.Quote{"EURUSD": quote("EURUSD", 1.08500, 0.3), "USDCHF": stale})
	assert.True(t, res.Allowed)
}

func TestSpreadGateReportsSpreads(t *testing.T) {
	res := newGate().Check(map[string]*exchange.Quote{"EURUSD": quote("EURUSD", 1.08500, 0.3), "USDCHF": quote("USDCHF", 0.89500, 0.5)})
	assert.InDelta(t, 0.3, res.Spreads["EURUSD"], 1e-6)
	assert.InDelta(t, 0.5, res.Spreads["USDCHF"], 1e-6)
}
