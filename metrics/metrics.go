// metrics/metrics.go
//
// Prometheus metrics for the hedged-pair controller:
//   - hms_entries_total{result}            entry rounds (opened|failed|declined)
//   - hms_group_exits_total{label,mode}    groups closed, by label and exit mode
//   - hms_close_failures_total{label}      close attempts that left legs open
//   - hms_break_even_mode                  1 while the break-even flag is set
//   - hms_group_pips{label}                summed pips of each group at the last bar
//   - hms_group_net_profit{label}          summed net profit of each group at the last bar
//   - hms_spread_pips{symbol}              spread seen by the last gate check
//   - hms_realized_profit                  realized profit banked across restarts (restored from the journal)
//
// Registered in init() and served at /metrics when an address is configured.
package metrics

import (
	"hedge_pair_go/risk"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	entries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hms_entries_total",
			Help: "Entry rounds by result",
		},
		[]string{"result"},
	)

	groupExits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hms_group_exits_total",
			Help: "Groups closed, split by label and exit mode",
		},
		[]string{"label", "mode"},
	)

	closeFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hms_close_failures_total",
			Help: "Group close attempts that left at least one leg open",
		},
		[]string{"label"},
	)

	breakEvenMode = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hms_break_even_mode",
			Help: "1 while exits are judged on net profit, 0 while on the pip target",
		},
	)

	groupPips = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hms_group_pips",
			Help: "Summed pips per group at the last bar",
		},
		[]string{"label"},
	)

	groupNetProfit = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hms_group_net_profit",
			Help: "Summed net profit per group at the last bar",
		},
		[]string{"label"},
	)

	spreadPips = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hms_spread_pips",
			Help: "Spread in pips seen by the last gate check",
		},
		[]string{"symbol"},
	)

	realizedProfit = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hms_realized_profit",
			Help: "Realized profit banked since the journal was created, carried across restarts",
		},
	)
)

func init() {
	prometheus.MustRegister(entries, groupExits, closeFailures)
	prometheus.MustRegister(breakEvenMode, groupPips, groupNetProfit, spreadPips, realizedProfit)
}

// Entry results.
const (
	EntryOpened   = "opened"
	EntryFailed   = "failed"
	EntryDeclined = "declined"
)

func ObserveEntry(result string) {
	entries.WithLabelValues(result).Inc()
}

func ObserveGroupExit(label string, mode risk.ExitMode) {
	groupExits.WithLabelValues(label, string(mode)).Inc()
}

func ObserveCloseFailure(label string) {
	closeFailures.WithLabelValues(label).Inc()
}

func SetBreakEvenMode(on bool) {
	if on {
		breakEvenMode.Set(1)
		return
	}
	breakEvenMode.Set(0)
}

func SetGroup(label string, pips, netProfit float64) {
	groupPips.WithLabelValues(label).Set(pips)
	groupNetProfit.WithLabelValues(label).Set(netProfit)
}

// ObserveGate records the spreads of a gate check and counts a declined entry.
func ObserveGate(res risk.GateResult) {
	for symbol, s := range res.Spreads {
		spreadPips.WithLabelValues(symbol).Set(s)
	}
	if !res.Allowed {
		ObserveEntry(EntryDeclined)
	}
}

func SetRealizedProfit(v float64) {
	realizedProfit.Set(v)
}
