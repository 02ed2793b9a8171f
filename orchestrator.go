// orchestrator.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"hedge_pair_go/config"
	"hedge_pair_go/exchange"
	"hedge_pair_go/logs"
	"hedge_pair_go/metrics"
	"hedge_pair_go/monitor"
	"hedge_pair_go/profit"
	"hedge_pair_go/risk"
	"hedge_pair_go/state"
	"hedge_pair_go/strategy"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Orchestrator struct {
	client     *exchange.MockClient
	engine     *strategy.Engine
	accountant *profit.Accountant
	journal    state.JournalInterface
	ctx        context.Context
	cancel     context.CancelFunc
	stopChan   chan struct{}
	wg         sync.WaitGroup
	cfg        *config.Config
	metricsSrv *http.Server
}

func NewOrchestrator(cfg *config.Config, journalPath string) (*Orchestrator, error) {
	client := exchange.NewMockClient(cfg)
	client.Start()
	logs.Warnf("<<<<<<<<<< WARNING: Running against the built-in FX simulator >>>>>>>>>>")

	journal, err := state.NewJournal(journalPath)
	if err != nil {
		client.Stop()
		return nil, fmt.Errorf("failed to initialize journal: %w", err)
	}
	logs.Infof("Journal initialized, session totals will be persisted to: %s", journalPath)

	saved := journal.GetFullState()
	if !saved.UpdatedAt.IsZero() {
		logs.Infof("[Orchestrator] Journal from %s: realized %s, %d cycles completed, %d entry rounds",
			saved.UpdatedAt.Format(time.RFC3339), saved.RealizedProfit.StringFixed(2), saved.CompletedCycles, saved.EntryRounds)
	}
	accountant := profit.NewAccountant()
	journal.Restore(accountant)
	metrics.SetRealizedProfit(accountant.GetRealizedPNL())

	env := strategy.NewEnv(cfg, client)
	engine := strategy.NewEngine(env, cfg.Strategy.TakeProfitInPips)

	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		client:     client,
		engine:     engine,
		accountant: accountant,
		journal:    journal,
		ctx:        ctx,
		cancel:     cancel,
		stopChan:   make(chan struct{}),
		cfg:        cfg,
	}
	o.wireHooks(env)

	// Positions on the broker are the only source for the exit mode. A failed recovery is not
	// fatal: the engine refuses to trade and retries on every tick.
	if err := engine.OnStart(ctx); err != nil {
		logs.Errorf("[Orchestrator] Startup recovery failed, trading suspended until it succeeds: %v", err)
	}
	metrics.SetBreakEvenMode(engine.State().ExitAtBreakEven)

	return o, nil
}

func (o *Orchestrator) wireHooks(env *strategy.Env) {
	env.Hooks = strategy.Hooks{
		OnGateChecked: metrics.ObserveGate,
		OnEntry: func(ev strategy.EntryEvent) {
			o.accountant.RecordEntry(ev.Err == nil)
			if ev.Err != nil {
				metrics.ObserveEntry(metrics.EntryFailed)
			} else {
				metrics.ObserveEntry(metrics.EntryOpened)
				metrics.SetBreakEvenMode(false)
			}
			o.saveJournal()
		},
		OnGroupClosed: func(ev strategy.GroupClosedEvent) {
			o.accountant.RecordGroupClose(profit.GroupClose{
				Label:     ev.Label,
				Mode:      ev.Mode,
				Legs:      len(ev.Positions),
				TotalPips: ev.TotalPips,
				NetProfit: ev.NetProfit,
				Timestamp: time.Now().Unix(),
			})
			metrics.ObserveGroupExit(ev.Label, ev.Mode)
			metrics.SetBreakEvenMode(ev.Mode == risk.TargetExit)
			metrics.SetRealizedProfit(o.accountant.GetRealizedPNL())
			if ev.CycleComplete {
				logs.Infof("[Orchestrator] Cycle complete, %d cycles this account", o.accountant.GetSummary().CompletedCycles)
			}
			o.saveJournal()
		},
		OnCloseFailed: func(label string, err error) {
			metrics.ObserveCloseFailure(label)
		},
		OnSnapshot: func(s strategy.Snapshot) {
			metrics.SetGroup(s.Buy.Label, s.Buy.TotalPips, s.Buy.NetProfit)
			metrics.SetGroup(s.Sell.Label, s.Sell.TotalPips, s.Sell.NetProfit)
			metrics.SetBreakEvenMode(s.ExitAtBreakEven)
		},
	}
}

func (o *Orchestrator) saveJournal() {
	if err := o.journal.Save(o.accountant.GetSummary()); err != nil {
		logs.Errorf("[Orchestrator-Error] Failed to save journal: %v", err)
	}
}

func (o *Orchestrator) Start() {
	if addr := o.cfg.Normal.MetricsAddr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		o.metricsSrv = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logs.Infof("[Orchestrator] Serving metrics on %s/metrics", addr)
			if err := o.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logs.Errorf("[Orchestrator-Error] Metrics server stopped: %v", err)
			}
		}()
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		monitor.Start(o.ctx, o.engine, monitor.IntervalsFromConfig(o.cfg.Normal), o.stopChan)
	}()
	logs.Infof("Hedged pair %v started, press Ctrl+C to exit.", o.cfg.Symbols())
}

func (o *Orchestrator) Stop() {
	logs.Info("Received close signal, starting graceful shutdown...")

	// Stop the scheduler first so no tick runs during shutdown. Open positions are left on the
	// broker; the next start recovers the exit mode from them.
	close(o.stopChan)
	o.wg.Wait()
	o.engine.OnStop()

	o.printFinalSummary()
	o.saveJournal()

	if o.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := o.metricsSrv.Shutdown(ctx); err != nil {
			logs.Errorf("Failed to stop metrics server: %v", err)
		}
		cancel()
	}

	o.cancel()
	o.client.Stop()
	logs.Info("All services stopped successfully.")
}

func (o *Orchestrator) printFinalSummary() {
	s := o.accountant.GetSummary()
	logs.Info("--- Final Session Summary ---")
	logs.Infof("Realized profit: %s %s", s.RealizedProfit.StringFixed(2), o.cfg.Simulation.AccountCurrency)
	logs.Infof("Entry rounds: %d (failed: %d)", s.EntryRounds, s.FailedEntries)
	logs.Infof("Target exits: %d, break-even exits: %d, completed cycles: %d", s.TargetExits, s.BreakEvenExits, s.CompletedCycles)
	for _, c := range o.accountant.History() {
		logs.Infof("  %s %s: %d legs, %.1f pips, net %.2f (%s)", c.Label, c.Mode, c.Legs, c.TotalPips, c.NetProfit,
			time.Unix(c.Timestamp, 0).Format(time.RFC3339))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(o.cfg.Normal.GatewayTimeoutSeconds)*time.Second)
	defer cancel()
	for _, label := range []string{o.cfg.Strategy.BuyLabel, o.cfg.Strategy.SellLabel} {
		positions, err := o.client.FindOpenPositions(ctx, label)
		if err != nil {
			logs.Errorf("Failed to get %s positions: %v", label, err)
			continue
		}
		var pips, net float64
		for _, p := range positions {
			pips += p.Pips
			net += p.NetProfit
		}
		logs.Infof("%s: %d legs still open (%.1f pips, unrealized %.2f)", label, len(positions), pips, net)
	}
	logs.Info("-----------------------------")
}
