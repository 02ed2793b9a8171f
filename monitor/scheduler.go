// monitor/scheduler.go
package monitor

import (
	"context"
	"errors"
	"time"

	"hedge_pair_go/config"
	"hedge_pair_go/logs"
	"hedge_pair_go/strategy"
)

// Handler is what the scheduler drives. Calls are never concurrent.
type Handler interface {
	OnTick(ctx context.Context) error
	OnBar(ctx context.Context) error
}

// Intervals controls the scheduler cadence. A zero Bar or Heartbeat disables that event.
type Intervals struct {
	Tick      time.Duration
	Bar       time.Duration
	Heartbeat time.Duration
}

// IntervalsFromConfig reads the cadence from normal_config.
func IntervalsFromConfig(cfg *config.NormalConfig) Intervals {
	return Intervals{
		Tick:      time.Duration(cfg.TickIntervalMillis) * time.Millisecond,
		Bar:       time.Duration(cfg.BarIntervalSeconds) * time.Second,
		Heartbeat: time.Duration(cfg.HeartbeatIntervalMinutes) * time.Minute,
	}
}

// Start runs the main loop until stopChan closes or ctx is cancelled. Tick and bar events share
// one goroutine, so the handler never sees overlapping calls.
func Start(ctx context.Context, h Handler, iv Intervals, stopChan <-chan struct{}) {
	ticker := time.NewTicker(iv.Tick)
	defer ticker.Stop()

	var barC <-chan time.Time
	if iv.Bar > 0 {
		barTicker := time.NewTicker(iv.Bar)
		defer barTicker.Stop()
		barC = barTicker.C
	}

	lastHeartbeat := time.Now()
	var ticks, failedTicks int

	for {
		select {
		case <-stopChan:
			logs.Info("[Monitor] Received stop signal, exiting.")
			return
		case <-ctx.Done():
			logs.Info("[Monitor] Context cancelled, exiting.")
			return
		case <-ticker.C:
			ticks++
			if err := h.OnTick(ctx); err != nil {
				failedTicks++
				if errors.Is(err, strategy.ErrNotRecovered) {
					logs.Warnf("[Monitor] Trading suspended until state is recovered: %v", err)
				} else {
					logs.Errorf("[Monitor-Error] Tick failed: %v", err)
				}
			}

			if iv.Heartbeat > 0 && time.Since(lastHeartbeat) >= iv.Heartbeat {
				logs.Infof("[Heartbeat] Monitor still running, %d ticks (%d with errors) since last heartbeat", ticks, failedTicks)
				ticks, failedTicks = 0, 0
				lastHeartbeat = time.Now()
			}
		case <-barC:
			if err := h.OnBar(ctx); err != nil {
				logs.Errorf("[Monitor-Error] Bar report failed: %v", err)
			}
		}
	}
}
