package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigIsValid(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, map[string]float64{"EURUSD": 0.4, "USDCHF": 0.7}, cfg.SpreadCeilings())
	assert.Equal(t, []string{"EURUSD", "USDCHF"}, cfg.Symbols())
}

func TestParseKeepsDefaultsForMissingFields(t *testing.T) {
	cfg, err := Parse([]byte(`
strategy:
  take_profit_in_pips: 30.5
normal_config:
  tick_interval_millis: 100
`))
	require.NoError(t, err)

	assert.Equal(t, 30.5, cfg.Strategy.TakeProfitInPips)
	assert.Equal(t, int64(130000), cfg.Strategy.Volume)
	assert.Equal(t, "HMSTA-BUY", cfg.Strategy.BuyLabel)
	assert.Equal(t, 100, cfg.Normal.TickIntervalMillis)
	assert.Equal(t, 60, cfg.Normal.BarIntervalSeconds)
	assert.Equal(t, "info", cfg.Logs.LogLevel)
}

func TestParseRejectsInvalidStrategy(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"volume below minimum", "strategy:\n  volume: 999\n"},
		{"target below minimum", "strategy:\n  take_profit_in_pips: 0.001\n"},
		{"target off step", "strategy:\n  take_profit_in_pips: 45.005\n"},
		{"same labels", "strategy:\n  buy_label: X\n  sell_label: X\n"},
		{"unknown log file format", "logs:\n  file_format: xml\n"},
		{"single instrument", "instruments:\n  - symbol: EURUSD\n    max_spread_pips: 0.4\n    pip_size: 0.0001\n"},
		{"negative ceiling", "instruments:\n  - symbol: EURUSD\n    max_spread_pips: -1\n    pip_size: 0.0001\n  - symbol: USDCHF\n    max_spread_pips: 0.7\n    pip_size: 0.0001\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
instruments:
  - symbol: EURUSD
    max_spread_pips: 0.5
    pip_size: 0.0001
  - symbol: GBPUSD
    max_spread_pips: 0.9
    pip_size: 0.0001
simulation:
  initial_prices:
    GBPUSD: 1.27
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"EURUSD": 0.5, "GBPUSD": 0.9}, cfg.SpreadCeilings())
	assert.Equal(t, 1.27, cfg.Simulation.InitialPrices["GBPUSD"])
	assert.Equal(t, 1.0850, cfg.Simulation.InitialPrices["EURUSD"])
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := NewConfig()
	cfg.ApplyEnv(&EnvConfig{LogLevel: "debug", MetricsAddr: ":9100"})
	assert.Equal(t, "debug", cfg.Logs.LogLevel)
	assert.Equal(t, ":9100", cfg.Normal.MetricsAddr)
	assert.Equal(t, "state", cfg.Normal.StateDirectory)
}
