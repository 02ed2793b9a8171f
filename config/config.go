// config/config.go
package config

import (
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// InstrumentConfig holds the settings for one traded currency pair.
type InstrumentConfig struct {
	Symbol        string  `yaml:"symbol"`
	MaxSpreadPips float64 `yaml:"max_spread_pips"`
	PipSize       float64 `yaml:"pip_size"` // only used by the simulator
}

// StrategyConfig holds the hedged-pair strategy parameters.
type StrategyConfig struct {
	Volume           int64   `yaml:"volume"`
	TakeProfitInPips float64 `yaml:"take_profit_in_pips"`
	BuyLabel         string  `yaml:"buy_label"`
	SellLabel        string  `yaml:"sell_label"`
}

// SimulationConfig configures the in-memory broker used when running without a live gateway.
type SimulationConfig struct {
	AccountCurrency    string             `yaml:"account_currency"`
	InitialPrices      map[string]float64 `yaml:"initial_prices"`
	SpreadPips         map[string]float64 `yaml:"spread_pips"`
	VolatilityPips     float64            `yaml:"volatility_pips"`
	StepIntervalMillis int                `yaml:"step_interval_millis"`
	CommissionPerLeg   float64            `yaml:"commission_per_leg"`
	Seed               int64              `yaml:"seed"`
}

// LogConfig holds the configuration for logging.
type LogConfig struct {
	LogLevel   string `yaml:"log_level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
	FileFormat string `yaml:"file_format"` // text or json
}

// NormalConfig holds all general, non-strategy-specific configuration.
type NormalConfig struct {
	TickIntervalMillis       int    `yaml:"tick_interval_millis"`
	BarIntervalSeconds       int    `yaml:"bar_interval_seconds"`
	GatewayTimeoutSeconds    int    `yaml:"gateway_timeout_seconds"`
	MaxQuoteAgeSeconds       int    `yaml:"max_quote_age_seconds"`
	HeartbeatIntervalMinutes int    `yaml:"heartbeat_interval_minutes"`
	LogDirectory             string `yaml:"log_directory"`
	StateDirectory           string `yaml:"state_directory"`
	MetricsAddr              string `yaml:"metrics_addr"`
}

// Config is the top-level configuration structure.
type Config struct {
	Instruments []InstrumentConfig `yaml:"instruments"`
	Strategy    *StrategyConfig    `yaml:"strategy"`
	Simulation  *SimulationConfig  `yaml:"simulation"`
	Normal      *NormalConfig      `yaml:"normal_config"`
	Logs        *LogConfig         `yaml:"logs"`
}

// NewConfig returns a Config carrying the defaults of the original EURUSD/USDCHF setup.
// Everything can be overridden from config.yaml.
func NewConfig() *Config {
	return &Config{
		Instruments: []InstrumentConfig{
			{Symbol: "EURUSD", MaxSpreadPips: 0.4, PipSize: 0.0001},
			{Symbol: "USDCHF", MaxSpreadPips: 0.7, PipSize: 0.0001},
		},
		Strategy: &StrategyConfig{
			Volume:           130000,
			TakeProfitInPips: 45,
			BuyLabel:         "HMSTA-BUY",
			SellLabel:        "HMSTA-SELL",
		},
		Simulation: &SimulationConfig{
			AccountCurrency:    "USD",
			InitialPrices:      map[string]float64{"EURUSD": 1.0850, "USDCHF": 0.8950},
			SpreadPips:         map[string]float64{"EURUSD": 0.3, "USDCHF": 0.5},
			VolatilityPips:     0.8,
			StepIntervalMillis: 250,
		},
		Normal: &NormalConfig{
			TickIntervalMillis:       500,
			BarIntervalSeconds:       60,
			GatewayTimeoutSeconds:    10,
			MaxQuoteAgeSeconds:       30,
			HeartbeatIntervalMinutes: 10,
			LogDirectory:             "logs",
			StateDirectory:           "state",
		},
		Logs: &LogConfig{
			LogLevel:   "info",
			FileFormat: "text",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}
}

// LoadConfig loads configuration from a given path, applies defaults, and validates it.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s, program cannot run without a config file", path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse unmarshals YAML on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := NewConfig()

	// Nested blocks are decoded separately so a partially specified block keeps its defaults.
	var rawCfg struct {
		Instruments []InstrumentConfig `yaml:"instruments"`
		Strategy    yaml.MapSlice      `yaml:"strategy"`
		Simulation  yaml.MapSlice      `yaml:"simulation"`
		Normal      yaml.MapSlice      `yaml:"normal_config"`
		Logs        yaml.MapSlice      `yaml:"logs"`
	}
	if err := yaml.Unmarshal(data, &rawCfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	if len(rawCfg.Instruments) > 0 {
		cfg.Instruments = rawCfg.Instruments
	}

	blocks := []struct {
		name   string
		raw    yaml.MapSlice
		target interface{}
	}{
		{"strategy", rawCfg.Strategy, cfg.Strategy},
		{"simulation", rawCfg.Simulation, cfg.Simulation},
		{"normal_config", rawCfg.Normal, cfg.Normal},
		{"logs", rawCfg.Logs, cfg.Logs},
	}
	for _, b := range blocks {
		if len(b.raw) == 0 {
			continue
		}
		blockBytes, err := yaml.Marshal(b.raw)
		if err != nil {
			return nil, fmt.Errorf("failed to re-marshal %s config: %w", b.name, err)
		}
		if err := yaml.Unmarshal(blockBytes, b.target); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s config: %w", b.name, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the logical consistency and completeness of the entire configuration.
func (c *Config) Validate() error {
	if len(c.Instruments) != 2 {
		return fmt.Errorf("config error: exactly two instruments must be configured, got %d", len(c.Instruments))
	}
	seen := make(map[string]bool, len(c.Instruments))
	for i, inst := range c.Instruments {
		if inst.Symbol == "" {
			return fmt.Errorf("critical config missing: 'instruments[%d].symbol' must be specified", i)
		}
		if seen[inst.Symbol] {
			return fmt.Errorf("config error: instrument %s is configured twice", inst.Symbol)
		}
		seen[inst.Symbol] = true
		if inst.MaxSpreadPips < 0 {
			return fmt.Errorf("config error: 'instruments[%d].max_spread_pips' cannot be negative", i)
		}
	}

	if c.Strategy == nil {
		return fmt.Errorf("critical config missing: 'strategy' configuration block must be provided")
	}
	if c.Strategy.Volume < 1000 {
		return fmt.Errorf("config error: 'strategy.volume' must be at least 1000, got %d", c.Strategy.Volume)
	}
	if c.Strategy.TakeProfitInPips < 0.01 {
		return fmt.Errorf("config error: 'strategy.take_profit_in_pips' must be at least 0.01, got %v", c.Strategy.TakeProfitInPips)
	}
	if !onStep(c.Strategy.TakeProfitInPips, 0.01) {
		return fmt.Errorf("config error: 'strategy.take_profit_in_pips' must be a multiple of 0.01, got %v", c.Strategy.TakeProfitInPips)
	}
	if c.Strategy.BuyLabel == "" || c.Strategy.SellLabel == "" {
		return fmt.Errorf("critical config missing: 'strategy.buy_label' and 'strategy.sell_label' must be specified")
	}
	if c.Strategy.BuyLabel == c.Strategy.SellLabel {
		return fmt.Errorf("config error: buy_label and sell_label must differ")
	}

	if c.Normal == nil {
		return fmt.Errorf("critical config missing: 'normal_config' configuration block must be provided")
	}
	if c.Normal.TickIntervalMillis <= 0 {
		return fmt.Errorf("critical config missing: 'normal_config.tick_interval_millis' must be positive")
	}
	if c.Normal.BarIntervalSeconds <= 0 {
		return fmt.Errorf("critical config missing: 'normal_config.bar_interval_seconds' must be positive")
	}
	if c.Normal.GatewayTimeoutSeconds <= 0 {
		return fmt.Errorf("critical config missing: 'normal_config.gateway_timeout_seconds' must be positive")
	}
	if c.Normal.MaxQuoteAgeSeconds < 0 {
		return fmt.Errorf("config error: 'normal_config.max_quote_age_seconds' cannot be negative")
	}
	if c.Normal.HeartbeatIntervalMinutes <= 0 {
		return fmt.Errorf("critical config missing: 'normal_config.heartbeat_interval_minutes' must be positive")
	}
	if c.Normal.LogDirectory == "" {
		return fmt.Errorf("critical config missing: 'normal_config.log_directory' must be specified (e.g., 'logs')")
	}
	if c.Normal.StateDirectory == "" {
		return fmt.Errorf("critical config missing: 'normal_config.state_directory' must be specified (e.g., 'state')")
	}

	if c.Logs == nil {
		return fmt.Errorf("critical config missing: 'logs' configuration block must be provided")
	}
	if c.Logs.LogLevel == "" {
		return fmt.Errorf("critical config missing: 'logs.log_level' must be specified (e.g., 'info', 'debug', 'warn', 'error')")
	}
	if c.Logs.FileFormat != "text" && c.Logs.FileFormat != "json" {
		return fmt.Errorf("config error: 'logs.file_format' must be 'text' or 'json', got %q", c.Logs.FileFormat)
	}
	if c.Logs.MaxSizeMB <= 0 || c.Logs.MaxBackups <= 0 || c.Logs.MaxAgeDays <= 0 {
		return fmt.Errorf("config error: 'logs.max_size_mb', 'logs.max_backups' and 'logs.max_age_days' must be positive")
	}

	if c.Simulation != nil {
		for _, inst := range c.Instruments {
			if c.Simulation.InitialPrices[inst.Symbol] <= 0 {
				return fmt.Errorf("critical config missing: 'simulation.initial_prices.%s' must be positive", inst.Symbol)
			}
			if inst.PipSize <= 0 {
				return fmt.Errorf("critical config missing: 'instruments.%s.pip_size' must be positive for simulation", inst.Symbol)
			}
		}
		if c.Simulation.StepIntervalMillis <= 0 {
			return fmt.Errorf("critical config missing: 'simulation.step_interval_millis' must be positive")
		}
		if len(c.Simulation.AccountCurrency) != 3 {
			return fmt.Errorf("config error: 'simulation.account_currency' must be a 3-letter currency code")
		}
	}

	return nil
}

// SpreadCeilings returns the per-symbol spread ceilings in pips.
func (c *Config) SpreadCeilings() map[string]float64 {
	ceilings := make(map[string]float64, len(c.Instruments))
	for _, inst := range c.Instruments {
		ceilings[inst.Symbol] = inst.MaxSpreadPips
	}
	return ceilings
}

// Symbols returns the traded symbols in configuration order.
func (c *Config) Symbols() []string {
	symbols := make([]string, 0, len(c.Instruments))
	for _, inst := range c.Instruments {
		symbols = append(symbols, inst.Symbol)
	}
	return symbols
}

func onStep(value, step float64) bool {
	n := value / step
	return math.Abs(n-math.Round(n)) < 1e-6
}

// EnvConfig carries overrides read from the process environment (and .env).
type EnvConfig struct {
	LogLevel       string
	MetricsAddr    string
	StateDirectory string
}

func LoadEnvConfig() *EnvConfig {
	return &EnvConfig{
		LogLevel:       strings.TrimSpace(os.Getenv("HMS_LOG_LEVEL")),
		MetricsAddr:    strings.TrimSpace(os.Getenv("HMS_METRICS_ADDR")),
		StateDirectory: strings.TrimSpace(os.Getenv("HMS_STATE_DIRECTORY")),
	}
}

// ApplyEnv overrides file settings with any non-empty environment values.
func (c *Config) ApplyEnv(env *EnvConfig) {
	if env == nil {
		return
	}
	if env.LogLevel != "" {
		c.Logs.LogLevel = env.LogLevel
	}
	if env.MetricsAddr != "" {
		c.Normal.MetricsAddr = env.MetricsAddr
	}
	if env.StateDirectory != "" {
		c.Normal.StateDirectory = env.StateDirectory
	}
}
