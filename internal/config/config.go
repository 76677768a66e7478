// Package config defines the top-level configuration for the arbitrage bot
// and provides validation helpers. Validation is the fatal-at-startup gate:
// anything that would be a configuration fault mid-run (bad instrument
// strings, a broken triangular cycle) must be rejected here.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/quantfold/arbot/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by ARBOT_* environment variables.
type Config struct {
	Mode     string `toml:"mode"`
	LogLevel string `toml:"log_level"`

	OKX   VenueConfig `toml:"okx"`
	Bybit VenueConfig `toml:"bybit"`

	// Instruments lists the tracked pairs in canonical BASE/QUOTE form.
	Instruments []string `toml:"instruments"`

	Arbitrage  ArbitrageConfig  `toml:"arbitrage"`
	Triangular TriangularConfig `toml:"triangular"`
	Rebalance  RebalanceConfig  `toml:"rebalance"`
	Recorder   RecorderConfig   `toml:"recorder"`

	// HeartbeatInterval paces the periodic balance log and rebalance check.
	HeartbeatInterval duration `toml:"heartbeat_interval"`

	// Balances seeds the simulated ledger: venue -> currency -> amount.
	Balances map[string]map[string]float64 `toml:"balances"`
}

// VenueConfig holds per-venue stream and fee parameters.
type VenueConfig struct {
	WsURL    string  `toml:"ws_url"`
	TakerFee float64 `toml:"taker_fee"`
	// SymbolOverrides maps canonical instruments to venue symbols when the
	// venue's default formatting does not apply (e.g. "PEPE/USDT" ->
	// "1000PEPEUSDT").
	SymbolOverrides map[string]string `toml:"symbol_overrides"`
}

// ArbitrageConfig holds the two-venue detection parameters.
type ArbitrageConfig struct {
	// TradeSizeQuote is the target notional per trade in quote currency.
	TradeSizeQuote float64 `toml:"trade_size_quote"`
	// MinProfitThreshold is the static minimum profit fraction.
	MinProfitThreshold float64 `toml:"min_profit_threshold"`
	// MaxSkew bounds the receipt-time difference between the two snapshots
	// entering a match.
	MaxSkew duration `toml:"max_skew"`

	DynamicThreshold DynamicThresholdConfig `toml:"dynamic_threshold"`
}

// DynamicThresholdConfig raises the profit bar with observed volatility.
type DynamicThresholdConfig struct {
	Enabled bool `toml:"enabled"`
	// VolatilityWindow is the mid-price ring buffer size per instrument.
	VolatilityWindow int `toml:"volatility_window"`
	// VolatilityMultiplier converts return stddev into threshold uplift.
	VolatilityMultiplier float64 `toml:"volatility_multiplier"`
}

// TriangularConfig holds the single-venue three-leg detection parameters.
type TriangularConfig struct {
	Enabled bool `toml:"enabled"`
	// StartAmount is the cycle's input notional in each set's start currency.
	StartAmount float64 `toml:"start_amount"`
	Sets        []TriangularSetConfig `toml:"sets"`
}

// TriangularSetConfig is one configured cycle: exactly three instruments in
// traversal order plus the start currency.
type TriangularSetConfig struct {
	Legs  []string `toml:"legs"`
	Start string   `toml:"start"`
}

// RebalanceConfig holds the periodic inventory rebalancing policy.
type RebalanceConfig struct {
	// Threshold is the relative deviation from an even split that triggers
	// a transfer.
	Threshold float64 `toml:"threshold"`
	// Fraction of the excess moved per pass.
	Fraction float64 `toml:"fraction"`
}

// RecorderConfig holds the opportunity event sinks.
type RecorderConfig struct {
	// JSONLPath is the paper-trade log file; empty disables the file sink.
	JSONLPath string            `toml:"jsonl_path"`
	Redis     RedisStreamConfig `toml:"redis"`
}

// RedisStreamConfig holds the optional Redis stream sink parameters.
type RedisStreamConfig struct {
	Enabled  bool   `toml:"enabled"`
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Stream   string `toml:"stream"`
	MaxLen   int    `toml:"max_len"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "500ms", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Mode:     "live",
		LogLevel: "info",
		OKX: VenueConfig{
			WsURL:    "wss://ws.okx.com:8443/ws/v5/public",
			TakerFee: 0.001,
		},
		Bybit: VenueConfig{
			WsURL:    "wss://stream.bybit.com/v5/public/spot",
			TakerFee: 0.001,
		},
		Instruments: []string{"SOL/USDT", "MATIC/USDT"},
		Arbitrage: ArbitrageConfig{
			TradeSizeQuote:     100.0,
			MinProfitThreshold: 0.002,
			MaxSkew:            duration{500 * time.Millisecond},
			DynamicThreshold: DynamicThresholdConfig{
				Enabled:              true,
				VolatilityWindow:     200,
				VolatilityMultiplier: 5.0,
			},
		},
		Triangular: TriangularConfig{
			Enabled:     false,
			StartAmount: 100.0,
		},
		Rebalance: RebalanceConfig{
			Threshold: 0.20,
			Fraction:  0.50,
		},
		Recorder: RecorderConfig{
			JSONLPath: "paper_trades.jsonl",
			Redis: RedisStreamConfig{
				Enabled: false,
				Addr:    "localhost:6379",
				Stream:  "arbot:opportunities",
				MaxLen:  10000,
			},
		},
		HeartbeatInterval: duration{30 * time.Second},
		Balances: map[string]map[string]float64{
			"okx":   {"USDT": 1000.0},
			"bybit": {"USDT": 1000.0},
		},
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"live":    true,
	"monitor": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// TradingInstruments parses the configured instrument list into domain form.
func (c *Config) TradingInstruments() ([]domain.Instrument, error) {
	if len(c.Instruments) == 0 {
		return nil, fmt.Errorf("instruments: at least one pair is required")
	}
	out := make([]domain.Instrument, 0, len(c.Instruments))
	seen := make(map[domain.Instrument]bool, len(c.Instruments))
	for _, s := range c.Instruments {
		inst, err := domain.ParseInstrument(s)
		if err != nil {
			return nil, err
		}
		if seen[inst] {
			return nil, fmt.Errorf("instruments: duplicate entry %s", inst)
		}
		seen[inst] = true
		out = append(out, inst)
	}
	return out, nil
}

// TriangularSets parses and structurally validates the configured cycles.
func (c *Config) TriangularSets() ([]domain.TriangularSet, error) {
	out := make([]domain.TriangularSet, 0, len(c.Triangular.Sets))
	for i, sc := range c.Triangular.Sets {
		if len(sc.Legs) != 3 {
			return nil, fmt.Errorf("triangular set %d: want exactly 3 legs, got %d", i, len(sc.Legs))
		}
		var set domain.TriangularSet
		for j, leg := range sc.Legs {
			inst, err := domain.ParseInstrument(leg)
			if err != nil {
				return nil, fmt.Errorf("triangular set %d: %w", i, err)
			}
			set.Legs[j] = inst
		}
		set.Start = strings.ToUpper(strings.TrimSpace(sc.Start))
		if err := set.Validate(); err != nil {
			return nil, err
		}
		out = append(out, set)
	}
	return out, nil
}

// Validate checks Config for invalid or missing values and returns a combined
// error describing every problem found. It must pass before any goroutine
// starts; configuration faults are never discovered mid-run.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: live, monitor)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.OKX.WsURL == "" {
		errs = append(errs, "okx: ws_url must not be empty")
	}
	if c.Bybit.WsURL == "" {
		errs = append(errs, "bybit: ws_url must not be empty")
	}
	for venue, fee := range map[string]float64{"okx": c.OKX.TakerFee, "bybit": c.Bybit.TakerFee} {
		if fee < 0 || fee >= 0.1 {
			errs = append(errs, fmt.Sprintf("%s: taker_fee %g out of range [0, 0.1)", venue, fee))
		}
	}

	if _, err := c.TradingInstruments(); err != nil {
		errs = append(errs, err.Error())
	}

	if c.Arbitrage.TradeSizeQuote <= 0 {
		errs = append(errs, "arbitrage: trade_size_quote must be > 0")
	}
	if c.Arbitrage.MinProfitThreshold < 0 {
		errs = append(errs, "arbitrage: min_profit_threshold must be >= 0")
	}
	if c.Arbitrage.MaxSkew.Duration <= 0 {
		errs = append(errs, "arbitrage: max_skew must be > 0")
	}
	if c.Arbitrage.DynamicThreshold.Enabled {
		if c.Arbitrage.DynamicThreshold.VolatilityWindow < 2 {
			errs = append(errs, "arbitrage: dynamic_threshold.volatility_window must be >= 2")
		}
		if c.Arbitrage.DynamicThreshold.VolatilityMultiplier < 0 {
			errs = append(errs, "arbitrage: dynamic_threshold.volatility_multiplier must be >= 0")
		}
	}

	if c.Triangular.Enabled {
		if c.Triangular.StartAmount <= 0 {
			errs = append(errs, "triangular: start_amount must be > 0 when enabled")
		}
		if len(c.Triangular.Sets) == 0 {
			errs = append(errs, "triangular: at least one set is required when enabled")
		}
	}
	if _, err := c.TriangularSets(); err != nil {
		errs = append(errs, err.Error())
	}

	if c.Rebalance.Threshold <= 0 {
		errs = append(errs, "rebalance: threshold must be > 0")
	}
	if c.Rebalance.Fraction <= 0 || c.Rebalance.Fraction > 1 {
		errs = append(errs, "rebalance: fraction must be in (0, 1]")
	}
	if c.HeartbeatInterval.Duration <= 0 {
		errs = append(errs, "heartbeat_interval must be > 0")
	}

	for venue, assets := range c.Balances {
		for currency, amount := range assets {
			if amount < 0 {
				errs = append(errs, fmt.Sprintf("balances: %s %s must be >= 0", venue, currency))
			}
		}
	}

	if c.Recorder.Redis.Enabled {
		if c.Recorder.Redis.Addr == "" {
			errs = append(errs, "recorder: redis.addr must not be empty when enabled")
		}
		if c.Recorder.Redis.Stream == "" {
			errs = append(errs, "recorder: redis.stream must not be empty when enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
