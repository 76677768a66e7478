package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load builds the effective configuration: defaults, then the TOML file at
// path (if it exists), then ARBOT_* environment variables. A .env file in the
// working directory is loaded first so local runs can keep secrets out of the
// shell history.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return Config{}, fmt.Errorf("decode config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays ARBOT_* environment variables onto cfg. Only scalar knobs
// are exposed this way; structured settings (instrument lists, triangular
// sets, balances) stay in the TOML file.
func applyEnv(cfg *Config) error {
	var err error

	setStr("ARBOT_MODE", &cfg.Mode)
	setStr("ARBOT_LOG_LEVEL", &cfg.LogLevel)

	setStr("ARBOT_OKX_WS_URL", &cfg.OKX.WsURL)
	setStr("ARBOT_BYBIT_WS_URL", &cfg.Bybit.WsURL)
	err = firstErr(err, setFloat64("ARBOT_OKX_TAKER_FEE", &cfg.OKX.TakerFee))
	err = firstErr(err, setFloat64("ARBOT_BYBIT_TAKER_FEE", &cfg.Bybit.TakerFee))

	err = firstErr(err, setFloat64("ARBOT_TRADE_SIZE_QUOTE", &cfg.Arbitrage.TradeSizeQuote))
	err = firstErr(err, setFloat64("ARBOT_MIN_PROFIT_THRESHOLD", &cfg.Arbitrage.MinProfitThreshold))
	err = firstErr(err, setDuration("ARBOT_MAX_SKEW", &cfg.Arbitrage.MaxSkew))
	err = firstErr(err, setBool("ARBOT_DYNAMIC_THRESHOLD", &cfg.Arbitrage.DynamicThreshold.Enabled))
	err = firstErr(err, setInt("ARBOT_VOLATILITY_WINDOW", &cfg.Arbitrage.DynamicThreshold.VolatilityWindow))
	err = firstErr(err, setFloat64("ARBOT_VOLATILITY_MULTIPLIER", &cfg.Arbitrage.DynamicThreshold.VolatilityMultiplier))

	err = firstErr(err, setBool("ARBOT_TRIANGULAR_ENABLED", &cfg.Triangular.Enabled))
	err = firstErr(err, setFloat64("ARBOT_TRIANGULAR_START_AMOUNT", &cfg.Triangular.StartAmount))

	err = firstErr(err, setFloat64("ARBOT_REBALANCE_THRESHOLD", &cfg.Rebalance.Threshold))
	err = firstErr(err, setFloat64("ARBOT_REBALANCE_FRACTION", &cfg.Rebalance.Fraction))
	err = firstErr(err, setDuration("ARBOT_HEARTBEAT_INTERVAL", &cfg.HeartbeatInterval))

	setStr("ARBOT_JSONL_PATH", &cfg.Recorder.JSONLPath)
	err = firstErr(err, setBool("ARBOT_REDIS_ENABLED", &cfg.Recorder.Redis.Enabled))
	setStr("ARBOT_REDIS_ADDR", &cfg.Recorder.Redis.Addr)
	setStr("ARBOT_REDIS_PASSWORD", &cfg.Recorder.Redis.Password)
	err = firstErr(err, setInt("ARBOT_REDIS_DB", &cfg.Recorder.Redis.DB))
	setStr("ARBOT_REDIS_STREAM", &cfg.Recorder.Redis.Stream)
	err = firstErr(err, setInt("ARBOT_REDIS_MAX_LEN", &cfg.Recorder.Redis.MaxLen))

	return err
}

func firstErr(a, b error) error {
	if a != nil {
		return a
	}
	return b
}

func setStr(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("env %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setFloat64(key string, dst *float64) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("env %s: %w", key, err)
	}
	*dst = f
	return nil
}

func setBool(key string, dst *bool) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("env %s: %w", key, err)
	}
	*dst = b
	return nil
}

func setDuration(key string, dst *duration) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("env %s: %w", key, err)
	}
	dst.Duration = d
	return nil
}
