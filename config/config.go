package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// NativeUnderlying is the Market.Underlying value for the native market.
const NativeUnderlying = "native"

const envPrefix = "ADAPTERD_"

// Load reads a sandbox definition. Files ending in .yaml or .yml are decoded
// as YAML, everything else as TOML. Defaults and ADAPTERD_* environment
// overrides are applied before validation.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path required")
	}
	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()
		dec := yaml.NewDecoder(file)
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	default:
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config file %s: unknown field %s", path, undecoded[0].String())
		}
	}
	ApplyDefaults(cfg)
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as TOML, creating parent directories as needed.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// ApplyDefaults fills unset daemon, token and market fields.
func ApplyDefaults(cfg *Config) {
	d := &cfg.Daemon
	if d.Listen == "" {
		d.Listen = ":7090"
	}
	if d.DataDir == "" {
		d.DataDir = "./adapterd-data"
	}
	if d.Storage == "" {
		d.Storage = "memory"
	}
	if d.Environment == "" {
		d.Environment = "dev"
	}
	if d.ShutdownTimeout <= 0 {
		d.ShutdownTimeout = 10 * time.Second
	}
	if d.RateLimit.RequestsPerSecond <= 0 {
		d.RateLimit.RequestsPerSecond = 20
	}
	if d.RateLimit.Burst <= 0 {
		d.RateLimit.Burst = 40
	}
	if d.Auth.Issuer == "" {
		d.Auth.Issuer = "adapterd"
	}
	if d.Receipts.Driver == "" {
		d.Receipts.Driver = "sqlite"
	}
	if d.Receipts.DSN == "" && d.Receipts.Driver == "sqlite" {
		d.Receipts.DSN = "file::memory:?cache=shared"
	}
	if d.Telemetry.SampleRatio <= 0 {
		d.Telemetry.SampleRatio = 1
	}
	if cfg.Adapter.NativeSymbol == "" {
		cfg.Adapter.NativeSymbol = "BNB"
	}
	for i := range cfg.Tokens {
		if cfg.Tokens[i].Behaviour == "" {
			cfg.Tokens[i].Behaviour = "reverting"
		}
		if cfg.Tokens[i].Name == "" {
			cfg.Tokens[i].Name = cfg.Tokens[i].Symbol
		}
	}
	for i := range cfg.Markets {
		m := &cfg.Markets[i]
		if m.Decimals == 0 {
			m.Decimals = 8
		}
		if m.CollateralFactor == "" {
			m.CollateralFactor = "0"
		}
		if m.ReserveFactor == "" {
			m.ReserveFactor = "0"
		}
		if m.BaseRatePerYear == "" {
			m.BaseRatePerYear = "0"
		}
		if m.MultiplierPerYear == "" {
			m.MultiplierPerYear = "0"
		}
	}
}

type lookupFunc func(string) (string, bool)

// ApplyEnv overlays ADAPTERD_* variables from the process environment.
func ApplyEnv(cfg *Config) error {
	return applyEnv(cfg, os.LookupEnv)
}

func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(envPrefix + key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("LISTEN", &cfg.Daemon.Listen)
	str("DATA_DIR", &cfg.Daemon.DataDir)
	str("STORAGE", &cfg.Daemon.Storage)
	str("ENV", &cfg.Daemon.Environment)
	str("RECEIPTS_DRIVER", &cfg.Daemon.Receipts.Driver)
	str("RECEIPTS_DSN", &cfg.Daemon.Receipts.DSN)
	str("OTLP_ENDPOINT", &cfg.Daemon.Telemetry.OTLPEndpoint)
	str("LOG_FILE", &cfg.Daemon.Log.File)
	str("JWT_SECRET", &cfg.Daemon.Auth.Secret)

	if v, ok := lookup(envPrefix + "AUTH_ENABLED"); ok && strings.TrimSpace(v) != "" {
		enabled, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sAUTH_ENABLED: %w", envPrefix, err)
		}
		cfg.Daemon.Auth.Enabled = enabled
	}
	if v, ok := lookup(envPrefix + "RATE_LIMIT_RPS"); ok && strings.TrimSpace(v) != "" {
		rps, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || rps <= 0 {
			return fmt.Errorf("%sRATE_LIMIT_RPS must be a positive number", envPrefix)
		}
		cfg.Daemon.RateLimit.RequestsPerSecond = rps
	}
	if v, ok := lookup(envPrefix + "RATE_LIMIT_BURST"); ok && strings.TrimSpace(v) != "" {
		burst, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || burst <= 0 {
			return fmt.Errorf("%sRATE_LIMIT_BURST must be a positive integer", envPrefix)
		}
		cfg.Daemon.RateLimit.Burst = burst
	}
	// A named secret variable wins over the generic one.
	if name := strings.TrimSpace(cfg.Daemon.Auth.SecretEnv); name != "" {
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			cfg.Daemon.Auth.Secret = strings.TrimSpace(v)
		}
	}
	return nil
}

// TokenBySymbol finds a configured token, case-insensitively.
func (c *Config) TokenBySymbol(symbol string) (Token, bool) {
	for _, t := range c.Tokens {
		if strings.EqualFold(t.Symbol, symbol) {
			return t, true
		}
	}
	return Token{}, false
}

// MarketBySymbol finds a configured market, case-insensitively.
func (c *Config) MarketBySymbol(symbol string) (Market, bool) {
	for _, m := range c.Markets {
		if strings.EqualFold(m.Symbol, symbol) {
			return m, true
		}
	}
	return Market{}, false
}

// IsNative reports whether the market lends the chain's native coin.
func (m Market) IsNative() bool {
	return strings.EqualFold(strings.TrimSpace(m.Underlying), NativeUnderlying)
}
