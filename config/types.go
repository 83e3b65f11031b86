package config

import "time"

// Config describes one sandbox deployment: the adapter's own addresses, the
// token and market world it runs against, and the daemon that serves it.
type Config struct {
	Adapter  Adapter   `toml:"adapter" yaml:"adapter"`
	Daemon   Daemon    `toml:"daemon" yaml:"daemon"`
	Tokens   []Token   `toml:"tokens" yaml:"tokens"`
	Markets  []Market  `toml:"markets" yaml:"markets"`
	Accounts []Account `toml:"accounts" yaml:"accounts"`
	Pauses   []Pause   `toml:"pauses" yaml:"pauses"`
}

// Adapter holds the immutable construction parameters of the adapter.
type Adapter struct {
	Address      string `toml:"address" yaml:"address"`
	Comptroller  string `toml:"comptroller" yaml:"comptroller"`
	NativeMarket string `toml:"native_market" yaml:"native_market"`
	// NativeSymbol labels the chain's native coin in events and receipts.
	NativeSymbol string `toml:"native_symbol" yaml:"native_symbol"`
	// Paused starts the adapter with every operation blocked.
	Paused bool `toml:"paused" yaml:"paused"`
}

// Token is an underlying BEP20 contract.
type Token struct {
	Symbol   string `toml:"symbol" yaml:"symbol"`
	Name     string `toml:"name" yaml:"name"`
	Address  string `toml:"address" yaml:"address"`
	Decimals uint8  `toml:"decimals" yaml:"decimals"`
	// Behaviour is "reverting", "returns-false" or "no-return".
	Behaviour string `toml:"behaviour" yaml:"behaviour"`
}

// Market is a vToken listing. Rates and factors are human-readable decimals
// ("0.75", "0.02"); Underlying names a token symbol or NativeUnderlying.
type Market struct {
	Symbol              string `toml:"symbol" yaml:"symbol"`
	Address             string `toml:"address" yaml:"address"`
	Underlying          string `toml:"underlying" yaml:"underlying"`
	Decimals            uint8  `toml:"decimals" yaml:"decimals"`
	CollateralFactor    string `toml:"collateral_factor" yaml:"collateral_factor"`
	ReserveFactor       string `toml:"reserve_factor" yaml:"reserve_factor"`
	PriceUSD            string `toml:"price_usd" yaml:"price_usd"`
	BaseRatePerYear     string `toml:"base_rate_per_year" yaml:"base_rate_per_year"`
	MultiplierPerYear   string `toml:"multiplier_per_year" yaml:"multiplier_per_year"`
	InitialExchangeRate string `toml:"initial_exchange_rate" yaml:"initial_exchange_rate"`
}

// Account is funded once when the sandbox ledger is first created. Balances
// are whole units of the named asset.
type Account struct {
	Label   string            `toml:"label" yaml:"label"`
	Address string            `toml:"address" yaml:"address"`
	Native  string            `toml:"native" yaml:"native"`
	Tokens  map[string]string `toml:"tokens" yaml:"tokens"`
}

// Pause blocks one comptroller action on one market.
type Pause struct {
	Market string `toml:"market" yaml:"market"`
	Action string `toml:"action" yaml:"action"`
}

// Daemon configures adapterd.
type Daemon struct {
	Listen          string        `toml:"listen" yaml:"listen"`
	DataDir         string        `toml:"data_dir" yaml:"data_dir"`
	Storage         string        `toml:"storage" yaml:"storage"`
	Environment     string        `toml:"environment" yaml:"environment"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" yaml:"shutdown_timeout"`
	RateLimit       RateLimit     `toml:"rate_limit" yaml:"rate_limit"`
	Auth            Auth          `toml:"auth" yaml:"auth"`
	Receipts        Receipts      `toml:"receipts" yaml:"receipts"`
	Telemetry       Telemetry     `toml:"telemetry" yaml:"telemetry"`
	Log             Log           `toml:"log" yaml:"log"`
}

// RateLimit is a per-client token bucket.
type RateLimit struct {
	RequestsPerSecond float64 `toml:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `toml:"burst" yaml:"burst"`
}

// Auth enables HS256 bearer tokens whose subject is the caller address.
type Auth struct {
	Enabled   bool   `toml:"enabled" yaml:"enabled"`
	Issuer    string `toml:"issuer" yaml:"issuer"`
	Secret    string `toml:"secret" yaml:"secret"`
	SecretEnv string `toml:"secret_env" yaml:"secret_env"`
}

// Receipts selects where operation receipts are recorded.
type Receipts struct {
	Driver string `toml:"driver" yaml:"driver"`
	DSN    string `toml:"dsn" yaml:"dsn"`
}

// Telemetry configures metrics and tracing export.
type Telemetry struct {
	Metrics      bool    `toml:"metrics" yaml:"metrics"`
	OTLPEndpoint string  `toml:"otlp_endpoint" yaml:"otlp_endpoint"`
	Insecure     bool    `toml:"insecure" yaml:"insecure"`
	SampleRatio  float64 `toml:"sample_ratio" yaml:"sample_ratio"`
}

// Log configures an optional rotating log file next to stdout.
type Log struct {
	File       string `toml:"file" yaml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" yaml:"max_age_days"`
}
