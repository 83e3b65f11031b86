package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T, name string) *Config {
	t.Helper()
	cfg, err := Load(filepath.Join("testdata", name))
	require.NoError(t, err)
	return cfg
}

func TestLoadTOML(t *testing.T) {
	cfg := loadFixture(t, "sandbox.toml")
	require.Equal(t, "127.0.0.1:7090", cfg.Daemon.Listen)
	require.Equal(t, 3*time.Second, cfg.Daemon.ShutdownTimeout)
	require.Equal(t, 5.0, cfg.Daemon.RateLimit.RequestsPerSecond)
	require.Equal(t, 10, cfg.Daemon.RateLimit.Burst)
	require.Equal(t, "sqlite", cfg.Daemon.Receipts.Driver)
	require.Equal(t, "BNB", cfg.Adapter.NativeSymbol)
	require.Len(t, cfg.Tokens, 2)
	require.Equal(t, "reverting", cfg.Tokens[0].Behaviour)
	require.Equal(t, "USDT", cfg.Tokens[0].Name)
	require.Len(t, cfg.Markets, 3)
	require.Equal(t, uint8(8), cfg.Markets[0].Decimals)
	require.True(t, cfg.Markets[2].IsNative())
	require.Equal(t, "2.5", cfg.Accounts[0].Tokens["FUSD"])
	require.Len(t, cfg.Pauses, 1)
}

func TestLoadYAML(t *testing.T) {
	cfg := loadFixture(t, "sandbox.yaml")
	require.Equal(t, "bolt", cfg.Daemon.Storage)
	require.Equal(t, 5*time.Second, cfg.Daemon.ShutdownTimeout)
	require.Equal(t, "no-return", cfg.Tokens[0].Behaviour)
	require.Equal(t, ":7090", cfg.Daemon.Listen)
}

func TestLoadRejectsUnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[adapter]\nadress = \"0x1\"\n"), 0o644))
	_, err := Load(path)
	require.ErrorContains(t, err, "unknown field")
}

func TestLoadMissingPath(t *testing.T) {
	_, err := Load("")
	require.Error(t, err)
	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ADAPTERD_LISTEN", "0.0.0.0:9999")
	t.Setenv("ADAPTERD_STORAGE", "leveldb")
	t.Setenv("ADAPTERD_RATE_LIMIT_BURST", "3")
	t.Setenv("ADAPTERD_AUTH_ENABLED", "true")
	t.Setenv("ADAPTERD_JWT_SECRET", "0123456789abcdef0123")
	cfg := loadFixture(t, "sandbox.toml")
	require.Equal(t, "0.0.0.0:9999", cfg.Daemon.Listen)
	require.Equal(t, "leveldb", cfg.Daemon.Storage)
	require.Equal(t, 3, cfg.Daemon.RateLimit.Burst)
	require.True(t, cfg.Daemon.Auth.Enabled)
	require.Equal(t, "0123456789abcdef0123", cfg.Daemon.Auth.Secret)
}

func TestEnvOverrideSecretEnv(t *testing.T) {
	cfg := &Config{}
	cfg.Daemon.Auth.SecretEnv = "MY_SECRET"
	env := map[string]string{"ADAPTERD_JWT_SECRET": "generic", "MY_SECRET": "specific"}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }
	require.NoError(t, applyEnv(cfg, lookup))
	require.Equal(t, "specific", cfg.Daemon.Auth.Secret)
}

func TestEnvOverrideRejectsGarbage(t *testing.T) {
	cfg := &Config{}
	lookup := func(k string) (string, bool) {
		if k == "ADAPTERD_RATE_LIMIT_RPS" {
			return "fast", true
		}
		return "", false
	}
	require.Error(t, applyEnv(cfg, lookup))
}

func TestAuthRequiresSecret(t *testing.T) {
	t.Setenv("ADAPTERD_AUTH_ENABLED", "1")
	_, err := Load(filepath.Join("testdata", "sandbox.toml"))
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	return loadFixture(t, "sandbox.toml")
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"zero adapter":          func(c *Config) { c.Adapter.Address = "0x0000000000000000000000000000000000000000" },
		"bad comptroller":       func(c *Config) { c.Adapter.Comptroller = "nope" },
		"duplicate address":     func(c *Config) { c.Tokens[1].Address = c.Tokens[0].Address },
		"unknown behaviour":     func(c *Config) { c.Tokens[0].Behaviour = "weird" },
		"unknown underlying":    func(c *Config) { c.Markets[0].Underlying = "DAI" },
		"collateral too high":   func(c *Config) { c.Markets[0].CollateralFactor = "0.95" },
		"reserve too high":      func(c *Config) { c.Markets[0].ReserveFactor = "1.5" },
		"zero price":            func(c *Config) { c.Markets[0].PriceUSD = "0" },
		"native market missing": func(c *Config) { c.Markets = c.Markets[:2] },
		"native mismatch":       func(c *Config) { c.Adapter.NativeMarket = c.Markets[0].Address },
		"account token":         func(c *Config) { c.Accounts[0].Tokens["DAI"] = "1" },
		"too precise":           func(c *Config) { c.Accounts[0].Tokens["FUSD"] = "0.0000001" },
		"pause market":          func(c *Config) { c.Pauses[0].Market = "vDAI" },
		"pause action":          func(c *Config) { c.Pauses[0].Action = "liquidate" },
		"storage":               func(c *Config) { c.Daemon.Storage = "redis" },
		"postgres dsn":          func(c *Config) { c.Daemon.Receipts.Driver = "postgres"; c.Daemon.Receipts.DSN = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig(t)
			mutate(cfg)
			require.ErrorIs(t, Validate(cfg), ErrInvalidConfig)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := validConfig(t)
	path := filepath.Join(t.TempDir(), "nested", "out.toml")
	require.NoError(t, Save(path, cfg))
	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.Markets, again.Markets)
	require.Equal(t, cfg.Daemon.ShutdownTimeout, again.Daemon.ShutdownTimeout)
}

func TestParseUnits(t *testing.T) {
	v, err := ParseUnits("12.5", 6)
	require.NoError(t, err)
	require.Equal(t, uint64(12_500_000), v.Uint64())

	v, err = ParseUnits("1", 18)
	require.NoError(t, err)
	require.Equal(t, "1000000000000000000", v.Dec())

	_, err = ParseUnits("-1", 18)
	require.ErrorIs(t, err, ErrInvalidUnits)
	_, err = ParseUnits("0.1234567", 6)
	require.ErrorIs(t, err, ErrInvalidUnits)
	_, err = ParseUnits("abc", 6)
	require.ErrorIs(t, err, ErrInvalidUnits)
}

func TestFormatUnits(t *testing.T) {
	require.Equal(t, "12.5", FormatUnits(uint256.NewInt(12_500_000), 6))
	require.Equal(t, "0", FormatUnits(nil, 18))
	require.Equal(t, "0.000001", FormatUnits(uint256.NewInt(1), 6))
}

func TestMantissas(t *testing.T) {
	cf, err := Mantissa("0.75")
	require.NoError(t, err)
	require.Equal(t, "750000000000000000", cf.String())

	price, err := PriceMantissa("300.5", 18)
	require.NoError(t, err)
	require.Equal(t, "300500000000000000000", price.String())

	price, err = PriceMantissa("1", 6)
	require.NoError(t, err)
	require.Equal(t, 0, price.Cmp(new(big.Int).Exp(big.NewInt(10), big.NewInt(30), nil)))
}

func TestExchangeRateDefault(t *testing.T) {
	cfg := validConfig(t)
	rate, err := cfg.ExchangeRate(cfg.Markets[0])
	require.NoError(t, err)
	require.Equal(t, "200000000000000000000000000", rate.String())

	rate, err = cfg.ExchangeRate(cfg.Markets[1])
	require.NoError(t, err)
	require.Equal(t, "200000000000000", rate.String())

	m := cfg.Markets[0]
	m.InitialExchangeRate = "12345"
	rate, err = cfg.ExchangeRate(m)
	require.NoError(t, err)
	require.Equal(t, int64(12345), rate.Int64())
}
