package config

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"venusadapter/native/venus"
)

var ErrInvalidConfig = errors.New("config: invalid")

var (
	maxCollateralFactor = big.NewInt(900_000_000_000_000_000)
	mantissaOne         = big.NewInt(1_000_000_000_000_000_000)
)

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

func address(field, value string) (common.Address, error) {
	trimmed := strings.TrimSpace(value)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, invalid("%s %q is not a hex address", field, value)
	}
	addr := common.HexToAddress(trimmed)
	if addr == (common.Address{}) {
		return common.Address{}, invalid("%s must not be the zero address", field)
	}
	return addr, nil
}

// Validate checks addresses, cross references and numeric fields.
func Validate(cfg *Config) error {
	if cfg == nil {
		return invalid("config required")
	}
	seen := make(map[common.Address]string)
	claim := func(field, value string) (common.Address, error) {
		addr, err := address(field, value)
		if err != nil {
			return addr, err
		}
		if prev, ok := seen[addr]; ok {
			return addr, invalid("%s reuses the address of %s", field, prev)
		}
		seen[addr] = field
		return addr, nil
	}

	if _, err := claim("adapter.address", cfg.Adapter.Address); err != nil {
		return err
	}
	if _, err := claim("adapter.comptroller", cfg.Adapter.Comptroller); err != nil {
		return err
	}

	symbols := make(map[string]uint8)
	for i, t := range cfg.Tokens {
		field := fmt.Sprintf("tokens[%d]", i)
		if strings.TrimSpace(t.Symbol) == "" {
			return invalid("%s.symbol required", field)
		}
		key := strings.ToLower(t.Symbol)
		if _, dup := symbols[key]; dup || key == NativeUnderlying {
			return invalid("%s.symbol %q is not unique", field, t.Symbol)
		}
		symbols[key] = t.Decimals
		if _, err := claim(field+".address", t.Address); err != nil {
			return err
		}
		switch strings.ToLower(t.Behaviour) {
		case "reverting", "standard", "returns-false", "no-return":
		default:
			return invalid("%s.behaviour %q unknown", field, t.Behaviour)
		}
	}

	nativeMarket, err := address("adapter.native_market", cfg.Adapter.NativeMarket)
	if err != nil {
		return err
	}
	nativeListed := false
	marketSymbols := make(map[string]struct{})
	for i, m := range cfg.Markets {
		field := fmt.Sprintf("markets[%d]", i)
		if strings.TrimSpace(m.Symbol) == "" {
			return invalid("%s.symbol required", field)
		}
		if _, dup := marketSymbols[strings.ToLower(m.Symbol)]; dup {
			return invalid("%s.symbol %q is not unique", field, m.Symbol)
		}
		marketSymbols[strings.ToLower(m.Symbol)] = struct{}{}
		addr, err := claim(field+".address", m.Address)
		if err != nil {
			return err
		}
		underlyingDecimals := uint8(18)
		if m.IsNative() {
			if addr != nativeMarket {
				return invalid("%s lends the native coin but adapter.native_market is %s", field, nativeMarket.Hex())
			}
			nativeListed = true
		} else {
			dec, ok := symbols[strings.ToLower(m.Underlying)]
			if !ok {
				return invalid("%s.underlying %q is not a configured token", field, m.Underlying)
			}
			underlyingDecimals = dec
			if addr == nativeMarket {
				return invalid("%s is the native market but lends %s", field, m.Underlying)
			}
		}
		cf, err := Mantissa(m.CollateralFactor)
		if err != nil {
			return invalid("%s.collateral_factor: %v", field, err)
		}
		if cf.Cmp(maxCollateralFactor) > 0 {
			return invalid("%s.collateral_factor above 0.9", field)
		}
		rf, err := Mantissa(m.ReserveFactor)
		if err != nil {
			return invalid("%s.reserve_factor: %v", field, err)
		}
		if rf.Cmp(mantissaOne) > 0 {
			return invalid("%s.reserve_factor above 1", field)
		}
		if _, err := PriceMantissa(m.PriceUSD, underlyingDecimals); err != nil {
			return invalid("%s.price_usd: %v", field, err)
		}
		for name, v := range map[string]string{"base_rate_per_year": m.BaseRatePerYear, "multiplier_per_year": m.MultiplierPerYear} {
			if _, err := Mantissa(v); err != nil {
				return invalid("%s.%s: %v", field, name, err)
			}
		}
		if m.InitialExchangeRate != "" {
			if _, err := parseExchangeRate(m.InitialExchangeRate); err != nil {
				return invalid("%s.initial_exchange_rate: %v", field, err)
			}
		}
	}
	if !nativeListed {
		return invalid("adapter.native_market %s has no market entry", nativeMarket.Hex())
	}

	for i, a := range cfg.Accounts {
		field := fmt.Sprintf("accounts[%d]", i)
		if _, err := address(field+".address", a.Address); err != nil {
			return err
		}
		if a.Native != "" {
			if _, err := ParseUnits(a.Native, 18); err != nil {
				return invalid("%s.native: %v", field, err)
			}
		}
		for sym, amount := range a.Tokens {
			dec, ok := symbols[strings.ToLower(sym)]
			if !ok {
				return invalid("%s.tokens: unknown token %q", field, sym)
			}
			if _, err := ParseUnits(amount, dec); err != nil {
				return invalid("%s.tokens.%s: %v", field, sym, err)
			}
		}
	}

	for i, p := range cfg.Pauses {
		if _, ok := cfg.MarketBySymbol(p.Market); !ok {
			return invalid("pauses[%d].market %q unknown", i, p.Market)
		}
		if _, err := venus.ParseAction(strings.TrimSpace(p.Action)); err != nil {
			return invalid("pauses[%d].action: %v", i, err)
		}
	}

	switch cfg.Daemon.Storage {
	case "memory", "leveldb", "bolt":
	default:
		return invalid("daemon.storage %q must be memory, leveldb or bolt", cfg.Daemon.Storage)
	}
	switch cfg.Daemon.Receipts.Driver {
	case "sqlite", "postgres":
	default:
		return invalid("daemon.receipts.driver %q must be sqlite or postgres", cfg.Daemon.Receipts.Driver)
	}
	if cfg.Daemon.Receipts.Driver == "postgres" && strings.TrimSpace(cfg.Daemon.Receipts.DSN) == "" {
		return invalid("daemon.receipts.dsn required for postgres")
	}
	if cfg.Daemon.Auth.Enabled && len(cfg.Daemon.Auth.Secret) < 16 {
		return invalid("daemon.auth.secret must be at least 16 bytes when auth is enabled")
	}
	if cfg.Daemon.Telemetry.SampleRatio > 1 {
		return invalid("daemon.telemetry.sample_ratio above 1")
	}
	return nil
}

// ExchangeRate returns the market's initial exchange rate mantissa, defaulting
// to 0.02 scaled by the underlying/market decimal gap.
func (c *Config) ExchangeRate(m Market) (*big.Int, error) {
	if m.InitialExchangeRate != "" {
		return parseExchangeRate(m.InitialExchangeRate)
	}
	underlyingDecimals := uint8(18)
	if !m.IsNative() {
		t, ok := c.TokenBySymbol(m.Underlying)
		if !ok {
			return nil, invalid("market %s underlying %q unknown", m.Symbol, m.Underlying)
		}
		underlyingDecimals = t.Decimals
	}
	// 0.02 underlying per vToken, expressed as 1e18 * 10^(uDec - vDec).
	exp := 16 + int64(underlyingDecimals) - int64(m.Decimals)
	if exp < 0 {
		return nil, invalid("market %s decimals exceed underlying", m.Symbol)
	}
	rate := new(big.Int).Exp(big.NewInt(10), big.NewInt(exp), nil)
	return rate.Mul(rate, big.NewInt(2)), nil
}

func parseExchangeRate(v string) (*big.Int, error) {
	rate, ok := new(big.Int).SetString(strings.TrimSpace(v), 10)
	if !ok || rate.Sign() <= 0 {
		return nil, fmt.Errorf("%w: exchange rate %q", ErrInvalidUnits, v)
	}
	return rate, nil
}
