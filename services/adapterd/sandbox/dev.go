package sandbox

import "venusadapter/config"

// Well-known BNB Chain mainnet addresses reused by the development world.
const (
	DevAdapter     = "0x000000000000000000000000000000000000Ada0"
	DevComptroller = "0xfD36E2c2a6789Db23113685031d7F16329158384"
	DevUSDT        = "0x55d398326f99059fF775485246999027B3197955"
	DevUSDC        = "0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d"
	DevFUSD        = "0x00000000000000000000000000000000000F05D0"
	DevNUSD        = "0x00000000000000000000000000000000000005D0"
	DevVUSDT       = "0xfD5840Cd36d94D7229439859C0112a4185BC0255"
	DevVUSDC       = "0xecA88125a5ADbe82614ffC12D0DB554E2e2867C8"
	DevVBNB        = "0xA07c5b74C9B40447a954e1466938b865b6BBea36"
	DevVFUSD       = "0x000000000000000000000000000000000000F0F0"
	DevVNUSD       = "0x000000000000000000000000000000000000E0E0"
	DevAlice       = "0x00000000000000000000000000000000000A11CE"
	DevBob         = "0x0000000000000000000000000000000000000B0B"
)

// DevConfig is a self-contained world with a standard token, a token that
// returns false instead of reverting and one without return values, each
// listed next to the native market. Alice and Bob start funded.
func DevConfig() *config.Config {
	cfg := &config.Config{
		Adapter: config.Adapter{
			Address:      DevAdapter,
			Comptroller:  DevComptroller,
			NativeMarket: DevVBNB,
			NativeSymbol: "BNB",
		},
		Tokens: []config.Token{
			{Symbol: "USDT", Name: "Tether USD", Address: DevUSDT, Decimals: 18, Behaviour: "reverting"},
			{Symbol: "USDC", Name: "USD Coin", Address: DevUSDC, Decimals: 18, Behaviour: "reverting"},
			{Symbol: "FUSD", Name: "False USD", Address: DevFUSD, Decimals: 6, Behaviour: "returns-false"},
			{Symbol: "NUSD", Name: "Silent USD", Address: DevNUSD, Decimals: 18, Behaviour: "no-return"},
		},
		Markets: []config.Market{
			devMarket("vUSDT", DevVUSDT, "USDT", "0.8", "1"),
			devMarket("vUSDC", DevVUSDC, "USDC", "0.8", "1"),
			devMarket("vBNB", DevVBNB, config.NativeUnderlying, "0.75", "300"),
			devMarket("vFUSD", DevVFUSD, "FUSD", "0.5", "1"),
			devMarket("vNUSD", DevVNUSD, "NUSD", "0.5", "1"),
		},
		Accounts: []config.Account{
			{Label: "alice", Address: DevAlice, Native: "1000", Tokens: map[string]string{"USDT": "10000", "FUSD": "1000", "NUSD": "1000"}},
			{Label: "bob", Address: DevBob, Native: "500", Tokens: map[string]string{"USDC": "50000", "USDT": "50000", "FUSD": "50000", "NUSD": "50000"}},
		},
	}
	config.ApplyDefaults(cfg)
	return cfg
}

func devMarket(symbol, addr, underlying, cf, price string) config.Market {
	return config.Market{
		Symbol:            symbol,
		Address:           addr,
		Underlying:        underlying,
		Decimals:          8,
		CollateralFactor:  cf,
		ReserveFactor:     "0.1",
		PriceUSD:          price,
		BaseRatePerYear:   "0.02",
		MultiplierPerYear: "0.2",
	}
}
