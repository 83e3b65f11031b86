package venus

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"venusadapter/core/state"
)

// Action identifies a pausable market action.
type Action uint8

const (
	ActionMint Action = iota
	ActionRedeem
	ActionBorrow
	ActionRepay
	ActionTransfer
	ActionEnterMarket
)

func (a Action) String() string {
	switch a {
	case ActionMint:
		return "mint"
	case ActionRedeem:
		return "redeem"
	case ActionBorrow:
		return "borrow"
	case ActionRepay:
		return "repay"
	case ActionTransfer:
		return "transfer"
	case ActionEnterMarket:
		return "enterMarket"
	default:
		return fmt.Sprintf("action(%d)", uint8(a))
	}
}

// ParseAction maps an action name back to its value.
func ParseAction(name string) (Action, error) {
	for a := ActionMint; a <= ActionEnterMarket; a++ {
		if a.String() == name {
			return a, nil
		}
	}
	return 0, fmt.Errorf("venus: unknown action %q", name)
}

type pauseKey struct {
	market common.Address
	action Action
}

// Comptroller is the risk registry every market consults. Listings, collateral
// factors, prices and pauses are deployment configuration kept in memory;
// market membership lives in the ledger so it reverts with the call.
type Comptroller struct {
	address common.Address
	ledger  *state.Ledger

	markets []*Market
	byAddr  map[common.Address]*Market
	factors map[common.Address]*big.Int
	prices  map[common.Address]*big.Int

	pauseMu sync.RWMutex
	paused  map[pauseKey]bool
}

func NewComptroller(ledger *state.Ledger, address common.Address) *Comptroller {
	return &Comptroller{
		address: address,
		ledger:  ledger,
		byAddr:  make(map[common.Address]*Market),
		factors: make(map[common.Address]*big.Int),
		prices:  make(map[common.Address]*big.Int),
		paused:  make(map[pauseKey]bool),
	}
}

func (c *Comptroller) Address() common.Address { return c.address }

// SupportMarket lists a market with the given collateral factor mantissa.
func (c *Comptroller) SupportMarket(m *Market, collateralFactor *big.Int) error {
	if m == nil {
		return fmt.Errorf("venus: market required")
	}
	if _, ok := c.byAddr[m.address]; ok {
		return ErrMarketListed
	}
	cf := nonNil(collateralFactor)
	if cf.Cmp(maxCollateralFactor) > 0 {
		return ErrInvalidCollateral
	}
	m.comptroller = c
	m.initialize()
	c.markets = append(c.markets, m)
	c.byAddr[m.address] = m
	c.factors[m.address] = new(big.Int).Set(cf)
	return nil
}

// SetUnderlyingPrice stores the oracle price mantissa for a market, scaled so
// that price * underlyingAmount / 1e18 is a USD mantissa.
func (c *Comptroller) SetUnderlyingPrice(market common.Address, price *big.Int) error {
	if _, ok := c.byAddr[market]; !ok {
		return ErrMarketNotListed
	}
	c.prices[market] = new(big.Int).Set(nonNil(price))
	return nil
}

func (c *Comptroller) SetActionPaused(market common.Address, action Action, paused bool) {
	c.pauseMu.Lock()
	defer c.pauseMu.Unlock()
	if paused {
		c.paused[pauseKey{market, action}] = true
		return
	}
	delete(c.paused, pauseKey{market, action})
}

func (c *Comptroller) ActionPaused(market common.Address, action Action) bool {
	c.pauseMu.RLock()
	defer c.pauseMu.RUnlock()
	return c.paused[pauseKey{market, action}]
}

func (c *Comptroller) checkAction(market common.Address, action Action) error {
	if c.ActionPaused(market, action) {
		return fmt.Errorf("%w: %s on %s", ErrActionPaused, action, market.Hex())
	}
	return nil
}

// GetAllMarkets returns listed markets in listing order.
func (c *Comptroller) GetAllMarkets(ctx context.Context) ([]common.Address, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]common.Address, 0, len(c.markets))
	for _, m := range c.markets {
		out = append(out, m.address)
	}
	return out, nil
}

// Market returns the listed market at addr.
func (c *Comptroller) Market(addr common.Address) (*Market, bool) {
	m, ok := c.byAddr[addr]
	return m, ok
}

func (c *Comptroller) membershipSlot(market, account common.Address) common.Hash {
	return state.SlotKey("membership", market.Bytes(), account.Bytes())
}

func (c *Comptroller) CheckMembership(account, market common.Address) bool {
	return !c.ledger.Slot(c.address, c.membershipSlot(market, account)).IsZero()
}

// EnterMarkets adds the listed markets to the caller's collateral set and
// returns one code per requested market.
func (c *Comptroller) EnterMarkets(caller common.Address, markets []common.Address) ([]ComptrollerCode, error) {
	codes := make([]ComptrollerCode, len(markets))
	for i, addr := range markets {
		if err := c.checkAction(addr, ActionEnterMarket); err != nil {
			return nil, err
		}
		codes[i] = c.addToMarket(addr, caller)
	}
	return codes, nil
}

func (c *Comptroller) addToMarket(market, account common.Address) ComptrollerCode {
	if _, ok := c.byAddr[market]; !ok {
		return ComptrollerMarketNotListed
	}
	if c.CheckMembership(account, market) {
		return ComptrollerNoError
	}
	c.ledger.SetSlot(c.address, c.membershipSlot(market, account), uint256.NewInt(1))
	return ComptrollerNoError
}

// AssetsIn lists the markets an account has entered.
func (c *Comptroller) AssetsIn(account common.Address) []common.Address {
	var out []common.Address
	for _, m := range c.markets {
		if c.CheckMembership(account, m.address) {
			out = append(out, m.address)
		}
	}
	return out
}

// GetAccountLiquidity reports the USD mantissa of excess collateral or shortfall.
func (c *Comptroller) GetAccountLiquidity(account common.Address) (ComptrollerCode, *uint256.Int, *uint256.Int) {
	code, liquidity, shortfall := c.hypotheticalLiquidity(account, common.Address{}, big.NewInt(0), big.NewInt(0))
	return code, toU256(liquidity), toU256(shortfall)
}

func (c *Comptroller) hypotheticalLiquidity(account, modify common.Address, redeemTokens, borrowAmount *big.Int) (ComptrollerCode, *big.Int, *big.Int) {
	sumCollateral := big.NewInt(0)
	sumBorrowPlusEffects := big.NewInt(0)
	for _, m := range c.markets {
		if !c.CheckMembership(account, m.address) {
			continue
		}
		price, ok := c.prices[m.address]
		if !ok || price.Sign() == 0 {
			return PriceError, big.NewInt(0), big.NewInt(0)
		}
		balance := toBig(m.BalanceOf(account))
		borrow := m.borrowBalanceStored(account)
		rate := m.exchangeRateStored()

		// collateral factor * exchange rate * price, all mantissas
		tokensToDenom := mulExp(mulExp(c.factors[m.address], rate), price)
		sumCollateral.Add(sumCollateral, mulExp(tokensToDenom, balance))
		sumBorrowPlusEffects.Add(sumBorrowPlusEffects, mulExp(price, borrow))

		if m.address == modify {
			sumBorrowPlusEffects.Add(sumBorrowPlusEffects, mulExp(tokensToDenom, redeemTokens))
			sumBorrowPlusEffects.Add(sumBorrowPlusEffects, mulExp(price, borrowAmount))
		}
	}
	if sumCollateral.Cmp(sumBorrowPlusEffects) > 0 {
		return ComptrollerNoError, new(big.Int).Sub(sumCollateral, sumBorrowPlusEffects), big.NewInt(0)
	}
	return ComptrollerNoError, big.NewInt(0), new(big.Int).Sub(sumBorrowPlusEffects, sumCollateral)
}

func (c *Comptroller) mintAllowed(market common.Address) ComptrollerCode {
	if _, ok := c.byAddr[market]; !ok {
		return ComptrollerMarketNotListed
	}
	return ComptrollerNoError
}

func (c *Comptroller) redeemAllowed(market, redeemer common.Address, redeemTokens *big.Int) ComptrollerCode {
	if _, ok := c.byAddr[market]; !ok {
		return ComptrollerMarketNotListed
	}
	if !c.CheckMembership(redeemer, market) {
		return ComptrollerNoError
	}
	code, _, shortfall := c.hypotheticalLiquidity(redeemer, market, redeemTokens, big.NewInt(0))
	if code != ComptrollerNoError {
		return code
	}
	if shortfall.Sign() > 0 {
		return InsufficientLiquidity
	}
	return ComptrollerNoError
}

func (c *Comptroller) borrowAllowed(market, borrower common.Address, amount *big.Int) ComptrollerCode {
	if _, ok := c.byAddr[market]; !ok {
		return ComptrollerMarketNotListed
	}
	if !c.CheckMembership(borrower, market) {
		// only the market itself may enter a borrower, which is the case here
		if code := c.addToMarket(market, borrower); code != ComptrollerNoError {
			return code
		}
	}
	if price, ok := c.prices[market]; !ok || price.Sign() == 0 {
		return PriceError
	}
	code, _, shortfall := c.hypotheticalLiquidity(borrower, market, big.NewInt(0), amount)
	if code != ComptrollerNoError {
		return code
	}
	if shortfall.Sign() > 0 {
		return InsufficientLiquidity
	}
	return ComptrollerNoError
}

func (c *Comptroller) repayBorrowAllowed(market common.Address) ComptrollerCode {
	if _, ok := c.byAddr[market]; !ok {
		return ComptrollerMarketNotListed
	}
	return ComptrollerNoError
}

func (c *Comptroller) transferAllowed(market, src common.Address, tokens *big.Int) ComptrollerCode {
	return c.redeemAllowed(market, src, tokens)
}
