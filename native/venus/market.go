package venus

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"venusadapter/core/events"
	"venusadapter/core/state"
	"venusadapter/native/token"
)

var (
	slotTotalBorrows  = state.SlotKey("totalBorrows")
	slotTotalReserves = state.SlotKey("totalReserves")
	slotBorrowIndex   = state.SlotKey("borrowIndex")
	slotAccrualBlock  = state.SlotKey("accrualBlockNumber")
)

func principalSlot(account common.Address) common.Hash {
	return state.SlotKey("borrowPrincipal", account.Bytes())
}

func interestIndexSlot(account common.Address) common.Hash {
	return state.SlotKey("borrowInterestIndex", account.Bytes())
}

// MarketConfig describes a market token deployment.
type MarketConfig struct {
	Address  common.Address
	Symbol   string
	Decimals uint8
	// Underlying is a token.Standard or token.NonStandard; nil for the native market.
	Underlying          any
	InitialExchangeRate *big.Int
	ReserveFactor       *big.Int
	Model               InterestModel
}

// Market is a vToken: it holds the underlying (or native currency for the
// native market), mints market tokens against deposits and tracks borrows with
// a per-block simple-interest index. Soft failures return a non-zero Code and
// emit a failure event; hard failures return an error.
type Market struct {
	address             common.Address
	symbol              string
	decimals            uint8
	underlying          any
	underlyingAddr      common.Address
	native              bool
	initialExchangeRate *big.Int
	reserveFactor       *big.Int
	model               InterestModel

	ledger      *state.Ledger
	comptroller *Comptroller
}

// NewMarket builds a market. It becomes usable once listed with SupportMarket.
func NewMarket(ledger *state.Ledger, cfg MarketConfig) (*Market, error) {
	if cfg.Address == (common.Address{}) {
		return nil, fmt.Errorf("venus: market address required")
	}
	if cfg.InitialExchangeRate == nil || cfg.InitialExchangeRate.Sign() <= 0 {
		return nil, fmt.Errorf("venus: initial exchange rate must be positive")
	}
	m := &Market{
		address:             cfg.Address,
		symbol:              cfg.Symbol,
		decimals:            cfg.Decimals,
		underlying:          cfg.Underlying,
		native:              cfg.Underlying == nil,
		initialExchangeRate: new(big.Int).Set(cfg.InitialExchangeRate),
		reserveFactor:       new(big.Int).Set(nonNil(cfg.ReserveFactor)),
		model:               cfg.Model,
		ledger:              ledger,
	}
	switch u := cfg.Underlying.(type) {
	case nil:
	case token.Standard:
		m.underlyingAddr = u.Address()
	case token.NonStandard:
		m.underlyingAddr = u.Address()
	default:
		return nil, ErrUnsupportedAsset
	}
	return m, nil
}

func (m *Market) initialize() {
	if m.ledger.Slot(m.address, slotBorrowIndex).IsZero() {
		m.ledger.SetSlot(m.address, slotBorrowIndex, toU256(expScale))
		m.ledger.SetSlot(m.address, slotAccrualBlock, uint256.NewInt(m.ledger.BlockNumber()))
	}
}

func (m *Market) Address() common.Address { return m.address }
func (m *Market) Symbol() string          { return m.symbol }
func (m *Market) Decimals() uint8         { return m.decimals }
func (m *Market) IsNative() bool          { return m.native }

// Underlying returns the underlying token address, or the zero address for the native market.
func (m *Market) Underlying() common.Address { return m.underlyingAddr }

func (m *Market) Comptroller() common.Address {
	if m.comptroller == nil {
		return common.Address{}
	}
	return m.comptroller.address
}

// --- views ---

func (m *Market) BalanceOf(account common.Address) *uint256.Int {
	return m.ledger.TokenBalance(m.address, account)
}

func (m *Market) TotalSupply() *uint256.Int {
	return m.ledger.TotalSupply(m.address)
}

func (m *Market) Allowance(owner, spender common.Address) *uint256.Int {
	return m.ledger.Allowance(m.address, owner, spender)
}

func (m *Market) TotalBorrows() *uint256.Int {
	return m.ledger.Slot(m.address, slotTotalBorrows)
}

func (m *Market) TotalReserves() *uint256.Int {
	return m.ledger.Slot(m.address, slotTotalReserves)
}

func (m *Market) GetCash() *uint256.Int {
	return toU256(m.cash())
}

func (m *Market) cash() *big.Int {
	if m.native {
		return toBig(m.ledger.NativeBalance(m.address))
	}
	switch u := m.underlying.(type) {
	case token.Standard:
		return toBig(u.BalanceOf(m.address))
	case token.NonStandard:
		return toBig(u.BalanceOf(m.address))
	}
	return big.NewInt(0)
}

func (m *Market) ExchangeRateStored() *uint256.Int {
	return toU256(m.exchangeRateStored())
}

func (m *Market) exchangeRateStored() *big.Int {
	supply := toBig(m.TotalSupply())
	if supply.Sign() == 0 {
		return new(big.Int).Set(m.initialExchangeRate)
	}
	cashPlusBorrows := new(big.Int).Add(m.cash(), toBig(m.TotalBorrows()))
	cashPlusBorrows = subFloor(cashPlusBorrows, toBig(m.TotalReserves()))
	return divScalarByExp(cashPlusBorrows, supply)
}

// BalanceOfUnderlying converts an account's market tokens at the stored rate.
func (m *Market) BalanceOfUnderlying(account common.Address) *uint256.Int {
	return toU256(mulExp(m.exchangeRateStored(), toBig(m.BalanceOf(account))))
}

func (m *Market) BorrowBalanceStored(account common.Address) *uint256.Int {
	return toU256(m.borrowBalanceStored(account))
}

func (m *Market) borrowBalanceStored(account common.Address) *big.Int {
	principal := toBig(m.ledger.Slot(m.address, principalSlot(account)))
	if principal.Sign() == 0 {
		return principal
	}
	accountIndex := toBig(m.ledger.Slot(m.address, interestIndexSlot(account)))
	if accountIndex.Sign() == 0 {
		return principal
	}
	balance := new(big.Int).Mul(principal, toBig(m.ledger.Slot(m.address, slotBorrowIndex)))
	return balance.Quo(balance, accountIndex)
}

// BorrowBalanceCurrent accrues interest and returns the account's debt.
func (m *Market) BorrowBalanceCurrent(ctx context.Context, account common.Address) (*uint256.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.accrueInterest()
	return m.BorrowBalanceStored(account), nil
}

// --- interest ---

// AccrueInterest brings totals and the borrow index up to the current block.
func (m *Market) AccrueInterest() {
	m.accrueInterest()
}

func (m *Market) accrueInterest() {
	current := m.ledger.BlockNumber()
	prior := m.ledger.Slot(m.address, slotAccrualBlock).Uint64()
	if current <= prior {
		return
	}
	borrows := toBig(m.TotalBorrows())
	reserves := toBig(m.TotalReserves())
	index := toBig(m.ledger.Slot(m.address, slotBorrowIndex))

	rate := m.model.BorrowRatePerBlock(m.cash(), borrows, reserves)
	simpleInterestFactor := new(big.Int).Mul(rate, new(big.Int).SetUint64(current-prior))
	interestAccumulated := mulExp(simpleInterestFactor, borrows)

	totalBorrowsNew := new(big.Int).Add(borrows, interestAccumulated)
	totalReservesNew := new(big.Int).Add(mulExp(m.reserveFactor, interestAccumulated), reserves)
	borrowIndexNew := new(big.Int).Add(mulExp(simpleInterestFactor, index), index)

	m.ledger.SetSlot(m.address, slotAccrualBlock, uint256.NewInt(current))
	m.ledger.SetSlot(m.address, slotBorrowIndex, toU256(borrowIndexNew))
	m.ledger.SetSlot(m.address, slotTotalBorrows, toU256(totalBorrowsNew))
	m.ledger.SetSlot(m.address, slotTotalReserves, toU256(totalReservesNew))
}

func (m *Market) guard(action Action) error {
	if m.comptroller == nil {
		return ErrMarketNotListed
	}
	return m.comptroller.checkAction(m.address, action)
}

func (m *Market) fail(code Code, info string) Code {
	m.ledger.Emit(events.MarketFailure{Market: m.address, Code: uint64(code), Info: info})
	return code
}

// --- asset movement ---

func (m *Market) doTransferIn(from common.Address, amount *uint256.Int) error {
	if m.native {
		if err := m.ledger.TransferNative(from, m.address, amount); err != nil {
			return fmt.Errorf("%w: %v", ErrTransferInFailed, err)
		}
		return nil
	}
	switch u := m.underlying.(type) {
	case token.Standard:
		ok, err := u.TransferFrom(m.address, from, m.address, amount)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTransferInFailed, err)
		}
		if !ok {
			return ErrTransferInFailed
		}
	case token.NonStandard:
		if err := u.TransferFrom(m.address, from, m.address, amount); err != nil {
			return fmt.Errorf("%w: %v", ErrTransferInFailed, err)
		}
	default:
		return ErrUnsupportedAsset
	}
	return nil
}

func (m *Market) doTransferOut(to common.Address, amount *uint256.Int) error {
	if m.native {
		if err := m.ledger.TransferNative(m.address, to, amount); err != nil {
			return fmt.Errorf("%w: %v", ErrTransferOutFailed, err)
		}
		return nil
	}
	switch u := m.underlying.(type) {
	case token.Standard:
		ok, err := u.Transfer(m.address, to, amount)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTransferOutFailed, err)
		}
		if !ok {
			return ErrTransferOutFailed
		}
	case token.NonStandard:
		if err := u.Transfer(m.address, to, amount); err != nil {
			return fmt.Errorf("%w: %v", ErrTransferOutFailed, err)
		}
	default:
		return ErrUnsupportedAsset
	}
	return nil
}

// --- mint / redeem ---

// Mint deposits amount of the underlying (native currency for the native
// market) from caller and credits market tokens at the current exchange rate.
func (m *Market) Mint(caller common.Address, amount *uint256.Int) (Code, error) {
	if err := m.guard(ActionMint); err != nil {
		return NoError, err
	}
	m.accrueInterest()
	if code := m.comptroller.mintAllowed(m.address); code != ComptrollerNoError {
		return m.fail(ComptrollerRejection, "MINT_COMPTROLLER_REJECTION"), nil
	}
	// rate is read before the deposit lands in cash
	rate := m.exchangeRateStored()
	if err := m.doTransferIn(caller, amount); err != nil {
		return NoError, err
	}
	minted := toU256(divScalarByExp(toBig(amount), rate))
	m.ledger.MintToken(m.address, caller, minted)
	m.ledger.Emit(events.MarketMint{Market: m.address, Minter: caller, MintAmount: amount, MintedTokens: minted})
	m.ledger.Emit(events.Transfer{Token: m.address, Symbol: m.symbol, From: m.address, To: caller, Amount: minted})
	return NoError, nil
}

// Redeem burns market tokens from caller and pays out the underlying.
func (m *Market) Redeem(caller common.Address, redeemTokens *uint256.Int) (Code, error) {
	return m.redeem(caller, toBig(redeemTokens), nil)
}

// RedeemUnderlying burns however many market tokens are worth amount of underlying.
func (m *Market) RedeemUnderlying(caller common.Address, amount *uint256.Int) (Code, error) {
	return m.redeem(caller, nil, toBig(amount))
}

func (m *Market) redeem(redeemer common.Address, tokensIn, amountIn *big.Int) (Code, error) {
	if err := m.guard(ActionRedeem); err != nil {
		return NoError, err
	}
	m.accrueInterest()
	rate := m.exchangeRateStored()

	var redeemTokens, redeemAmount *big.Int
	if tokensIn != nil {
		redeemTokens = tokensIn
		redeemAmount = mulExp(rate, tokensIn)
	} else {
		redeemTokens = divScalarByExp(amountIn, rate)
		redeemAmount = amountIn
	}

	if code := m.comptroller.redeemAllowed(m.address, redeemer, redeemTokens); code != ComptrollerNoError {
		return m.fail(ComptrollerRejection, "REDEEM_COMPTROLLER_REJECTION"), nil
	}
	if toBig(m.BalanceOf(redeemer)).Cmp(redeemTokens) < 0 {
		return m.fail(MathError, "REDEEM_NEW_ACCOUNT_BALANCE_CALCULATION_FAILED"), nil
	}
	if m.cash().Cmp(redeemAmount) < 0 {
		return m.fail(TokenInsufficientCash, "REDEEM_TRANSFER_OUT_NOT_POSSIBLE"), nil
	}
	if redeemTokens.Sign() == 0 && redeemAmount.Sign() > 0 {
		return NoError, errors.New("venus: redeemTokens zero")
	}

	tokens := toU256(redeemTokens)
	amount := toU256(redeemAmount)
	if err := m.ledger.BurnToken(m.address, redeemer, tokens); err != nil {
		return NoError, err
	}
	if err := m.doTransferOut(redeemer, amount); err != nil {
		return NoError, err
	}
	m.ledger.Emit(events.Transfer{Token: m.address, Symbol: m.symbol, From: redeemer, To: m.address, Amount: tokens})
	m.ledger.Emit(events.MarketRedeem{Market: m.address, Redeemer: redeemer, RedeemAmount: amount, RedeemedTokens: tokens})
	return NoError, nil
}

// --- borrow / repay ---

// Borrow sends amount of the underlying to caller against their collateral.
func (m *Market) Borrow(caller common.Address, amount *uint256.Int) (Code, error) {
	if err := m.guard(ActionBorrow); err != nil {
		return NoError, err
	}
	m.accrueInterest()
	borrowAmount := toBig(amount)
	if code := m.comptroller.borrowAllowed(m.address, caller, borrowAmount); code != ComptrollerNoError {
		return m.fail(ComptrollerRejection, "BORROW_COMPTROLLER_REJECTION"), nil
	}
	if m.cash().Cmp(borrowAmount) < 0 {
		return m.fail(TokenInsufficientCash, "BORROW_CASH_NOT_AVAILABLE"), nil
	}
	accountBorrowsNew := new(big.Int).Add(m.borrowBalanceStored(caller), borrowAmount)
	totalBorrowsNew := new(big.Int).Add(toBig(m.TotalBorrows()), borrowAmount)

	if err := m.doTransferOut(caller, amount); err != nil {
		return NoError, err
	}
	m.writeBorrow(caller, accountBorrowsNew, totalBorrowsNew)
	m.ledger.Emit(events.MarketBorrow{
		Market:         m.address,
		Borrower:       caller,
		BorrowAmount:   amount,
		AccountBorrows: toU256(accountBorrowsNew),
		TotalBorrows:   toU256(totalBorrowsNew),
	})
	return NoError, nil
}

// RepayBorrow repays the caller's own debt.
func (m *Market) RepayBorrow(caller common.Address, amount *uint256.Int) (Code, error) {
	return m.repayBorrow(caller, caller, amount)
}

// RepayBorrowBehalf repays borrower's debt with funds taken from caller. The
// all-ones amount repays the full balance; any other amount above the debt
// reverts.
func (m *Market) RepayBorrowBehalf(caller, borrower common.Address, amount *uint256.Int) (Code, error) {
	return m.repayBorrow(caller, borrower, amount)
}

func (m *Market) repayBorrow(payer, borrower common.Address, amount *uint256.Int) (Code, error) {
	if err := m.guard(ActionRepay); err != nil {
		return NoError, err
	}
	m.accrueInterest()
	if code := m.comptroller.repayBorrowAllowed(m.address); code != ComptrollerNoError {
		return m.fail(ComptrollerRejection, "REPAY_BORROW_COMPTROLLER_REJECTION"), nil
	}
	accountBorrows := m.borrowBalanceStored(borrower)
	repayAmount := toBig(amount)
	if repayAmount.Cmp(maxUint256) == 0 && !m.native {
		repayAmount = accountBorrows
	}
	if repayAmount.Cmp(accountBorrows) > 0 {
		return NoError, ErrRepayExceedsDebt
	}
	repay := toU256(repayAmount)
	if err := m.doTransferIn(payer, repay); err != nil {
		return NoError, err
	}
	accountBorrowsNew := new(big.Int).Sub(accountBorrows, repayAmount)
	totalBorrowsNew := subFloor(toBig(m.TotalBorrows()), repayAmount)
	m.writeBorrow(borrower, accountBorrowsNew, totalBorrowsNew)
	m.ledger.Emit(events.MarketRepayBorrow{
		Market:         m.address,
		Payer:          payer,
		Borrower:       borrower,
		RepayAmount:    repay,
		AccountBorrows: toU256(accountBorrowsNew),
		TotalBorrows:   toU256(totalBorrowsNew),
	})
	return NoError, nil
}

func (m *Market) writeBorrow(account common.Address, accountBorrows, totalBorrows *big.Int) {
	m.ledger.SetSlot(m.address, principalSlot(account), toU256(accountBorrows))
	if accountBorrows.Sign() == 0 {
		m.ledger.SetSlot(m.address, interestIndexSlot(account), nil)
	} else {
		m.ledger.SetSlot(m.address, interestIndexSlot(account), m.ledger.Slot(m.address, slotBorrowIndex))
	}
	m.ledger.SetSlot(m.address, slotTotalBorrows, toU256(totalBorrows))
}

// --- market token transfers ---

func (m *Market) Transfer(caller, to common.Address, amount *uint256.Int) (bool, error) {
	return m.transferTokens(caller, caller, to, amount)
}

func (m *Market) TransferFrom(caller, from, to common.Address, amount *uint256.Int) (bool, error) {
	return m.transferTokens(caller, from, to, amount)
}

func (m *Market) Approve(caller, spender common.Address, amount *uint256.Int) (bool, error) {
	m.ledger.SetAllowance(m.address, caller, spender, amount)
	m.ledger.Emit(events.Approval{Token: m.address, Owner: caller, Spender: spender, Amount: amount})
	return true, nil
}

func (m *Market) transferTokens(spender, src, dst common.Address, amount *uint256.Int) (bool, error) {
	if err := m.guard(ActionTransfer); err != nil {
		return false, err
	}
	tokens := toBig(amount)
	if code := m.comptroller.transferAllowed(m.address, src, tokens); code != ComptrollerNoError {
		m.fail(ComptrollerRejection, "TRANSFER_COMPTROLLER_REJECTION")
		return false, nil
	}
	if src == dst {
		m.fail(BadInput, "TRANSFER_NOT_ALLOWED")
		return false, nil
	}
	unlimited := spender == src
	allowance := m.Allowance(src, spender)
	if !unlimited && allowance.Eq(maxUint256U) {
		unlimited = true
	}
	if !unlimited && allowance.Lt(amount) {
		m.fail(MathError, "TRANSFER_NOT_ALLOWED")
		return false, nil
	}
	if m.BalanceOf(src).Lt(amount) {
		m.fail(MathError, "TRANSFER_NOT_ENOUGH")
		return false, nil
	}
	if err := m.ledger.MoveToken(m.address, src, dst, amount); err != nil {
		return false, err
	}
	if !unlimited {
		m.ledger.SetAllowance(m.address, src, spender, new(uint256.Int).Sub(allowance, amount))
	}
	m.ledger.Emit(events.Transfer{Token: m.address, Symbol: m.symbol, From: src, To: dst, Amount: amount})
	return true, nil
}

var maxUint256U = new(uint256.Int).SetAllOne()
