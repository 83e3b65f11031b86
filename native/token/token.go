package token

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"venusadapter/core/events"
	"venusadapter/core/state"
)

var (
	ErrInsufficientBalance   = errors.New("token: transfer amount exceeds balance")
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
	ErrZeroAddress           = errors.New("token: zero address")
)

// Behaviour selects how a token reports failed transfers.
type Behaviour uint8

const (
	// Reverting tokens fail with an error, as OpenZeppelin ERC20 does.
	Reverting Behaviour = iota
	// ReturnsFalse tokens report failure by returning false without reverting.
	ReturnsFalse
)

func (b Behaviour) String() string {
	switch b {
	case Reverting:
		return "reverting"
	case ReturnsFalse:
		return "returns-false"
	default:
		return fmt.Sprintf("behaviour(%d)", uint8(b))
	}
}

// ParseBehaviour accepts the names used in sandbox configuration.
func ParseBehaviour(s string) (Behaviour, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reverting", "standard":
		return Reverting, nil
	case "returns-false", "false":
		return ReturnsFalse, nil
	default:
		return 0, fmt.Errorf("token: unknown behaviour %q", s)
	}
}

// Metadata describes a token contract.
type Metadata struct {
	Address  common.Address
	Symbol   string
	Name     string
	Decimals uint8
}

// BEP20 is a fungible token whose balances live in the ledger. Its transfer
// family returns a success flag alongside an error, mirroring the bool return
// of the BEP20 ABI.
type BEP20 struct {
	meta      Metadata
	behaviour Behaviour
	ledger    *state.Ledger
}

func NewBEP20(ledger *state.Ledger, meta Metadata, behaviour Behaviour) *BEP20 {
	return &BEP20{meta: meta, behaviour: behaviour, ledger: ledger}
}

func (t *BEP20) Address() common.Address { return t.meta.Address }
func (t *BEP20) Symbol() string          { return t.meta.Symbol }
func (t *BEP20) Name() string            { return t.meta.Name }
func (t *BEP20) Decimals() uint8         { return t.meta.Decimals }
func (t *BEP20) Behaviour() Behaviour    { return t.behaviour }

func (t *BEP20) BalanceOf(account common.Address) *uint256.Int {
	return t.ledger.TokenBalance(t.meta.Address, account)
}

func (t *BEP20) TotalSupply() *uint256.Int {
	return t.ledger.TotalSupply(t.meta.Address)
}

func (t *BEP20) Allowance(owner, spender common.Address) *uint256.Int {
	return t.ledger.Allowance(t.meta.Address, owner, spender)
}

// Mint credits freshly issued tokens. Used for sandbox funding only.
func (t *BEP20) Mint(to common.Address, amount *uint256.Int) {
	t.ledger.MintToken(t.meta.Address, to, amount)
	t.ledger.Emit(events.Transfer{Token: t.meta.Address, Symbol: t.meta.Symbol, To: to, Amount: amount})
}

func (t *BEP20) Transfer(caller, to common.Address, amount *uint256.Int) (bool, error) {
	return t.report(t.move(caller, to, amount))
}

func (t *BEP20) TransferFrom(caller, from, to common.Address, amount *uint256.Int) (bool, error) {
	if to == (common.Address{}) {
		return t.report(ErrZeroAddress)
	}
	allowance := t.Allowance(from, caller)
	if allowance.Lt(amount) {
		return t.report(ErrInsufficientAllowance)
	}
	if t.BalanceOf(from).Lt(amount) {
		return t.report(ErrInsufficientBalance)
	}
	// An unlimited approval is never decremented.
	if !allowance.Eq(maxUint256) {
		t.ledger.SetAllowance(t.meta.Address, from, caller, new(uint256.Int).Sub(allowance, amount))
	}
	return t.report(t.move(from, to, amount))
}

func (t *BEP20) Approve(caller, spender common.Address, amount *uint256.Int) (bool, error) {
	if spender == (common.Address{}) {
		return t.report(ErrZeroAddress)
	}
	t.ledger.SetAllowance(t.meta.Address, caller, spender, amount)
	t.ledger.Emit(events.Approval{Token: t.meta.Address, Owner: caller, Spender: spender, Amount: amount})
	return true, nil
}

func (t *BEP20) move(from, to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	if err := t.ledger.MoveToken(t.meta.Address, from, to, amount); err != nil {
		if errors.Is(err, state.ErrInsufficientBalance) {
			return ErrInsufficientBalance
		}
		return err
	}
	t.ledger.Emit(events.Transfer{Token: t.meta.Address, Symbol: t.meta.Symbol, From: from, To: to, Amount: amount})
	return nil
}

// report turns a failure into the token's reporting style. Checks run before
// any write, so a false return never leaves partial state behind.
func (t *BEP20) report(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if t.behaviour == ReturnsFalse {
		return false, nil
	}
	return false, err
}

var maxUint256 = new(uint256.Int).SetAllOne()

// NoReturn wraps a token whose transfer family has no return value at all;
// failure is only observable as an error.
type NoReturn struct {
	inner *BEP20
}

func NewNoReturn(ledger *state.Ledger, meta Metadata) *NoReturn {
	return &NoReturn{inner: NewBEP20(ledger, meta, Reverting)}
}

func (t *NoReturn) Address() common.Address { return t.inner.Address() }
func (t *NoReturn) Symbol() string          { return t.inner.Symbol() }
func (t *NoReturn) Name() string            { return t.inner.Name() }
func (t *NoReturn) Decimals() uint8         { return t.inner.Decimals() }

func (t *NoReturn) BalanceOf(account common.Address) *uint256.Int { return t.inner.BalanceOf(account) }
func (t *NoReturn) TotalSupply() *uint256.Int                     { return t.inner.TotalSupply() }
func (t *NoReturn) Allowance(owner, spender common.Address) *uint256.Int {
	return t.inner.Allowance(owner, spender)
}
func (t *NoReturn) Mint(to common.Address, amount *uint256.Int) { t.inner.Mint(to, amount) }

func (t *NoReturn) Transfer(caller, to common.Address, amount *uint256.Int) error {
	_, err := t.inner.Transfer(caller, to, amount)
	return err
}

func (t *NoReturn) TransferFrom(caller, from, to common.Address, amount *uint256.Int) error {
	_, err := t.inner.TransferFrom(caller, from, to, amount)
	return err
}

func (t *NoReturn) Approve(caller, spender common.Address, amount *uint256.Int) error {
	_, err := t.inner.Approve(caller, spender, amount)
	return err
}
