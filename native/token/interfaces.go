package token

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Standard is the BEP20 surface whose transfer family returns a success flag.
type Standard interface {
	Address() common.Address
	BalanceOf(account common.Address) *uint256.Int
	Allowance(owner, spender common.Address) *uint256.Int
	Transfer(caller, to common.Address, amount *uint256.Int) (bool, error)
	TransferFrom(caller, from, to common.Address, amount *uint256.Int) (bool, error)
	Approve(caller, spender common.Address, amount *uint256.Int) (bool, error)
}

// NonStandard is the surface of tokens whose transfer family returns nothing.
type NonStandard interface {
	Address() common.Address
	BalanceOf(account common.Address) *uint256.Int
	Allowance(owner, spender common.Address) *uint256.Int
	Transfer(caller, to common.Address, amount *uint256.Int) error
	TransferFrom(caller, from, to common.Address, amount *uint256.Int) error
	Approve(caller, spender common.Address, amount *uint256.Int) error
}

var (
	_ Standard    = (*BEP20)(nil)
	_ NonStandard = (*NoReturn)(nil)
)
