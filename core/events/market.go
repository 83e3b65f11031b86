package events

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"venusadapter/core/types"
)

const (
	TypeMarketMint        = "market.mint"
	TypeMarketRedeem      = "market.redeem"
	TypeMarketBorrow      = "market.borrow"
	TypeMarketRepayBorrow = "market.repay_borrow"
	// TypeMarketFailure mirrors the Failure(error, info, detail) log of a
	// soft-failing market call.
	TypeMarketFailure = "market.failure"
)

type MarketMint struct {
	Market       common.Address
	Minter       common.Address
	MintAmount   *uint256.Int
	MintedTokens *uint256.Int
}

func (MarketMint) EventType() string { return TypeMarketMint }

func (e MarketMint) Event() *types.Event {
	return &types.Event{Type: TypeMarketMint, Attributes: map[string]string{
		"market":       formatAddress(e.Market),
		"minter":       formatAddress(e.Minter),
		"mintAmount":   formatAmount(e.MintAmount),
		"mintedTokens": formatAmount(e.MintedTokens),
	}}
}

type MarketRedeem struct {
	Market         common.Address
	Redeemer       common.Address
	RedeemAmount   *uint256.Int
	RedeemedTokens *uint256.Int
}

func (MarketRedeem) EventType() string { return TypeMarketRedeem }

func (e MarketRedeem) Event() *types.Event {
	return &types.Event{Type: TypeMarketRedeem, Attributes: map[string]string{
		"market":         formatAddress(e.Market),
		"redeemer":       formatAddress(e.Redeemer),
		"redeemAmount":   formatAmount(e.RedeemAmount),
		"redeemedTokens": formatAmount(e.RedeemedTokens),
	}}
}

type MarketBorrow struct {
	Market         common.Address
	Borrower       common.Address
	BorrowAmount   *uint256.Int
	AccountBorrows *uint256.Int
	TotalBorrows   *uint256.Int
}

func (MarketBorrow) EventType() string { return TypeMarketBorrow }

func (e MarketBorrow) Event() *types.Event {
	return &types.Event{Type: TypeMarketBorrow, Attributes: map[string]string{
		"market":         formatAddress(e.Market),
		"borrower":       formatAddress(e.Borrower),
		"borrowAmount":   formatAmount(e.BorrowAmount),
		"accountBorrows": formatAmount(e.AccountBorrows),
		"totalBorrows":   formatAmount(e.TotalBorrows),
	}}
}

type MarketRepayBorrow struct {
	Market         common.Address
	Payer          common.Address
	Borrower       common.Address
	RepayAmount    *uint256.Int
	AccountBorrows *uint256.Int
	TotalBorrows   *uint256.Int
}

func (MarketRepayBorrow) EventType() string { return TypeMarketRepayBorrow }

func (e MarketRepayBorrow) Event() *types.Event {
	return &types.Event{Type: TypeMarketRepayBorrow, Attributes: map[string]string{
		"market":         formatAddress(e.Market),
		"payer":          formatAddress(e.Payer),
		"borrower":       formatAddress(e.Borrower),
		"repayAmount":    formatAmount(e.RepayAmount),
		"accountBorrows": formatAmount(e.AccountBorrows),
		"totalBorrows":   formatAmount(e.TotalBorrows),
	}}
}

type MarketFailure struct {
	Market common.Address
	Code   uint64
	Info   string
}

func (MarketFailure) EventType() string { return TypeMarketFailure }

func (e MarketFailure) Event() *types.Event {
	return &types.Event{Type: TypeMarketFailure, Attributes: map[string]string{
		"market": formatAddress(e.Market),
		"code":   uint256.NewInt(e.Code).Dec(),
		"info":   e.Info,
	}}
}
