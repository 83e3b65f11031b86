package venus

import (
	"errors"
	"fmt"
)

// Code is the numeric failure code a market returns instead of reverting.
type Code uint64

const (
	NoError Code = iota
	Unauthorized
	BadInput
	ComptrollerRejection
	ComptrollerCalculationError
	InterestRateModelError
	InvalidAccountPair
	InvalidCloseAmountRequested
	InvalidCollateralFactor
	MathError
	MarketNotFresh
	MarketNotListed
	TokenInsufficientAllowance
	TokenInsufficientBalance
	TokenInsufficientCash
	TokenTransferInFailed
	TokenTransferOutFailed
)

var codeNames = [...]string{
	"NO_ERROR",
	"UNAUTHORIZED",
	"BAD_INPUT",
	"COMPTROLLER_REJECTION",
	"COMPTROLLER_CALCULATION_ERROR",
	"INTEREST_RATE_MODEL_ERROR",
	"INVALID_ACCOUNT_PAIR",
	"INVALID_CLOSE_AMOUNT_REQUESTED",
	"INVALID_COLLATERAL_FACTOR",
	"MATH_ERROR",
	"MARKET_NOT_FRESH",
	"MARKET_NOT_LISTED",
	"TOKEN_INSUFFICIENT_ALLOWANCE",
	"TOKEN_INSUFFICIENT_BALANCE",
	"TOKEN_INSUFFICIENT_CASH",
	"TOKEN_TRANSFER_IN_FAILED",
	"TOKEN_TRANSFER_OUT_FAILED",
}

func (c Code) String() string {
	if int(c) < len(codeNames) {
		return codeNames[c]
	}
	return fmt.Sprintf("CODE_%d", uint64(c))
}

// ComptrollerCode is the comptroller's own failure code, surfaced inside
// market Failure events as detail.
type ComptrollerCode uint64

const (
	ComptrollerNoError ComptrollerCode = iota
	ComptrollerUnauthorized
	ComptrollerMismatch
	InsufficientShortfall
	InsufficientLiquidity
	InvalidCloseFactor
	ComptrollerInvalidCollateralFactor
	InvalidLiquidationIncentive
	MarketNotEntered
	ComptrollerMarketNotListed
	MarketAlreadyListed
	ComptrollerMathError
	NonzeroBorrowBalance
	PriceError
	Rejection
)

var (
	ErrActionPaused       = errors.New("venus: action is paused")
	ErrRepayExceedsDebt   = errors.New("venus: repay amount exceeds borrow balance")
	ErrTransferInFailed   = errors.New("venus: token transfer in failed")
	ErrTransferOutFailed  = errors.New("venus: token transfer out failed")
	ErrMarketListed       = errors.New("venus: market already listed")
	ErrMarketNotListed    = errors.New("venus: market not listed")
	ErrInvalidCollateral  = errors.New("venus: collateral factor must not exceed 0.9")
	ErrUnsupportedAsset   = errors.New("venus: underlying does not implement a transfer interface")
	ErrNativeValueMissing = errors.New("venus: native market requires attached value")
)
