package adapter

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"venusadapter/native/venus"
)

var (
	ErrInvalidAmount         = errors.New("adapter: invalid amount")
	ErrInsufficientAllowance = errors.New("adapter: insufficient allowance")
	ErrTransferFailed        = errors.New("adapter: transfer failed")
	ErrInsufficientValue     = errors.New("adapter: attached value below repayment amount")
	ErrZeroValue             = errors.New("adapter: no value attached")
	ErrNoOutstandingDebt     = errors.New("adapter: no outstanding debt")
	ErrMarketRejected        = errors.New("adapter: market rejected deposit")
	ErrRedemptionFailed      = errors.New("adapter: redemption failed")
	ErrRepaymentFailed       = errors.New("adapter: repayment failed")

	ErrUnknownMarket             = errors.New("adapter: market not listed by comptroller")
	ErrNativeMarketRequiresValue = errors.New("adapter: native market is supplied with attached value")
	ErrUnexpectedValue           = errors.New("adapter: operation does not accept native value")
	ErrResidualBalance           = errors.New("adapter: residual balance left in adapter")
	ErrInvalidConfig             = errors.New("adapter: invalid configuration")
)

// MarketError reports a failure signalled by a market: either a non-zero
// error code or a reverted call (Cause).
type MarketError struct {
	Op     string
	Market common.Address
	Code   venus.Code
	Err    error
	Cause  error
}

func (e *MarketError) Error() string {
	msg := fmt.Sprintf("%s on %s", e.Op, e.Market.Hex())
	if e.Err != nil {
		msg = e.Err.Error() + ": " + msg
	}
	if e.Code != venus.NoError {
		msg += fmt.Sprintf(" (code %d %s)", uint64(e.Code), e.Code)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *MarketError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Err != nil {
		out = append(out, e.Err)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

// checkMarket converts a market's (code, error) pair into a MarketError
// carrying sentinel.
func checkMarket(op string, market common.Address, code venus.Code, err error, sentinel error) error {
	if err != nil {
		return &MarketError{Op: op, Market: market, Err: sentinel, Cause: err}
	}
	if code != venus.NoError {
		return &MarketError{Op: op, Market: market, Code: code, Err: sentinel}
	}
	return nil
}
