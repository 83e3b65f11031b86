package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"venusadapter/native/adapter"
	nativecommon "venusadapter/native/common"
	"venusadapter/native/venus"
	"venusadapter/services/adapterd/api"
	"venusadapter/services/adapterd/receipts"
	"venusadapter/services/adapterd/sandbox"
)

var (
	errBadRequest    = errors.New("bad request")
	errForbidden     = errors.New("caller does not match token subject")
	errMissingCaller = errors.New("caller required")
)

type errorMapping struct {
	target error
	status int
	code   string
}

// Checked in order. A MarketError unwraps to both its sentinel and its
// cause, so pauses are matched before the market failure they surface as.
var errorTable = []errorMapping{
	{nativecommon.ErrModulePaused, http.StatusServiceUnavailable, "paused"},
	{venus.ErrActionPaused, http.StatusServiceUnavailable, "action_paused"},
	{errBadRequest, http.StatusBadRequest, "bad_request"},
	{errMissingCaller, http.StatusBadRequest, "missing_caller"},
	{errForbidden, http.StatusForbidden, "forbidden"},
	{adapter.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{adapter.ErrUnexpectedValue, http.StatusBadRequest, "unexpected_value"},
	{adapter.ErrNativeMarketRequiresValue, http.StatusBadRequest, "native_market_requires_value"},
	{adapter.ErrZeroValue, http.StatusBadRequest, "zero_value"},
	{adapter.ErrInsufficientValue, http.StatusPaymentRequired, "insufficient_value"},
	{adapter.ErrUnknownMarket, http.StatusNotFound, "unknown_market"},
	{receipts.ErrNotFound, http.StatusNotFound, "not_found"},
	{sandbox.ErrUnknownContract, http.StatusNotFound, "unknown_contract"},
	{adapter.ErrNoOutstandingDebt, http.StatusConflict, "no_outstanding_debt"},
	{adapter.ErrInsufficientAllowance, http.StatusUnprocessableEntity, "insufficient_allowance"},
	{adapter.ErrTransferFailed, http.StatusUnprocessableEntity, "transfer_failed"},
	{adapter.ErrMarketRejected, http.StatusUnprocessableEntity, "market_rejected"},
	{adapter.ErrRedemptionFailed, http.StatusUnprocessableEntity, "redemption_failed"},
	{adapter.ErrRepaymentFailed, http.StatusUnprocessableEntity, "repayment_failed"},
	{adapter.ErrResidualBalance, http.StatusUnprocessableEntity, "residual_balance"},
	{sandbox.ErrRejected, http.StatusUnprocessableEntity, "rejected"},
}

// classify maps an error to its HTTP status and stable code.
func classify(err error) (int, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, api.ErrorResponse{Error: msg, Code: code})
}
