// Package errs defines the bot's sentinel error kinds, grounded on
// original_source/core/utils/exception.py's custom exception hierarchy
// (OrderException/StrategyException and their four concrete subclasses).
// Call sites wrap these with fmt.Errorf("...: %w", ErrX) to attach context;
// callers use errors.Is against the sentinel to classify the failure.
package errs

import "errors"

var (
	// ErrInsufficientOrders means a batch response came back shorter than
	// the request, or contained a nil entry where an order was expected.
	ErrInsufficientOrders = errors.New("ordermanager: insufficient orders in response")

	// ErrOrdersUpdateFail means a state-update batch could not be applied
	// (e.g. an order ID with no tracked state to transition from).
	ErrOrdersUpdateFail = errors.New("ordermanager: failed to update order state")

	// ErrStrategyNoExist means a bot profile named a strategy with no
	// matching entry in the strategy registry.
	ErrStrategyNoExist = errors.New("strategy: no such strategy registered")

	// ErrCalculationFail means a strategy's quote/size calculation could not
	// produce a usable result (e.g. a reference price was unavailable).
	ErrCalculationFail = errors.New("strategy: calculation failed")
)
