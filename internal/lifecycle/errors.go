package lifecycle

import "errors"

// Checkout and cancellation validation failures. Coupon validation errors
// come from the coupons package, routing errors from the sharding package and
// not-found errors from the orders package; together they form the full
// error taxonomy the handlers map to HTTP statuses.
var (
	// ErrAmountMismatch indicates the client-claimed amount deviates from the
	// server-computed final amount by more than the fixed tolerance.
	ErrAmountMismatch = errors.New("claimed amount does not match computed amount")

	// ErrPointsExceedAmount indicates the redemption is larger than the
	// payment it would apply to.
	ErrPointsExceedAmount = errors.New("used points exceed payment amount")

	// ErrAlreadyCancelled indicates a second cancellation attempt; the
	// transition is deliberately not idempotent.
	ErrAlreadyCancelled = errors.New("order is already cancelled")
)
