package sale

import "errors"

var (
	ErrInvalidParameter = errors.New("sale.invalid_parameter")
	ErrInvalidState     = errors.New("sale.invalid_state")
	ErrCapacityExceeded = errors.New("sale.round.capacity_exceeded")
	ErrBelowMinimum     = errors.New("sale.funds.below_minimum")
	ErrAboveMaximum     = errors.New("sale.funds.above_maximum")
	ErrOracleStale      = errors.New("sale.oracle.stale_price")
	ErrUnauthorized     = errors.New("sale.authz.invalid_permission")
	ErrTransferFailed   = errors.New("sale.transfer_failed")
	ErrPaused           = errors.New("sale.channel.paused")
	ErrReentrancy       = errors.New("sale.reentrant_call")
)
