package orders

import "errors"

var (
	ErrNotFound          = errors.New("order not found")
	ErrNotPayable        = errors.New("order not payable")
	ErrNotCancelable     = errors.New("order not cancelable")
	ErrNotDelivered      = errors.New("order not delivered to pickup")
	ErrInvalidTransition = errors.New("invalid status transition")

	// Leaf-call error contract the HTTP clients translate into.
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrPaymentDeclined   = errors.New("payment declined")
	ErrUpstream          = errors.New("upstream failure")
)
