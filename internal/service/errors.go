package service

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart         = errors.New("cart is empty, nothing to checkout")
	ErrOrderVanished     = errors.New("order vanished between creation and status update")
	ErrIllegalTransition = errors.New("illegal transition of order status")
)

// PaymentDeclinedError is the one expected payment failure. It carries the
// order id so the caller can correlate, and nothing from the gateway beyond
// the decline reason.
type PaymentDeclinedError struct {
	OrderID string
	Reason  string
}

func (e *PaymentDeclinedError) Error() string {
	return fmt.Sprintf("payment declined for order %s: %s", e.OrderID, e.Reason)
}
