package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusCreated         OrderStatus = "CREATED"
	OrderStatusPaymentCaptured OrderStatus = "PAYMENT_CAPTURED"
	OrderStatusPaymentFailed   OrderStatus = "PAYMENT_FAILED"
)

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusPaymentCaptured || s == OrderStatusPaymentFailed
}

// String representation (for logging)
func (s OrderStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether an order may move from one status to
// another. The only legal moves are CREATED -> PAYMENT_CAPTURED and
// CREATED -> PAYMENT_FAILED; terminal statuses never change.
func CanTransitionTo(from, to OrderStatus) bool {
	if from != OrderStatusCreated {
		return false
	}
	return to == OrderStatusPaymentCaptured || to == OrderStatusPaymentFailed
}

// Order is the persisted checkout aggregate, keyed by CartID. Totals are
// frozen at creation; only Status and TransactionID mutate afterwards.
type Order struct {
	OrderID string      `json:"order_id"`
	CartID  string      `json:"cart_id"`
	Status  OrderStatus `json:"status"`

	Items    []PricedItem    `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`

	// PaymentToken is persisted but must never cross the outbound boundary.
	PaymentToken string `json:"-"`

	TransactionID *string   `json:"transaction_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}
