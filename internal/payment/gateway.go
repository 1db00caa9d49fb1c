package payment

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// CaptureResult is the gateway's acknowledgement of a successful charge.
type CaptureResult struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

// DeclinedError means the gateway explicitly rejected the charge. Every other
// capture failure is unclassified: the charge may or may not have gone
// through.
type DeclinedError struct {
	Reason string
}

func (e *DeclinedError) Error() string {
	return fmt.Sprintf("payment declined: %s", e.Reason)
}

// Gateway is the consumed payment contract. Capture is NOT idempotent on the
// processor side: calling it twice may charge twice, so callers must invoke
// it at most once per order.
type Gateway interface {
	Capture(ctx context.Context, orderID string, amount decimal.Decimal, paymentToken string) (*CaptureResult, error)
}
