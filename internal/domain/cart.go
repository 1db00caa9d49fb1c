package domain

import "github.com/shopspring/decimal"

// CartItem is a line item as submitted by the client. Prices are untrusted
// input; totals are always recomputed server-side.
type CartItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int32           `json:"quantity"`
}

// PricedItem is a CartItem with its server-computed line total.
type PricedItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int32           `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// PricingResult holds the recomputed totals for a cart. Item order is
// preserved from the input.
type PricingResult struct {
	Items    []PricedItem
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}
