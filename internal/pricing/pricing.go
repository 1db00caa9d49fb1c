package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/mvetrov/go_checkout/internal/domain"
)

// TaxRate is fixed and never taken from client input.
var TaxRate = decimal.RequireFromString("0.10")

// Price recomputes monetary totals for the given line items. It is pure and
// deterministic: unit price times quantity per line, then subtotal, tax and
// total, each rounded to 2 decimal places half away from zero at its own
// stage. Intermediate precision is never carried forward unrounded, so the
// result matches the downstream rounding contract digit for digit.
//
// The caller is responsible for rejecting empty carts before calling.
func Price(items []domain.CartItem) domain.PricingResult {
	priced := make([]domain.PricedItem, 0, len(items))
	subtotal := decimal.Zero

	for _, item := range items {
		lineTotal := item.UnitPrice.Mul(decimal.NewFromInt32(item.Quantity)).Round(2)
		priced = append(priced, domain.PricedItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			LineTotal: lineTotal,
		})
		subtotal = subtotal.Add(lineTotal)
	}

	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(TaxRate).Round(2)
	total := subtotal.Add(tax).Round(2)

	return domain.PricingResult{
		Items:    priced,
		Subtotal: subtotal,
		Tax:      tax,
		Total:    total,
	}
}
