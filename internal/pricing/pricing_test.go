package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvetrov/go_checkout/internal/domain"
)

func item(price string, qty int32) domain.CartItem {
	return domain.CartItem{
		ProductID: "p1",
		Name:      "item",
		UnitPrice: decimal.RequireFromString(price),
		Quantity:  qty,
	}
}

func TestPrice_Totals(t *testing.T) {
	result := Price([]domain.CartItem{
		item("29.99", 2),
		item("9.99", 1),
	})

	require.Len(t, result.Items, 2)
	assert.Equal(t, "59.98", result.Items[0].LineTotal.String())
	assert.Equal(t, "9.99", result.Items[1].LineTotal.String())
	assert.Equal(t, "69.97", result.Subtotal.String())
	assert.Equal(t, "7.00", result.Tax.StringFixed(2))
	assert.Equal(t, "76.97", result.Total.String())
}

func TestPrice_LineRoundingIsExact(t *testing.T) {
	result := Price([]domain.CartItem{item("1.11", 3)})

	// 1.11 * 3 must be exactly 3.33, not a float artifact
	assert.True(t, result.Items[0].LineTotal.Equal(decimal.RequireFromString("3.33")))
	assert.Equal(t, "3.33", result.Subtotal.String())
}

func TestPrice_TaxRoundsHalfAwayFromZero(t *testing.T) {
	// 33.33 * 0.10 = 3.333 -> 3.33
	result := Price([]domain.CartItem{item("33.33", 1)})
	assert.Equal(t, "3.33", result.Tax.String())

	// 0.25 * 0.10 = 0.025 -> 0.03, not banker's 0.02
	result = Price([]domain.CartItem{item("0.25", 1)})
	assert.Equal(t, "0.03", result.Tax.String())
}

func TestPrice_RoundsEachStageIndependently(t *testing.T) {
	// each line rounds before the subtotal is formed
	result := Price([]domain.CartItem{
		item("0.333", 1), // 0.33
		item("0.333", 1), // 0.33
		item("0.333", 1), // 0.33
	})
	assert.Equal(t, "0.99", result.Subtotal.String())
}

func TestPrice_PreservesItemOrder(t *testing.T) {
	items := []domain.CartItem{
		{ProductID: "a", Name: "first", UnitPrice: decimal.RequireFromString("1.00"), Quantity: 1},
		{ProductID: "b", Name: "second", UnitPrice: decimal.RequireFromString("2.00"), Quantity: 1},
		{ProductID: "c", Name: "third", UnitPrice: decimal.RequireFromString("3.00"), Quantity: 1},
	}

	result := Price(items)
	require.Len(t, result.Items, 3)
	for i := range items {
		assert.Equal(t, items[i].ProductID, result.Items[i].ProductID)
	}
}

func TestPrice_Deterministic(t *testing.T) {
	items := []domain.CartItem{item("19.99", 7), item("0.01", 3)}

	first := Price(items)
	second := Price(items)

	assert.True(t, first.Subtotal.Equal(second.Subtotal))
	assert.True(t, first.Tax.Equal(second.Tax))
	assert.True(t, first.Total.Equal(second.Total))
}
