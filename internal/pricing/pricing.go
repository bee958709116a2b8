// Package pricing normalizes catalog prices for cart arithmetic. The catalog
// stores high-precision decimals; everything downstream (reminder totals,
// discount reconciliation, API payloads) works with plain floats rounded to
// cents.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/calebmonroy/storefront-backend/pkg/db/models"
)

// UnitPrice resolves the effective per-unit price for a line item. A variant
// price, when set, wins over the product price. Missing catalog references
// resolve to zero so a stale line item never fails a sweep or a quote.
func UnitPrice(product *models.Product, variant *models.ProductVariant) float64 {
	if variant != nil && variant.SellingPrice != nil {
		return round2(variant.SellingPrice.InexactFloat64())
	}
	if product != nil {
		return round2(product.SellingPrice.InexactFloat64())
	}
	return 0
}

// LineTotal is the unit price multiplied by quantity, rounded to cents.
func LineTotal(product *models.Product, variant *models.ProductVariant, quantity int) float64 {
	if quantity <= 0 {
		return 0
	}
	return round2(UnitPrice(product, variant) * float64(quantity))
}

// ApplyDiscount reduces an amount by the given percentage, rounded to cents.
// Percentages outside [0, 100] are clamped.
func ApplyDiscount(amount, percent float64) float64 {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return round2(amount * (1 - percent/100))
}

// DisplayName renders the customer-facing name for a line item, appending
// the variant name when one is set.
func DisplayName(product *models.Product, variant *models.ProductVariant) string {
	name := ""
	if product != nil {
		name = product.Name
	}
	if variant != nil && variant.Name != "" {
		if name == "" {
			return variant.Name
		}
		return name + " - " + variant.Name
	}
	return name
}

// Round snaps a computed amount to cents. Sums of already-rounded line
// totals can still drift in float space; callers round once at the end.
func Round(v float64) float64 {
	return round2(v)
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
