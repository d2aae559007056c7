// Package pricing holds the money rules shared by the cart view and checkout.
// All amounts are rounded to two decimal places, half away from zero.
package pricing

import "github.com/shopspring/decimal"

// VATRate is the flat multiplier applied by PriceWithVAT.
var VATRate = decimal.RequireFromString("1.20")

var hundred = decimal.NewFromInt(100)

// PriceWithVAT returns base * VATRate rounded to cents.
func PriceWithVAT(base decimal.Decimal) decimal.Decimal {
	return base.Mul(VATRate).Round(2)
}

// EffectiveUnitPrice applies a percentage discount to base. A discount of zero
// (or anything outside 1..100) leaves base untouched.
func EffectiveUnitPrice(base decimal.Decimal, discountPercent int) decimal.Decimal {
	if discountPercent <= 0 || discountPercent > 100 {
		return base
	}
	factor := hundred.Sub(decimal.NewFromInt(int64(discountPercent)))
	return base.Mul(factor).Div(hundred).Round(2)
}

// LineTotal is unit * quantity.
func LineTotal(unit decimal.Decimal, quantity int) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(quantity)))
}
