package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/shop-service-go/internal/pricing"
)

// Product is the read-only view of a catalog entry.
type Product struct {
	ID              int64
	CategoryID      *int64
	Name            string
	Price           decimal.Decimal
	DiscountPercent int
	InStock         bool
}

// EffectiveUnitPrice is the price a buyer pays for one unit.
func (p Product) EffectiveUnitPrice() decimal.Decimal {
	return pricing.EffectiveUnitPrice(p.Price, p.DiscountPercent)
}
