package cart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/shop-service-go/internal/pricing"
)

// Cart is owned by exactly one user. It is emptied by checkout, never deleted.
type Cart struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Item is a cart line joined with the current catalog price.
type Item struct {
	ProductID       int64
	Name            string
	Quantity        int
	BasePrice       decimal.Decimal
	DiscountPercent int
}

// UnitPrice is the discounted per-unit price at read time.
func (i Item) UnitPrice() decimal.Decimal {
	return pricing.EffectiveUnitPrice(i.BasePrice, i.DiscountPercent)
}

func (i Item) LineTotal() decimal.Decimal {
	return pricing.LineTotal(i.UnitPrice(), i.Quantity)
}

// Snapshot is a read-only view of a cart's contents and totals.
type Snapshot struct {
	CartID        string
	Items         []Item
	TotalQuantity int
	TotalPrice    decimal.Decimal
}

func (s Snapshot) IsEmpty() bool { return len(s.Items) == 0 }

// TotalPriceWithVAT is for display only; checkout never charges it.
func (s Snapshot) TotalPriceWithVAT() decimal.Decimal {
	return pricing.PriceWithVAT(s.TotalPrice)
}

// NewSnapshot sums the given items. A nil slice yields an empty snapshot.
func NewSnapshot(cartID string, items []Item) Snapshot {
	s := Snapshot{CartID: cartID, Items: items, TotalPrice: decimal.Zero}
	if s.Items == nil {
		s.Items = []Item{}
	}
	for _, it := range s.Items {
		s.TotalQuantity += it.Quantity
		s.TotalPrice = s.TotalPrice.Add(it.LineTotal())
	}
	return s
}

type RemoveOutcome string

const (
	OutcomeRemoved     RemoveOutcome = "removed"
	OutcomeDecremented RemoveOutcome = "decremented"
)

type RemoveResult struct {
	Outcome   RemoveOutcome
	Remaining int
}
