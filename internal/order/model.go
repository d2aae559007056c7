package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/shop-service-go/internal/pricing"
)

// Item snapshots the unit price paid at checkout.
type Item struct {
	ID          int64
	OrderID     string
	ProductID   int64
	ProductName string
	Quantity    int
	Price       decimal.Decimal
}

func (i Item) Total() decimal.Decimal {
	return pricing.LineTotal(i.Price, i.Quantity)
}

// Order is immutable once created, apart from Status.
type Order struct {
	ID           string
	UserID       string
	PhoneNumber  string
	CustomerName string
	TotalAmount  decimal.Decimal
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Items        []Item
}
