package httpapi

import (
	"time"

	"github.com/andreasstove999/ecommerce-system/shop-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/shop-service-go/internal/order"
)

// cartItemResponse renders money as fixed two-decimal strings, as do the
// other responses below.
type cartItemResponse struct {
	ProductID       int64  `json:"product_id"`
	Name            string `json:"name"`
	Quantity        int    `json:"quantity"`
	Price           string `json:"price"`
	DiscountPercent int    `json:"discount_percent"`
	UnitPrice       string `json:"unit_price"`
	LineTotal       string `json:"line_total"`
}

type cartResponse struct {
	CartID            string             `json:"cart_id"`
	Items             []cartItemResponse `json:"items"`
	TotalQuantity     int                `json:"total_quantity"`
	TotalPrice        string             `json:"total_price"`
	TotalPriceWithVAT string             `json:"total_price_with_vat"`
}

func toCartResponse(s cart.Snapshot) cartResponse {
	out := cartResponse{
		CartID:            s.CartID,
		Items:             make([]cartItemResponse, 0, len(s.Items)),
		TotalQuantity:     s.TotalQuantity,
		TotalPrice:        s.TotalPrice.StringFixed(2),
		TotalPriceWithVAT: s.TotalPriceWithVAT().StringFixed(2),
	}
	for _, it := range s.Items {
		out.Items = append(out.Items, cartItemResponse{
			ProductID:       it.ProductID,
			Name:            it.Name,
			Quantity:        it.Quantity,
			Price:           it.BasePrice.StringFixed(2),
			DiscountPercent: it.DiscountPercent,
			UnitPrice:       it.UnitPrice().StringFixed(2),
			LineTotal:       it.LineTotal().StringFixed(2),
		})
	}
	return out
}

type cartItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  *int  `json:"quantity"`
}

type removeResponse struct {
	Outcome   string       `json:"outcome"`
	Remaining int          `json:"remaining"`
	Cart      cartResponse `json:"cart"`
}

type checkoutRequest struct {
	PhoneNumber  string `json:"phone_number"`
	CustomerName string `json:"customer_name"`
}

type checkoutResponse struct {
	OrderID          string `json:"order_id"`
	TotalAmount      string `json:"total_amount"`
	NotificationSent bool   `json:"notification_sent"`
}

type orderItemResponse struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Price       string `json:"price"`
	Total       string `json:"total"`
}

type orderResponse struct {
	OrderID      string              `json:"order_id"`
	PhoneNumber  string              `json:"phone_number"`
	CustomerName string              `json:"customer_name"`
	TotalAmount  string              `json:"total_amount"`
	Status       string              `json:"status"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
	Items        []orderItemResponse `json:"items"`
}

func toOrderResponse(o order.Order) orderResponse {
	out := orderResponse{
		OrderID:      o.ID,
		PhoneNumber:  o.PhoneNumber,
		CustomerName: o.CustomerName,
		TotalAmount:  o.TotalAmount.StringFixed(2),
		Status:       string(o.Status),
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
		Items:        make([]orderItemResponse, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		out.Items = append(out.Items, orderItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.Price.StringFixed(2),
			Total:       it.Total().StringFixed(2),
		})
	}
	return out
}
