package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/andreasstove999/ecommerce-system/shop-service-go/internal/order"
)

const (
	OrderCreatedEventName    = "OrderCreated"
	OrderCreatedEventVersion = 1
	orderCreatedSchema       = "contracts/events/order/OrderCreated.v1.payload.schema.json"
)

type OrderCreatedItem struct {
	ProductID int64  `json:"productId"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
}

type OrderCreatedPayload struct {
	OrderID     string             `json:"orderId"`
	UserID      string             `json:"userId"`
	Items       []OrderCreatedItem `json:"items"`
	TotalAmount string             `json:"totalAmount"`
	Status      string             `json:"status"`
	Timestamp   time.Time          `json:"timestamp"`
}

type OrderCreatedEnvelope = EventEnvelope[OrderCreatedPayload]

func newOrderCreatedEvent(o *order.Order, seq int64, producer string, meta Metadata, now time.Time) OrderCreatedEnvelope {
	if meta.CorrelationID == "" {
		meta.CorrelationID = uuid.NewString()
	}

	items := make([]OrderCreatedItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderCreatedItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price.StringFixed(2),
		})
	}

	return OrderCreatedEnvelope{
		EventName:     OrderCreatedEventName,
		EventVersion:  OrderCreatedEventVersion,
		EventID:       uuid.NewString(),
		CorrelationID: meta.CorrelationID,
		CausationID:   meta.CausationID,
		Producer:      producer,
		PartitionKey:  o.ID,
		Sequence:      &seq,
		OccurredAt:    now,
		Schema:        orderCreatedSchema,
		Payload: OrderCreatedPayload{
			OrderID:     o.ID,
			UserID:      o.UserID,
			Items:       items,
			TotalAmount: o.TotalAmount.StringFixed(2),
			Status:      string(o.Status),
			Timestamp:   o.CreatedAt,
		},
	}
}
