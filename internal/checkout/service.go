// Package checkout turns a user's cart into an order.
//
// A checkout runs START -> VALIDATED -> COMMITTED -> NOTIFIED -> DONE. The
// order insert and the cart clear share one transaction that holds the cart
// row lock; notification and event publishing happen after commit and only
// ever downgrade the result, never fail it.
package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/shop-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/shop-service-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/shop-service-go/internal/notify"
	"github.com/andreasstove999/ecommerce-system/shop-service-go/internal/order"
)

// commitTimeout bounds the transaction once it no longer follows the caller.
const commitTimeout = 15 * time.Second

type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, o *order.Order, meta events.Metadata) error
}

type Request struct {
	UserID        string
	Details       Details
	CorrelationID string
}

type Result struct {
	OrderID          string
	TotalAmount      decimal.Decimal
	NotificationSent bool
}

type Service struct {
	carts    cart.TransactionalRepository
	orders   order.TransactionalRepository
	notifier notify.Sender
	events   EventPublisher
	logger   *zap.Logger
	validate *validator.Validate
}

func NewService(carts cart.TransactionalRepository, orders order.TransactionalRepository, notifier notify.Sender, publisher EventPublisher, logger *zap.Logger) *Service {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = notify.NewWithTransports(0, logger)
	}
	return &Service{
		carts:    carts,
		orders:   orders,
		notifier: notifier,
		events:   publisher,
		logger:   logger,
		validate: newValidator(),
	}
}

// Checkout returns ErrEmptyCart, *ValidationError or *CheckoutError on
// failure. In all those cases no order exists and the cart is untouched.
func (s *Service) Checkout(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, &CheckoutError{Err: err}
	}

	// From here the transaction commits or rolls back as a unit, whatever
	// the caller does.
	txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
	o, err := s.commit(txCtx, req)
	cancel()
	if err != nil {
		return Result{}, err
	}
	s.logger.Info("order created",
		zap.String("order_id", o.ID),
		zap.String("user_id", o.UserID),
		zap.String("total_amount", o.TotalAmount.StringFixed(2)),
		zap.Int("items", len(o.Items)),
	)

	// The order is durable now; the caller going away must not cut these short.
	after := context.WithoutCancel(ctx)

	sent := s.notifier.Send(after, FormatOrderMessage(o))
	if !sent {
		s.logger.Warn("order notification not delivered", zap.String("order_id", o.ID))
	}

	if err := s.events.PublishOrderCreated(after, o, events.Metadata{CorrelationID: req.CorrelationID}); err != nil {
		s.logger.Error("publish OrderCreated failed", zap.String("order_id", o.ID), zap.Error(err))
	}

	return Result{OrderID: o.ID, TotalAmount: o.TotalAmount, NotificationSent: sent}, nil
}

func (s *Service) commit(ctx context.Context, req Request) (*order.Order, error) {
	tx, err := s.carts.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, &CheckoutError{Err: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// START: the lock makes a concurrent second checkout wait here, then see
	// the cart this one cleared.
	cartID, err := s.carts.LockForCheckoutWithTx(ctx, tx, req.UserID)
	if errors.Is(err, cart.ErrCartNotFound) {
		return nil, ErrEmptyCart
	}
	if err != nil {
		return nil, &CheckoutError{Err: err}
	}
	items, err := s.carts.ItemsWithTx(ctx, tx, cartID)
	if err != nil {
		return nil, &CheckoutError{Err: err}
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	// VALIDATED
	details := req.Details.normalized()
	if err := validateDetails(s.validate, details); err != nil {
		return nil, err
	}

	// COMMITTED
	o := buildOrder(req.UserID, details, items)
	if err := s.orders.CreateWithTx(ctx, tx, o); err != nil {
		return nil, &CheckoutError{Err: err}
	}
	if err := s.carts.ClearWithTx(ctx, tx, cartID); err != nil {
		return nil, &CheckoutError{Err: err}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, &CheckoutError{Err: err}
	}
	return o, nil
}

// buildOrder prices every line once; the header total is the sum of the
// same per-item prices stored on the items.
func buildOrder(userID string, d Details, items []cart.Item) *order.Order {
	o := &order.Order{
		UserID:       userID,
		PhoneNumber:  d.PhoneNumber,
		CustomerName: d.CustomerName,
		Status:       order.StatusNew,
		TotalAmount:  decimal.Zero,
		Items:        make([]order.Item, 0, len(items)),
	}
	for _, it := range items {
		oi := order.Item{
			ProductID:   it.ProductID,
			ProductName: it.Name,
			Quantity:    it.Quantity,
			Price:       it.UnitPrice(),
		}
		o.Items = append(o.Items, oi)
		o.TotalAmount = o.TotalAmount.Add(oi.Total())
	}
	return o
}
