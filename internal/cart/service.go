package cart

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/andreasstove999/ecommerce-system/shop-service-go/internal/catalog"
)

// MaxQuantity is the largest quantity the cart_items column holds.
const MaxQuantity = math.MaxInt32

var ErrInvalidQuantity = errors.New("quantity must be between 1 and 2147483647")

func validQuantity(q int) bool { return q >= 1 && q <= MaxQuantity }

// ProductLookup is the read-only catalog dependency.
type ProductLookup interface {
	GetByID(ctx context.Context, id int64) (catalog.Product, error)
}

// Service applies cart rules on top of the repository.
type Service struct {
	repo     Repository
	products ProductLookup
}

func NewService(repo Repository, products ProductLookup) *Service {
	return &Service{repo: repo, products: products}
}

func (s *Service) GetOrCreate(ctx context.Context, userID string) (Cart, error) {
	return s.repo.GetOrCreate(ctx, userID)
}

// AddItem adds quantity units of productID, accumulating onto an existing line.
func (s *Service) AddItem(ctx context.Context, cartID string, productID int64, quantity int) error {
	if !validQuantity(quantity) {
		return ErrInvalidQuantity
	}
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("lookup product: %w", err)
	}
	return s.repo.AddItem(ctx, cartID, productID, quantity)
}

// RemoveItem drops the line when quantity covers it, otherwise decrements it.
func (s *Service) RemoveItem(ctx context.Context, cartID string, productID int64, quantity int) (RemoveResult, error) {
	if !validQuantity(quantity) {
		return RemoveResult{}, ErrInvalidQuantity
	}
	return s.repo.RemoveItem(ctx, cartID, productID, quantity)
}

func (s *Service) Clear(ctx context.Context, cartID string) error {
	return s.repo.Clear(ctx, cartID)
}

func (s *Service) Snapshot(ctx context.Context, cartID string) (Snapshot, error) {
	items, err := s.repo.Items(ctx, cartID)
	if err != nil {
		return Snapshot{}, err
	}
	return NewSnapshot(cartID, items), nil
}
