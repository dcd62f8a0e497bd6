package shop

import (
	"context"
	"errors"
	"time"

	"github.com/talkincode/webshop/internal/domain"
	"github.com/talkincode/webshop/internal/repository"
)

type CartService struct {
	store *repository.Store
}

func NewCartService(store *repository.Store) *CartService {
	return &CartService{store: store}
}

func (s *CartService) Lines(ctx context.Context, userId int64) ([]domain.CartLine, error) {
	return s.store.Carts.Lines(ctx, userId)
}

// AddToCart creates the (user, product) line or adds quantity to it. The
// price snapshot is refreshed to the current product price either way.
func (s *CartService) AddToCart(ctx context.Context, userId, productId int64, quantity int) (*domain.CartItem, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	product, err := s.store.Products.GetByID(ctx, productId)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrProductNotFound
	} else if err != nil {
		return nil, err
	}

	item, err := s.store.Carts.Find(ctx, userId, productId)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		item = &domain.CartItem{UserId: userId, ProductId: productId}
	case err != nil:
		return nil, err
	}

	wanted := item.Quantity + quantity
	if wanted > product.Stock {
		return nil, &InsufficientStockError{
			ProductId:   product.ID,
			ProductName: product.Name,
			Available:   product.Stock,
			Requested:   wanted,
		}
	}

	item.Quantity = wanted
	item.Price = product.Price
	item.UpdatedAt = time.Now()
	if err := s.store.Carts.Save(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateCartItem overwrites the quantity of one of the user's lines. A
// quantity of zero or less removes the line.
func (s *CartService) UpdateCartItem(ctx context.Context, userId, cartItemId int64, quantity int) error {
	item, err := s.store.Carts.GetByID(ctx, userId, cartItemId)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrCartItemNotFound
	} else if err != nil {
		return err
	}

	if quantity <= 0 {
		return s.store.Carts.Delete(ctx, userId, item.ID)
	}

	product, err := s.store.Products.GetByID(ctx, item.ProductId)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrProductNotFound
	} else if err != nil {
		return err
	}
	if quantity > product.Stock {
		return &InsufficientStockError{
			ProductId:   product.ID,
			ProductName: product.Name,
			Available:   product.Stock,
			Requested:   quantity,
		}
	}

	item.Quantity = quantity
	item.UpdatedAt = time.Now()
	return s.store.Carts.Save(ctx, item)
}

// RemoveCartItem is idempotent.
func (s *CartService) RemoveCartItem(ctx context.Context, userId, cartItemId int64) error {
	return s.store.Carts.Delete(ctx, userId, cartItemId)
}

// PruneStale drops cart lines nobody touched since before.
func (s *CartService) PruneStale(ctx context.Context, before time.Time) (int64, error) {
	return s.store.Carts.DeleteStale(ctx, before)
}
