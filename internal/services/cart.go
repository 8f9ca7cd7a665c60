package service

import (
	"context"
	"database/sql"
	"errors"

	appErrors "github.com/emontalvo/tienda-storefront/internal/errors"
	"github.com/emontalvo/tienda-storefront/internal/models"
	repository "github.com/emontalvo/tienda-storefront/internal/repositories"
	"github.com/google/uuid"
)

type CartService interface {
	GetOrCreateCart(ctx context.Context, sessionToken string) (*models.Cart, error)
	AddItem(ctx context.Context, sessionToken string, req *models.AddItemRequest) (*models.Cart, error)
	SetQuantity(ctx context.Context, sessionToken string, req *models.UpdateQuantityRequest) (*models.Cart, error)
	RemoveItem(ctx context.Context, sessionToken string, productID int64) (*models.Cart, error)
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) CartService {
	return &cartService{cartRepo: cartRepo, productRepo: productRepo}
}

// GetOrCreateCart resolves the cart for a session token, creating one
// lazily on first use.
func (s *cartService) GetOrCreateCart(ctx context.Context, sessionToken string) (*models.Cart, error) {

	cart, err := s.cartRepo.GetCartBySessionToken(ctx, sessionToken)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.DatabaseError("Failed to load cart").WithError(err)
		}

		cart = &models.Cart{ID: uuid.New(), SessionToken: sessionToken}
		if err := s.cartRepo.CreateCart(ctx, cart); err != nil {
			return nil, appErrors.DatabaseError("Failed to create cart").WithError(err)
		}
	}

	return s.loadLines(ctx, cart)
}

// AddItem increments the product's line, creating it when absent. Stock is
// deliberately not checked here: reservation happens at payment confirmation,
// so an abandoned cart never holds inventory hostage.
func (s *cartService) AddItem(ctx context.Context, sessionToken string, req *models.AddItemRequest) (*models.Cart, error) {

	cart, err := s.GetOrCreateCart(ctx, sessionToken)
	if err != nil {
		return nil, err
	}

	if err := s.requireSellable(ctx, req.ProductID); err != nil {
		return nil, err
	}

	qty := req.Quantity
	if qty < 1 {
		qty = 1
	}

	if err := s.cartRepo.AddItem(ctx, cart.ID, req.ProductID, qty); err != nil {
		return nil, appErrors.DatabaseError("Failed to add item to cart").WithError(err)
	}

	return s.loadLines(ctx, cart)
}

// SetQuantity replaces the line's quantity; zero or negative removes it.
func (s *cartService) SetQuantity(ctx context.Context, sessionToken string, req *models.UpdateQuantityRequest) (*models.Cart, error) {

	cart, err := s.GetOrCreateCart(ctx, sessionToken)
	if err != nil {
		return nil, err
	}

	if req.Quantity <= 0 {
		if err := s.cartRepo.DeleteItem(ctx, cart.ID, req.ProductID); err != nil {
			return nil, appErrors.DatabaseError("Failed to remove item from cart").WithError(err)
		}

		return s.loadLines(ctx, cart)
	}

	if err := s.requireSellable(ctx, req.ProductID); err != nil {
		return nil, err
	}

	if err := s.cartRepo.SetItemQuantity(ctx, cart.ID, req.ProductID, req.Quantity); err != nil {
		return nil, appErrors.DatabaseError("Failed to update cart item").WithError(err)
	}

	return s.loadLines(ctx, cart)
}

// RemoveItem deletes the line; removing an absent product is not an error.
func (s *cartService) RemoveItem(ctx context.Context, sessionToken string, productID int64) (*models.Cart, error) {

	cart, err := s.GetOrCreateCart(ctx, sessionToken)
	if err != nil {
		return nil, err
	}

	if err := s.cartRepo.DeleteItem(ctx, cart.ID, productID); err != nil {
		return nil, appErrors.DatabaseError("Failed to remove item from cart").WithError(err)
	}

	return s.loadLines(ctx, cart)
}

// requireSellable rejects products that are missing or inactive. Both look
// the same to the shopper: not purchasable.
func (s *cartService) requireSellable(ctx context.Context, productID int64) error {

	product, err := s.productRepo.GetProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.NotFoundError("Product not found")
		}

		return appErrors.DatabaseError("Failed to load product").WithError(err)
	}

	if !product.Active {
		return appErrors.NotFoundError("Product is not available")
	}

	return nil
}

// loadLines refreshes the cart's lines and live total. The total always
// reflects current catalog prices, unlike a confirmed order.
func (s *cartService) loadLines(ctx context.Context, cart *models.Cart) (*models.Cart, error) {

	items, err := s.cartRepo.ListItems(ctx, cart.ID)
	if err != nil {
		return nil, appErrors.DatabaseError("Failed to load cart items").WithError(err)
	}

	cart.Items = items

	var total float64
	for i := range items {
		total += items[i].Subtotal()
	}

	cart.Total = total

	return cart, nil
}
