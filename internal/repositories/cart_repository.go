package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/emontalvo/tienda-storefront/internal/models"
	"github.com/emontalvo/tienda-storefront/internal/utils"
	"github.com/google/uuid"
)

type CartRepository interface {
	CreateCart(ctx context.Context, cart *models.Cart) error
	GetCartBySessionToken(ctx context.Context, sessionToken string) (*models.Cart, error)
	AddItem(ctx context.Context, cartID uuid.UUID, productID int64, qty int) error
	SetItemQuantity(ctx context.Context, cartID uuid.UUID, productID int64, qty int) error
	DeleteItem(ctx context.Context, cartID uuid.UUID, productID int64) error
	ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error)
	ClearItems(ctx context.Context, cartID uuid.UUID) error
}

type cartRepository struct {
	DB *sql.DB
}

func NewCartRepo(db *sql.DB) CartRepository {
	return &cartRepository{DB: db}
}

func (r *cartRepository) CreateCart(ctx context.Context, cart *models.Cart) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO carts (id, session_token)
		VALUES ($1, $2)
		RETURNING created_at, updated_at
	`

	return r.DB.QueryRowContext(dbCtx, query, cart.ID, cart.SessionToken).
		Scan(&cart.CreatedAt, &cart.UpdatedAt)
}

func (r *cartRepository) GetCartBySessionToken(ctx context.Context, sessionToken string) (*models.Cart, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, session_token, created_at, updated_at
		FROM carts
		WHERE session_token = $1
	`

	cart := &models.Cart{}

	err := r.DB.QueryRowContext(dbCtx, query, sessionToken).
		Scan(&cart.ID, &cart.SessionToken, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}

		return nil, fmt.Errorf("querying database: %w", err)
	}

	return cart, nil
}

// AddItem inserts a line for the product, or bumps the quantity when the
// (cart, product) line already exists.
func (r *cartRepository) AddItem(ctx context.Context, cartID uuid.UUID, productID int64, qty int) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO cart_items (cart_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
	`

	_, err := r.DB.ExecContext(dbCtx, query, cartID, productID, qty)
	if err != nil {
		return fmt.Errorf("failed to add cart item: %w", err)
	}

	return nil
}

func (r *cartRepository) SetItemQuantity(ctx context.Context, cartID uuid.UUID, productID int64, qty int) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO cart_items (cart_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity
	`

	_, err := r.DB.ExecContext(dbCtx, query, cartID, productID, qty)
	if err != nil {
		return fmt.Errorf("failed to set cart item quantity: %w", err)
	}

	return nil
}

// DeleteItem is a no-op when the line is absent.
func (r *cartRepository) DeleteItem(ctx context.Context, cartID uuid.UUID, productID int64) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`

	_, err := r.DB.ExecContext(dbCtx, query, cartID, productID)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}

	return nil
}

// ListItems joins the live catalog so callers see current names and prices,
// unlike order item snapshots.
func (r *cartRepository) ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT ci.cart_id, ci.product_id, p.name, p.price, ci.quantity
		FROM cart_items ci
		JOIN products p ON ci.product_id = p.id
		WHERE ci.cart_id = $1
		ORDER BY p.name
	`

	rows, err := r.DB.QueryContext(dbCtx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}

	defer rows.Close()

	var items []models.CartItem

	for rows.Next() {
		var item models.CartItem

		err := rows.Scan(&item.CartID, &item.ProductID, &item.ProductName, &item.UnitPrice, &item.Quantity)
		if err != nil {
			return nil, err
		}

		items = append(items, item)
	}

	return items, rows.Err()
}

func (r *cartRepository) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `DELETE FROM cart_items WHERE cart_id = $1`

	_, err := r.DB.ExecContext(dbCtx, query, cartID)
	if err != nil {
		return fmt.Errorf("failed to clear cart items: %w", err)
	}

	return nil
}
