package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/emontalvo/tienda-storefront/internal/models"
	"github.com/emontalvo/tienda-storefront/internal/utils"
	"github.com/google/uuid"
)

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// GetOrderForUpdate locks the order row for the rest of the caller's
	// transaction. Rival payment attempts against the same order queue on
	// this lock, so the loser observes the status the winner committed.
	GetOrderForUpdate(ctx context.Context, tx DBTX, id uuid.UUID) (*models.Order, error)
	GetActiveOrderByCartID(ctx context.Context, cartID uuid.UUID) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error
	UpdateOrderStatusTx(ctx context.Context, tx DBTX, id uuid.UUID, status models.OrderStatus) error
	ListOrders(ctx context.Context, status models.OrderStatus, page, size int) ([]*models.Order, int, error)
	CountOrdersByStatus(ctx context.Context) (map[models.OrderStatus]int, error)
	Revenue(ctx context.Context) (float64, error)
}

type orderRepository struct {
	store *Store
}

func NewOrderRepository(store *Store) OrderRepository {
	return &orderRepository{store: store}
}

// CreateOrder inserts the order and its item snapshots atomically.
func (r *orderRepository) CreateOrder(ctx context.Context, order *models.Order) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	return r.store.WithinTx(dbCtx, func(tx DBTX) error {

		query := `
			INSERT INTO orders (id, cart_id, email, phone, status)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at, updated_at
		`

		err := tx.QueryRowContext(dbCtx, query, order.ID, order.CartID, order.Email, order.Phone, order.Status).
			Scan(&order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		itemQuery := `
			INSERT INTO order_items (id, order_id, product_id, product_name, unit_price, quantity)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at
		`

		for i := range order.Items {
			item := &order.Items[i]

			err := tx.QueryRowContext(dbCtx, itemQuery, item.ID, order.ID, item.ProductID,
				item.ProductName, item.UnitPrice, item.Quantity).Scan(&item.CreatedAt)
			if err != nil {
				return fmt.Errorf("failed to insert order item: %w", err)
			}
		}

		return nil
	})
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return r.getOrder(ctx, r.store.DB, id, false)
}

func (r *orderRepository) GetOrderForUpdate(ctx context.Context, tx DBTX, id uuid.UUID) (*models.Order, error) {
	return r.getOrder(ctx, tx, id, true)
}

func (r *orderRepository) getOrder(ctx context.Context, tx DBTX, id uuid.UUID, forUpdate bool) (*models.Order, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	order := &models.Order{ID: id}

	query := `
		SELECT cart_id, COALESCE(email, ''), COALESCE(phone, ''), status, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	if forUpdate {
		query += `FOR UPDATE`
	}

	err := tx.QueryRowContext(dbCtx, query, id).
		Scan(&order.CartID, &order.Email, &order.Phone, &order.Status, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}

		return nil, fmt.Errorf("failed to get the order: %w", err)
	}

	items, err := r.listItems(dbCtx, tx, id)
	if err != nil {
		return nil, err
	}

	order.Items = items
	order.Total = order.ComputeTotal()

	return order, nil
}

func (r *orderRepository) listItems(ctx context.Context, tx DBTX, orderID uuid.UUID) ([]models.OrderItem, error) {

	query := `
		SELECT id, product_id, product_name, unit_price, quantity, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY product_id
	`

	rows, err := tx.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get the order items: %w", err)
	}

	defer rows.Close()

	var items []models.OrderItem

	for rows.Next() {
		var item models.OrderItem

		err := rows.Scan(&item.ID, &item.ProductID, &item.ProductName, &item.UnitPrice, &item.Quantity, &item.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}

		item.OrderID = orderID
		items = append(items, item)
	}

	return items, rows.Err()
}

// GetActiveOrderByCartID returns the cart's non-canceled order, if any.
// Backs the one-order-per-cart checkout guard.
func (r *orderRepository) GetActiveOrderByCartID(ctx context.Context, cartID uuid.UUID) (*models.Order, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	order := &models.Order{}

	query := `
		SELECT id, cart_id, COALESCE(email, ''), COALESCE(phone, ''), status, created_at, updated_at
		FROM orders
		WHERE cart_id = $1 AND status <> $2
	`

	err := r.store.DB.QueryRowContext(dbCtx, query, cartID, models.OrderStatusCanceled).
		Scan(&order.ID, &order.CartID, &order.Email, &order.Phone, &order.Status, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}

		return nil, fmt.Errorf("failed to get active order for cart: %w", err)
	}

	return order, nil
}

func (r *orderRepository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error {
	return r.UpdateOrderStatusTx(ctx, r.store.DB, id, status)
}

func (r *orderRepository) UpdateOrderStatusTx(ctx context.Context, tx DBTX, id uuid.UUID, status models.OrderStatus) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`

	result, err := tx.ExecContext(dbCtx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (r *orderRepository) ListOrders(ctx context.Context, status models.OrderStatus, page, size int) ([]*models.Order, int, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	var total int

	countQuery := `SELECT COUNT(*) FROM orders WHERE ($1 = '' OR status = $1)`

	err := r.store.DB.QueryRowContext(dbCtx, countQuery, string(status)).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * size

	query := `
		SELECT id, cart_id, COALESCE(email, ''), COALESCE(phone, ''), status, created_at, updated_at
		FROM orders
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.store.DB.QueryContext(dbCtx, query, string(status), size, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}

	defer rows.Close()

	var orders []*models.Order

	for rows.Next() {
		order := &models.Order{}

		err := rows.Scan(&order.ID, &order.CartID, &order.Email, &order.Phone, &order.Status,
			&order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}

		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for _, order := range orders {
		items, err := r.listItems(dbCtx, r.store.DB, order.ID)
		if err != nil {
			return nil, 0, err
		}

		order.Items = items
		order.Total = order.ComputeTotal()
	}

	return orders, total, nil
}

func (r *orderRepository) CountOrdersByStatus(ctx context.Context) (map[models.OrderStatus]int, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `SELECT status, COUNT(*) FROM orders GROUP BY status`

	rows, err := r.store.DB.QueryContext(dbCtx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	defer rows.Close()

	counts := make(map[models.OrderStatus]int)

	for rows.Next() {
		var status models.OrderStatus

		var count int

		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}

		counts[status] = count
	}

	return counts, rows.Err()
}

// Revenue sums item snapshots over orders that were actually collected
// (paid, shipped or delivered).
func (r *orderRepository) Revenue(ctx context.Context) (float64, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT COALESCE(SUM(oi.unit_price * oi.quantity), 0)
		FROM order_items oi
		JOIN orders o ON oi.order_id = o.id
		WHERE o.status IN ($1, $2, $3)
	`

	var revenue float64

	err := r.store.DB.QueryRowContext(dbCtx, query,
		models.OrderStatusPaid, models.OrderStatusShipped, models.OrderStatusDelivered).Scan(&revenue)
	if err != nil {
		return 0, fmt.Errorf("failed to compute revenue: %w", err)
	}

	return revenue, nil
}
