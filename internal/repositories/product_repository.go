package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/emontalvo/tienda-storefront/internal/models"
	"github.com/emontalvo/tienda-storefront/internal/utils"
)

type ProductRepository interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product) error
	ListProducts(ctx context.Context, activeOnly bool, categoryID int64, page, size int) ([]*models.Product, int, error)
	ListLowStock(ctx context.Context, threshold, limit int) ([]*models.Product, error)

	// GetProductForUpdate locks the product row for the duration of the
	// caller's transaction. Used by payment confirmation to close the race
	// between concurrent confirmations competing for the same stock.
	GetProductForUpdate(ctx context.Context, tx DBTX, id int64) (*models.Product, error)
	DecrementStock(ctx context.Context, tx DBTX, id int64, qty int) error
}

type productRepository struct {
	DB *sql.DB
}

func NewProductRepo(db *sql.DB) ProductRepository {
	return &productRepository{DB: db}
}

func (r *productRepository) CreateProduct(ctx context.Context, product *models.Product) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `INSERT INTO products (category_id, name, description, price, stock, active)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id, created_at, updated_at
	`

	return r.DB.QueryRowContext(dbCtx, query, product.CategoryID, product.Name, product.Description,
		product.Price, product.Stock, product.Active).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
}

func (r *productRepository) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	product := &models.Product{}

	query := `
		SELECT p.id, p.category_id, p.name, p.description, p.price,
		       p.stock, p.active, p.created_at, p.updated_at,
		       c.id, c.name, c.description
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.id
		WHERE p.id = $1`

	var category models.Category

	err := r.DB.QueryRowContext(dbCtx, query, id).Scan(&product.ID, &product.CategoryID, &product.Name,
		&product.Description, &product.Price, &product.Stock, &product.Active,
		&product.CreatedAt, &product.UpdatedAt, &category.ID, &category.Name, &category.Description)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}

		return nil, fmt.Errorf("querying database: %w", err)
	}

	product.Category = &category

	return product, nil
}

func (r *productRepository) UpdateProduct(ctx context.Context, product *models.Product) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE products SET category_id = $1, name = $2, description = $3, price = $4, stock = $5, active = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING updated_at
	`

	return r.DB.QueryRowContext(dbCtx, query, product.CategoryID, product.Name, product.Description,
		product.Price, product.Stock, product.Active, product.ID).Scan(&product.UpdatedAt)
}

// ListProducts pages through the catalog. A zero categoryID means no
// category filter.
func (r *productRepository) ListProducts(ctx context.Context, activeOnly bool, categoryID int64, page, size int) ([]*models.Product, int, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	var total int

	countQuery := `SELECT COUNT(*) FROM products WHERE ($1 = FALSE OR active = TRUE) AND ($2 = 0 OR category_id = $2)`

	err := r.DB.QueryRowContext(dbCtx, countQuery, activeOnly, categoryID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * size

	query := `
		SELECT p.id, p.category_id, p.name, p.description, p.price,
		       p.stock, p.active, p.created_at, p.updated_at,
		       c.id, c.name, c.description
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.id
		WHERE ($1 = FALSE OR p.active = TRUE) AND ($2 = 0 OR p.category_id = $2)
		ORDER BY p.name
		LIMIT $3 OFFSET $4
	`

	rows, err := r.DB.QueryContext(dbCtx, query, activeOnly, categoryID, size, offset)
	if err != nil {
		return nil, 0, err
	}

	defer rows.Close()

	var products []*models.Product

	for rows.Next() {
		product := &models.Product{}
		category := &models.Category{}

		err := rows.Scan(&product.ID, &product.CategoryID, &product.Name, &product.Description,
			&product.Price, &product.Stock, &product.Active, &product.CreatedAt, &product.UpdatedAt,
			&category.ID, &category.Name, &category.Description)
		if err != nil {
			return nil, 0, err
		}

		product.Category = category
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

func (r *productRepository) ListLowStock(ctx context.Context, threshold, limit int) ([]*models.Product, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, category_id, name, description, price, stock, active, created_at, updated_at
		FROM products
		WHERE active = TRUE AND stock < $1
		ORDER BY stock, name
		LIMIT $2
	`

	rows, err := r.DB.QueryContext(dbCtx, query, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock products: %w", err)
	}

	defer rows.Close()

	var products []*models.Product

	for rows.Next() {
		product := &models.Product{}

		err := rows.Scan(&product.ID, &product.CategoryID, &product.Name, &product.Description,
			&product.Price, &product.Stock, &product.Active, &product.CreatedAt, &product.UpdatedAt)
		if err != nil {
			return nil, err
		}

		products = append(products, product)
	}

	return products, rows.Err()
}

func (r *productRepository) GetProductForUpdate(ctx context.Context, tx DBTX, id int64) (*models.Product, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	product := &models.Product{}

	query := `
		SELECT id, category_id, name, description, price, stock, active, created_at, updated_at
		FROM products
		WHERE id = $1
		FOR UPDATE
	`

	err := tx.QueryRowContext(dbCtx, query, id).Scan(&product.ID, &product.CategoryID, &product.Name,
		&product.Description, &product.Price, &product.Stock, &product.Active,
		&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}

		return nil, fmt.Errorf("failed to lock product row: %w", err)
	}

	return product, nil
}

func (r *productRepository) DecrementStock(ctx context.Context, tx DBTX, id int64, qty int) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	// The stock >= qty guard makes the decrement safe even if the caller
	// skipped the locking read.
	query := `
		UPDATE products SET stock = stock - $1, updated_at = NOW()
		WHERE id = $2 AND stock >= $1
	`

	result, err := tx.ExecContext(dbCtx, query, qty, id)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
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
