package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/emontalvo/tienda-storefront/internal/models"
	"github.com/emontalvo/tienda-storefront/internal/utils"
)

type CategoryRepository interface {
	CreateCategory(ctx context.Context, category *models.Category) error
	GetCategoryByID(ctx context.Context, id int64) (*models.Category, error)
	ListCategories(ctx context.Context) ([]*models.Category, error)
}

type categoryRepository struct {
	DB *sql.DB
}

func NewCategoryRepo(db *sql.DB) CategoryRepository {
	return &categoryRepository{DB: db}
}

func (r *categoryRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `INSERT INTO categories (name, description, active)
			  VALUES ($1, $2, TRUE)
			  RETURNING id, active, created_at, updated_at
	`

	return r.DB.QueryRowContext(dbCtx, query, category.Name, category.Description).
		Scan(&category.ID, &category.Active, &category.CreatedAt, &category.UpdatedAt)
}

func (r *categoryRepository) GetCategoryByID(ctx context.Context, id int64) (*models.Category, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	category := &models.Category{}

	query := `
		SELECT id, name, description, active, created_at, updated_at
		FROM categories
		WHERE id = $1
	`

	err := r.DB.QueryRowContext(dbCtx, query, id).Scan(&category.ID, &category.Name,
		&category.Description, &category.Active, &category.CreatedAt, &category.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}

		return nil, fmt.Errorf("querying database: %w", err)
	}

	return category, nil
}

func (r *categoryRepository) ListCategories(ctx context.Context) ([]*models.Category, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, name, description, active, created_at, updated_at
		FROM categories
		ORDER BY name
	`

	rows, err := r.DB.QueryContext(dbCtx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	defer rows.Close()

	var categories []*models.Category

	for rows.Next() {
		category := &models.Category{}

		err := rows.Scan(&category.ID, &category.Name, &category.Description,
			&category.Active, &category.CreatedAt, &category.UpdatedAt)
		if err != nil {
			return nil, err
		}

		categories = append(categories, category)
	}

	return categories, rows.Err()
}
