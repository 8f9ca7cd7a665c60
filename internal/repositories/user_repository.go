package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/emontalvo/tienda-storefront/internal/models"
	"github.com/emontalvo/tienda-storefront/internal/utils"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type userRepository struct {
	DB *sql.DB
}

func NewUserRepo(db *sql.DB) UserRepository {
	return &userRepository{DB: db}
}

func (r *userRepository) CreateUser(ctx context.Context, user *models.User) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO users (id, name, email, password_hash, role, active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING created_at
	`

	return r.DB.QueryRowContext(dbCtx, query, user.ID, user.Name, user.Email, user.Password, user.Role).
		Scan(&user.CreatedAt)
}

func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	user := &models.User{}

	query := `
		SELECT id, name, email, password_hash, role, active, created_at
		FROM users
		WHERE email = $1
	`

	err := r.DB.QueryRowContext(dbCtx, query, email).Scan(&user.ID, &user.Name, &user.Email,
		&user.Password, &user.Role, &user.Active, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}

		return nil, fmt.Errorf("querying database: %w", err)
	}

	return user, nil
}
