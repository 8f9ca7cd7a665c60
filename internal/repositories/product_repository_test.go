package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/emontalvo/tienda-storefront/internal/models"
	repository "github.com/emontalvo/tienda-storefront/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupProductRepoTest(t *testing.T) (repository.ProductRepository, *sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create sqlmock")

	t.Cleanup(func() {
		db.Close()
	})

	repo := repository.NewProductRepo(db)
	require.NotNil(t, repo)

	return repo, db, mock
}

func productColumns() []string {
	return []string{"id", "category_id", "name", "description", "price", "stock", "active", "created_at", "updated_at"}
}

func TestCreateProduct_Repo(t *testing.T) {
	repo, _, mock := setupProductRepoTest(t)
	ctx := context.Background()

	product := &models.Product{
		CategoryID:  3,
		Name:        "Mate Imperial",
		Description: "Hand carved gourd",
		Price:       42.00,
		Stock:       10,
		Active:      true,
	}

	expectedSQL := regexp.QuoteMeta(`INSERT INTO products`)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(expectedSQL).
			WithArgs(product.CategoryID, product.Name, product.Description, product.Price, product.Stock, product.Active).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow(int64(7), time.Now(), time.Now()))

		err := repo.CreateProduct(ctx, product)

		require.NoError(t, err)
		assert.Equal(t, int64(7), product.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failure - DB error", func(t *testing.T) {
		dbErr := errors.New("connection reset")
		mock.ExpectQuery(expectedSQL).
			WithArgs(product.CategoryID, product.Name, product.Description, product.Price, product.Stock, product.Active).
			WillReturnError(dbErr)

		err := repo.CreateProduct(ctx, product)

		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetProductForUpdate(t *testing.T) {
	repo, db, mock := setupProductRepoTest(t)
	ctx := context.Background()

	expectedSQL := `SELECT (.+) FROM products WHERE id = \$1 FOR UPDATE`

	t.Run("Success - row is locked", func(t *testing.T) {
		mock.ExpectQuery(expectedSQL).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows(productColumns()).
				AddRow(int64(7), int64(3), "Mate Imperial", "Hand carved", 42.00, 5, true, time.Now(), time.Now()))

		product, err := repo.GetProductForUpdate(ctx, db, 7)

		require.NoError(t, err)
		assert.Equal(t, 5, product.Stock)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failure - missing product passes through sql.ErrNoRows", func(t *testing.T) {
		mock.ExpectQuery(expectedSQL).
			WithArgs(int64(404)).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetProductForUpdate(ctx, db, 404)

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDecrementStock(t *testing.T) {
	repo, db, mock := setupProductRepoTest(t)
	ctx := context.Background()

	expectedSQL := regexp.QuoteMeta(`UPDATE products SET stock = stock - $1, updated_at = NOW() WHERE id = $2 AND stock >= $1`)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(expectedSQL).
			WithArgs(2, int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.DecrementStock(ctx, db, 7, 2)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failure - guard rejects an oversized decrement", func(t *testing.T) {
		mock.ExpectExec(expectedSQL).
			WithArgs(50, int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.DecrementStock(ctx, db, 7, 50)

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListProducts_Repo(t *testing.T) {
	repo, _, mock := setupProductRepoTest(t)
	ctx := context.Background()

	t.Run("Success - active only with pagination", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM products`)).
			WithArgs(true, int64(0)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		mock.ExpectQuery(`SELECT (.+) FROM products p LEFT JOIN categories c`).
			WithArgs(true, int64(0), 20, 0).
			WillReturnRows(sqlmock.NewRows(append(productColumns(), "c_id", "c_name", "c_description")).
				AddRow(int64(7), int64(3), "Mate Imperial", "Hand carved", 42.00, 5, true,
					time.Now(), time.Now(), int64(3), "Mates", "Gourds and straws"))

		products, total, err := repo.ListProducts(ctx, true, 0, 1, 20)

		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, products, 1)
		assert.Equal(t, "Mates", products[0].Category.Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListLowStock(t *testing.T) {
	repo, _, mock := setupProductRepoTest(t)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM products WHERE active = TRUE AND stock < \$1`).
			WithArgs(10, 5).
			WillReturnRows(sqlmock.NewRows(productColumns()).
				AddRow(int64(9), int64(3), "Bombilla", "Alpaca", 6.50, 2, true, time.Now(), time.Now()))

		products, err := repo.ListLowStock(ctx, 10, 5)

		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, 2, products[0].Stock)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
