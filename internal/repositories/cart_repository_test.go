package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	repository "github.com/emontalvo/tienda-storefront/internal/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCartRepoTest(t *testing.T) (repository.CartRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create sqlmock")

	t.Cleanup(func() {
		db.Close()
	})

	repo := repository.NewCartRepo(db)
	require.NotNil(t, repo)

	return repo, mock
}

func TestAddItem_Repo(t *testing.T) {
	repo, mock := setupCartRepoTest(t)
	ctx := context.Background()

	cartID := uuid.New()

	t.Run("Success - upsert bumps an existing line", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO cart_items (.+) ON CONFLICT \(cart_id, product_id\)`).
			WithArgs(cartID, int64(7), 2).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.AddItem(ctx, cartID, 7, 2)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetCartBySessionToken(t *testing.T) {
	repo, mock := setupCartRepoTest(t)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		cartID := uuid.New()

		mock.ExpectQuery(`SELECT (.+) FROM carts WHERE session_token = \$1`).
			WithArgs("session-abc").
			WillReturnRows(sqlmock.NewRows([]string{"id", "session_token", "created_at", "updated_at"}).
				AddRow(cartID, "session-abc", time.Now(), time.Now()))

		cart, err := repo.GetCartBySessionToken(ctx, "session-abc")

		require.NoError(t, err)
		assert.Equal(t, cartID, cart.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failure - unknown token passes through sql.ErrNoRows", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM carts WHERE session_token = \$1`).
			WithArgs("ghost").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetCartBySessionToken(ctx, "ghost")

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListItems_Repo(t *testing.T) {
	repo, mock := setupCartRepoTest(t)
	ctx := context.Background()

	cartID := uuid.New()

	t.Run("Success - joins live product names and prices", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM cart_items ci JOIN products p`).
			WithArgs(cartID).
			WillReturnRows(sqlmock.NewRows(
				[]string{"cart_id", "product_id", "name", "price", "quantity"}).
				AddRow(cartID, int64(1), "Mate Gourd", 15.50, 2).
				AddRow(cartID, int64(2), "Yerba 1kg", 8.00, 1))

		items, err := repo.ListItems(ctx, cartID)

		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.InDelta(t, 31.00, items[0].Subtotal(), 0.001)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestClearItems(t *testing.T) {
	repo, mock := setupCartRepoTest(t)
	ctx := context.Background()

	cartID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM cart_items WHERE cart_id = \$1`).
			WithArgs(cartID).
			WillReturnResult(sqlmock.NewResult(0, 3))

		err := repo.ClearItems(ctx, cartID)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
