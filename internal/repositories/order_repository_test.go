package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/emontalvo/tienda-storefront/internal/models"
	repository "github.com/emontalvo/tienda-storefront/internal/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupOrderRepoTest(t *testing.T) (repository.OrderRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create sqlmock")

	t.Cleanup(func() {
		db.Close()
	})

	repo := repository.NewOrderRepository(&repository.Store{DB: db})
	require.NotNil(t, repo)

	return repo, mock
}

func TestCreateOrder_Repo(t *testing.T) {
	repo, mock := setupOrderRepoTest(t)
	ctx := context.Background()

	order := &models.Order{
		ID:     uuid.New(),
		CartID: uuid.New(),
		Email:  "ana@example.com",
		Status: models.OrderStatusPending,
		Items: []models.OrderItem{
			{ID: uuid.New(), ProductID: 1, ProductName: "Mate Gourd", UnitPrice: 15.50, Quantity: 2},
			{ID: uuid.New(), ProductID: 2, ProductName: "Yerba 1kg", UnitPrice: 8.00, Quantity: 1},
		},
	}

	t.Run("Success - order and items inside one transaction", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO orders`).
			WithArgs(order.ID, order.CartID, order.Email, order.Phone, order.Status).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(time.Now(), time.Now()))
		mock.ExpectQuery(`INSERT INTO order_items`).
			WithArgs(order.Items[0].ID, order.ID, order.Items[0].ProductID,
				order.Items[0].ProductName, order.Items[0].UnitPrice, order.Items[0].Quantity).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
		mock.ExpectQuery(`INSERT INTO order_items`).
			WithArgs(order.Items[1].ID, order.ID, order.Items[1].ProductID,
				order.Items[1].ProductName, order.Items[1].UnitPrice, order.Items[1].Quantity).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
		mock.ExpectCommit()

		err := repo.CreateOrder(ctx, order)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failure - item insert error rolls the order back", func(t *testing.T) {
		dbErr := errors.New("constraint violation")

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO orders`).
			WithArgs(order.ID, order.CartID, order.Email, order.Phone, order.Status).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(time.Now(), time.Now()))
		mock.ExpectQuery(`INSERT INTO order_items`).
			WillReturnError(dbErr)
		mock.ExpectRollback()

		err := repo.CreateOrder(ctx, order)

		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateOrderStatus_Repo(t *testing.T) {
	repo, mock := setupOrderRepoTest(t)
	ctx := context.Background()

	orderID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(`UPDATE orders SET status = \$1`).
			WithArgs(models.OrderStatusShipped, orderID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateOrderStatus(ctx, orderID, models.OrderStatusShipped)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failure - unknown order yields sql.ErrNoRows", func(t *testing.T) {
		mock.ExpectExec(`UPDATE orders SET status = \$1`).
			WithArgs(models.OrderStatusShipped, orderID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateOrderStatus(ctx, orderID, models.OrderStatusShipped)

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetActiveOrderByCartID(t *testing.T) {
	repo, mock := setupOrderRepoTest(t)
	ctx := context.Background()

	cartID := uuid.New()

	t.Run("Success - pending order counts as active", func(t *testing.T) {
		orderID := uuid.New()

		mock.ExpectQuery(`SELECT (.+) FROM orders WHERE cart_id = \$1 AND status <> \$2`).
			WithArgs(cartID, models.OrderStatusCanceled).
			WillReturnRows(sqlmock.NewRows(
				[]string{"id", "cart_id", "email", "phone", "status", "created_at", "updated_at"}).
				AddRow(orderID, cartID, "", "", models.OrderStatusPending, time.Now(), time.Now()))

		order, err := repo.GetActiveOrderByCartID(ctx, cartID)

		require.NoError(t, err)
		assert.Equal(t, orderID, order.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failure - only canceled orders exist", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM orders WHERE cart_id = \$1 AND status <> \$2`).
			WithArgs(cartID, models.OrderStatusCanceled).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetActiveOrderByCartID(ctx, cartID)

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetOrderByID_Repo(t *testing.T) {
	repo, mock := setupOrderRepoTest(t)
	ctx := context.Background()

	orderID := uuid.New()
	cartID := uuid.New()

	t.Run("Success - total derived from item snapshots", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM orders WHERE id = \$1`).
			WithArgs(orderID).
			WillReturnRows(sqlmock.NewRows(
				[]string{"cart_id", "email", "phone", "status", "created_at", "updated_at"}).
				AddRow(cartID, "", "", models.OrderStatusPending, time.Now(), time.Now()))

		mock.ExpectQuery(`SELECT (.+) FROM order_items WHERE order_id = \$1`).
			WithArgs(orderID).
			WillReturnRows(sqlmock.NewRows(
				[]string{"id", "product_id", "product_name", "unit_price", "quantity", "created_at"}).
				AddRow(uuid.New(), int64(1), "Mate Gourd", 15.50, 2, time.Now()).
				AddRow(uuid.New(), int64(2), "Yerba 1kg", 8.00, 1, time.Now()))

		order, err := repo.GetOrderByID(ctx, orderID)

		require.NoError(t, err)
		require.Len(t, order.Items, 2)
		assert.InDelta(t, 39.00, order.Total, 0.001)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetOrderForUpdate_Repo(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create sqlmock")

	t.Cleanup(func() {
		db.Close()
	})

	repo := repository.NewOrderRepository(&repository.Store{DB: db})
	ctx := context.Background()

	orderID := uuid.New()
	cartID := uuid.New()

	t.Run("Success - status read under the row lock", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM orders WHERE id = \$1 FOR UPDATE`).
			WithArgs(orderID).
			WillReturnRows(sqlmock.NewRows(
				[]string{"cart_id", "email", "phone", "status", "created_at", "updated_at"}).
				AddRow(cartID, "", "", models.OrderStatusPaid, time.Now(), time.Now()))

		mock.ExpectQuery(`SELECT (.+) FROM order_items WHERE order_id = \$1`).
			WithArgs(orderID).
			WillReturnRows(sqlmock.NewRows(
				[]string{"id", "product_id", "product_name", "unit_price", "quantity", "created_at"}).
				AddRow(uuid.New(), int64(1), "Mate Gourd", 15.50, 2, time.Now()))

		order, err := repo.GetOrderForUpdate(ctx, db, orderID)

		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusPaid, order.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRevenue(t *testing.T) {
	repo, mock := setupOrderRepoTest(t)
	ctx := context.Background()

	t.Run("Success - sums only collected orders", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COALESCE\(SUM\(oi.unit_price \* oi.quantity\), 0\)`).
			WithArgs(models.OrderStatusPaid, models.OrderStatusShipped, models.OrderStatusDelivered).
			WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(123.45))

		revenue, err := repo.Revenue(ctx)

		require.NoError(t, err)
		assert.InDelta(t, 123.45, revenue, 0.001)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
