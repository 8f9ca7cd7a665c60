package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/emontalvo/tienda-storefront/internal/models"
	repository "github.com/emontalvo/tienda-storefront/internal/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPaymentRepoTest(t *testing.T) (repository.PaymentRepository, *sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create sqlmock")

	t.Cleanup(func() {
		db.Close()
	})

	repo := repository.NewPaymentRepository(db)
	require.NotNil(t, repo)

	return repo, db, mock
}

func paymentColumns() []string {
	return []string{"id", "order_id", "amount", "currency", "method", "status",
		"external_reference", "created_at", "updated_at"}
}

func TestCreatePayment_Repo(t *testing.T) {
	repo, _, mock := setupPaymentRepoTest(t)
	ctx := context.Background()

	payment := &models.Payment{
		ID:       uuid.New(),
		OrderID:  uuid.New(),
		Amount:   55.00,
		Currency: "usd",
		Method:   "card",
		Status:   models.PaymentStatusPending,
	}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO payments`).
			WithArgs(payment.ID, payment.OrderID, payment.Amount, payment.Currency,
				payment.Method, payment.Status, payment.ExternalReference).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(time.Now(), time.Now()))

		err := repo.CreatePayment(ctx, payment)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetPaymentForUpdate(t *testing.T) {
	repo, db, mock := setupPaymentRepoTest(t)
	ctx := context.Background()

	paymentID := uuid.New()
	orderID := uuid.New()

	t.Run("Success - locks the row", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM payments WHERE id = \$1 FOR UPDATE`).
			WithArgs(paymentID).
			WillReturnRows(sqlmock.NewRows(paymentColumns()).
				AddRow(paymentID, orderID, 55.00, "usd", "card", models.PaymentStatusPending,
					"", time.Now(), time.Now()))

		payment, err := repo.GetPaymentForUpdate(ctx, db, paymentID)

		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusPending, payment.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMarkApproved(t *testing.T) {
	repo, db, mock := setupPaymentRepoTest(t)
	ctx := context.Background()

	paymentID := uuid.New()
	ref := "cs_settled_123"

	t.Run("Success - flips pending to approved", func(t *testing.T) {
		mock.ExpectExec(`UPDATE payments SET status = \$1, external_reference = \$2`).
			WithArgs(models.PaymentStatusApproved, ref, paymentID, models.PaymentStatusPending).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.MarkApproved(ctx, db, paymentID, ref)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failure - already settled payment is left untouched", func(t *testing.T) {
		mock.ExpectExec(`UPDATE payments SET status = \$1, external_reference = \$2`).
			WithArgs(models.PaymentStatusApproved, ref, paymentID, models.PaymentStatusPending).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.MarkApproved(ctx, db, paymentID, ref)

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMarkRejected(t *testing.T) {
	repo, _, mock := setupPaymentRepoTest(t)
	ctx := context.Background()

	paymentID := uuid.New()

	t.Run("Failure - rejection of an approved payment is refused", func(t *testing.T) {
		mock.ExpectExec(`UPDATE payments SET status = \$1, external_reference = \$2`).
			WithArgs(models.PaymentStatusRejected, "cs_x", paymentID, models.PaymentStatusPending).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.MarkRejected(ctx, paymentID, "cs_x")

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCountPending(t *testing.T) {
	repo, _, mock := setupPaymentRepoTest(t)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM payments WHERE status = \$1`).
			WithArgs(models.PaymentStatusPending).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

		count, err := repo.CountPending(ctx)

		require.NoError(t, err)
		assert.Equal(t, 3, count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
