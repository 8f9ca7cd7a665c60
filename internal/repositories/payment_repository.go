package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/emontalvo/tienda-storefront/internal/models"
	"github.com/emontalvo/tienda-storefront/internal/utils"
	"github.com/google/uuid"
)

type PaymentRepository interface {
	CreatePayment(ctx context.Context, payment *models.Payment) error
	ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]*models.Payment, error)
	CountPending(ctx context.Context) (int, error)

	// GetPaymentForUpdate locks the payment row so a concurrent duplicate
	// confirmation blocks until the first one commits, then observes the
	// already-approved state.
	GetPaymentForUpdate(ctx context.Context, tx DBTX, id uuid.UUID) (*models.Payment, error)
	MarkApproved(ctx context.Context, tx DBTX, id uuid.UUID, externalReference string) error
	MarkRejected(ctx context.Context, id uuid.UUID, externalReference string) error
}

type paymentRepository struct {
	DB *sql.DB
}

func NewPaymentRepository(db *sql.DB) PaymentRepository {
	return &paymentRepository{DB: db}
}

func (r *paymentRepository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO payments (id, order_id, amount, currency, method, status, external_reference)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := r.DB.QueryRowContext(dbCtx, query, payment.ID, payment.OrderID, payment.Amount,
		payment.Currency, payment.Method, payment.Status, payment.ExternalReference).
		Scan(&payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}

	return nil
}

func (r *paymentRepository) ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]*models.Payment, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, order_id, amount, currency, method, status, COALESCE(external_reference, ''), created_at, updated_at
		FROM payments
		WHERE order_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.DB.QueryContext(dbCtx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	defer rows.Close()

	var payments []*models.Payment

	for rows.Next() {
		payment := &models.Payment{}

		err := rows.Scan(&payment.ID, &payment.OrderID, &payment.Amount, &payment.Currency,
			&payment.Method, &payment.Status, &payment.ExternalReference,
			&payment.CreatedAt, &payment.UpdatedAt)
		if err != nil {
			return nil, err
		}

		payments = append(payments, payment)
	}

	return payments, rows.Err()
}

func (r *paymentRepository) CountPending(ctx context.Context) (int, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	var count int

	query := `SELECT COUNT(*) FROM payments WHERE status = $1`

	err := r.DB.QueryRowContext(dbCtx, query, models.PaymentStatusPending).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending payments: %w", err)
	}

	return count, nil
}

func (r *paymentRepository) GetPaymentForUpdate(ctx context.Context, tx DBTX, id uuid.UUID) (*models.Payment, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	payment := &models.Payment{}

	query := `
		SELECT id, order_id, amount, currency, method, status, COALESCE(external_reference, ''), created_at, updated_at
		FROM payments
		WHERE id = $1
		FOR UPDATE
	`

	err := tx.QueryRowContext(dbCtx, query, id).Scan(&payment.ID, &payment.OrderID, &payment.Amount,
		&payment.Currency, &payment.Method, &payment.Status, &payment.ExternalReference,
		&payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}

		return nil, fmt.Errorf("failed to lock payment row: %w", err)
	}

	return payment, nil
}

// MarkApproved flips the payment only out of pending, so a replayed
// confirmation can never overwrite an already-settled attempt.
func (r *paymentRepository) MarkApproved(ctx context.Context, tx DBTX, id uuid.UUID, externalReference string) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE payments SET status = $1, external_reference = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4
	`

	result, err := tx.ExecContext(dbCtx, query, models.PaymentStatusApproved, externalReference,
		id, models.PaymentStatusPending)
	if err != nil {
		return fmt.Errorf("failed to approve payment: %w", err)
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

func (r *paymentRepository) MarkRejected(ctx context.Context, id uuid.UUID, externalReference string) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE payments SET status = $1, external_reference = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4
	`

	result, err := r.DB.ExecContext(dbCtx, query, models.PaymentStatusRejected, externalReference,
		id, models.PaymentStatusPending)
	if err != nil {
		return fmt.Errorf("failed to reject payment: %w", err)
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
