package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	appErrors "github.com/emontalvo/tienda-storefront/internal/errors"
	"github.com/emontalvo/tienda-storefront/internal/metrics"
	"github.com/emontalvo/tienda-storefront/internal/models"
	repository "github.com/emontalvo/tienda-storefront/internal/repositories"
	"github.com/emontalvo/tienda-storefront/pkg/email"
	"github.com/emontalvo/tienda-storefront/pkg/gateway"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// TxManager runs a function inside a single database transaction.
// *repository.Store satisfies it; tests substitute their own.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(tx repository.DBTX) error) error
}

type OrderService interface {
	CreateOrder(ctx context.Context, sessionToken string, req *models.CheckoutRequest) (*models.Order, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, status models.OrderStatus, page, size int) ([]*models.Order, int, error)

	RequestPayment(ctx context.Context, orderID uuid.UUID) (*models.PaymentInitResponse, error)
	ConfirmPayment(ctx context.Context, paymentID uuid.UUID, externalReference string) (*models.Payment, error)
	RejectPayment(ctx context.Context, paymentID uuid.UUID, externalReference string) error
	ListPayments(ctx context.Context, orderID uuid.UUID) ([]*models.Payment, error)

	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status models.OrderStatus) (*models.Order, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

type orderService struct {
	tx          TxManager
	orderRepo   repository.OrderRepository
	paymentRepo repository.PaymentRepository
	productRepo repository.ProductRepository
	cartRepo    repository.CartRepository
	gateway     gateway.Client
	emailSender email.Sender
	currency    string
	logger      *slog.Logger
}

func NewOrderService(
	tx TxManager,
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	productRepo repository.ProductRepository,
	cartRepo repository.CartRepository,
	gatewayClient gateway.Client,
	emailSender email.Sender,
	currency string,
	logger *slog.Logger,
) OrderService {
	return &orderService{
		tx:          tx,
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		productRepo: productRepo,
		cartRepo:    cartRepo,
		gateway:     gatewayClient,
		emailSender: emailSender,
		currency:    currency,
		logger:      logger,
	}
}

// CreateOrder freezes the session's cart into an order. Item names and
// prices are copied at this instant; the cart stays untouched until the
// order reaches a terminal state.
func (s *orderService) CreateOrder(ctx context.Context, sessionToken string, req *models.CheckoutRequest) (*models.Order, error) {

	cart, err := s.cartRepo.GetCartBySessionToken(ctx, sessionToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.EmptyCartError("Cart is empty")
		}

		return nil, appErrors.DatabaseError("Failed to load cart").WithError(err)
	}

	items, err := s.cartRepo.ListItems(ctx, cart.ID)
	if err != nil {
		return nil, appErrors.DatabaseError("Failed to load cart items").WithError(err)
	}

	if len(items) == 0 {
		return nil, appErrors.EmptyCartError("Cart is empty")
	}

	_, err = s.orderRepo.GetActiveOrderByCartID(ctx, cart.ID)
	if err == nil {
		return nil, appErrors.DuplicateOrderError("Cart already has an active order")
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.DatabaseError("Failed to check for existing order").WithError(err)
	}

	order := &models.Order{
		ID:     uuid.New(),
		CartID: cart.ID,
		Email:  req.Email,
		Phone:  req.Phone,
		Status: models.OrderStatusPending,
		Items:  make([]models.OrderItem, 0, len(items)),
	}

	for i := range items {
		line := &items[i]

		order.Items = append(order.Items, models.OrderItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			UnitPrice:   line.UnitPrice,
			Quantity:    line.Quantity,
		})
	}

	if err := s.orderRepo.CreateOrder(ctx, order); err != nil {
		// Two checkouts racing past the active-order check land on the
		// partial unique index instead.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, appErrors.DuplicateOrderError("Cart already has an active order")
		}

		return nil, appErrors.DatabaseError("Failed to create order").WithError(err)
	}

	order.Total = order.ComputeTotal()

	metrics.RecordOrderCreated()
	s.logger.InfoContext(ctx, "order created",
		slog.String("orderID", order.ID.String()),
		slog.String("cartID", cart.ID.String()),
		slog.Float64("total", order.Total))

	return order, nil
}

func (s *orderService) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {

	order, err := s.orderRepo.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFoundError("Order not found")
		}

		return nil, appErrors.DatabaseError("Failed to load order").WithError(err)
	}

	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, status models.OrderStatus, page, size int) ([]*models.Order, int, error) {

	orders, total, err := s.orderRepo.ListOrders(ctx, status, page, size)
	if err != nil {
		return nil, 0, appErrors.DatabaseError("Failed to list orders").WithError(err)
	}

	return orders, total, nil
}

// RequestPayment opens a payment attempt against a pending order and
// returns the gateway redirect. A failed attempt leaves its pending row
// behind as an audit trail; retrying opens a fresh attempt.
func (s *orderService) RequestPayment(ctx context.Context, orderID uuid.UUID) (*models.PaymentInitResponse, error) {

	order, err := s.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != models.OrderStatusPending {
		return nil, appErrors.InvalidStateError(
			fmt.Sprintf("Cannot request payment for an order in state '%s'", order.Status))
	}

	payment := &models.Payment{
		ID:       uuid.New(),
		OrderID:  order.ID,
		Amount:   order.ComputeTotal(),
		Currency: s.currency,
		Method:   "card",
		Status:   models.PaymentStatusPending,
	}

	if err := s.paymentRepo.CreatePayment(ctx, payment); err != nil {
		return nil, appErrors.DatabaseError("Failed to create payment").WithError(err)
	}

	sess, err := s.gateway.CreateCheckoutSession(ctx, payment, order)
	if err != nil {
		s.logger.ErrorContext(ctx, "gateway checkout session failed",
			slog.String("paymentID", payment.ID.String()), slog.Any("error", err))

		return nil, appErrors.GatewayError("Payment provider is unavailable").WithError(err)
	}

	s.logger.InfoContext(ctx, "payment requested",
		slog.String("paymentID", payment.ID.String()),
		slog.String("orderID", order.ID.String()),
		slog.String("sessionID", sess.ID))

	return &models.PaymentInitResponse{Payment: payment, RedirectURL: sess.RedirectURL}, nil
}

// ConfirmPayment settles a payment attempt and reserves stock, all inside
// one transaction. The payment row is locked first, then the order row,
// then every product row in item order (order_items are read sorted by
// product id, which keeps concurrent confirmations acquiring locks in the
// same sequence). The order lock is what serializes rival attempts through
// different payments: the loser wakes up to a paid order and aborts before
// touching stock. If any product is short the whole transaction rolls back
// and no stock moves.
//
// Confirming an already-approved payment is a silent success: the settled
// payment is returned unchanged and nothing is decremented twice.
func (s *orderService) ConfirmPayment(ctx context.Context, paymentID uuid.UUID, externalReference string) (*models.Payment, error) {

	var (
		payment         *models.Payment
		order           *models.Order
		alreadyApproved bool
	)

	err := s.tx.WithinTx(ctx, func(tx repository.DBTX) error {

		locked, err := s.paymentRepo.GetPaymentForUpdate(ctx, tx, paymentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.NotFoundError("Payment not found")
			}

			return appErrors.DatabaseError("Failed to lock payment").WithError(err)
		}

		if locked.Status == models.PaymentStatusApproved {
			payment = locked
			alreadyApproved = true

			return nil
		}

		if locked.Status == models.PaymentStatusRejected {
			return appErrors.InvalidStateError("Payment was already rejected")
		}

		lockedOrder, err := s.orderRepo.GetOrderForUpdate(ctx, tx, locked.OrderID)
		if err != nil {
			return appErrors.DatabaseError("Failed to lock order for payment").WithError(err)
		}

		if lockedOrder.Status != models.OrderStatusPending {
			return appErrors.InvalidStateError(
				fmt.Sprintf("Cannot confirm payment for an order in state '%s'", lockedOrder.Status))
		}

		// Check every line before touching any stock.
		for i := range lockedOrder.Items {
			item := &lockedOrder.Items[i]

			product, err := s.productRepo.GetProductForUpdate(ctx, tx, item.ProductID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return appErrors.InsufficientStockError(item.ProductName)
				}

				return appErrors.DatabaseError("Failed to lock product").WithError(err)
			}

			if product.Stock < item.Quantity {
				return appErrors.InsufficientStockError(product.Name)
			}
		}

		for i := range lockedOrder.Items {
			item := &lockedOrder.Items[i]

			if err := s.productRepo.DecrementStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return appErrors.DatabaseError("Failed to decrement stock").WithError(err)
			}
		}

		if err := s.paymentRepo.MarkApproved(ctx, tx, locked.ID, externalReference); err != nil {
			return appErrors.DatabaseError("Failed to approve payment").WithError(err)
		}

		if err := s.orderRepo.UpdateOrderStatusTx(ctx, tx, lockedOrder.ID, models.OrderStatusPaid); err != nil {
			return appErrors.DatabaseError("Failed to mark order paid").WithError(err)
		}

		locked.Status = models.PaymentStatusApproved
		locked.ExternalReference = externalReference
		lockedOrder.Status = models.OrderStatusPaid

		payment = locked
		order = lockedOrder

		return nil
	})
	if err != nil {
		if appErr, ok := appErrors.IsAppError(err); ok {
			if appErr.Code == appErrors.ErrCodeInsufficientStock {
				metrics.RecordStockConflict()
			}

			return nil, appErr
		}

		return nil, appErrors.DatabaseError("Payment confirmation failed").WithError(err)
	}

	if alreadyApproved {
		s.logger.InfoContext(ctx, "payment already approved, confirmation replayed",
			slog.String("paymentID", paymentID.String()))

		return payment, nil
	}

	metrics.RecordPaymentApproved()
	s.logger.InfoContext(ctx, "payment approved",
		slog.String("paymentID", payment.ID.String()),
		slog.String("orderID", payment.OrderID.String()),
		slog.String("externalReference", externalReference))

	s.sendConfirmationEmail(ctx, order, payment)

	return payment, nil
}

// RejectPayment records a gateway rejection. Already-settled attempts are
// left alone.
func (s *orderService) RejectPayment(ctx context.Context, paymentID uuid.UUID, externalReference string) error {

	err := s.paymentRepo.MarkRejected(ctx, paymentID, externalReference)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.WarnContext(ctx, "rejection ignored, payment not pending",
				slog.String("paymentID", paymentID.String()))

			return nil
		}

		return appErrors.DatabaseError("Failed to reject payment").WithError(err)
	}

	metrics.RecordPaymentRejected()

	return nil
}

// ListPayments returns every attempt recorded against the order. Failed
// and superseded attempts stay visible as an audit trail.
func (s *orderService) ListPayments(ctx context.Context, orderID uuid.UUID) ([]*models.Payment, error) {

	if _, err := s.GetOrderByID(ctx, orderID); err != nil {
		return nil, err
	}

	payments, err := s.paymentRepo.ListPaymentsByOrder(ctx, orderID)
	if err != nil {
		return nil, appErrors.DatabaseError("Failed to list payments").WithError(err)
	}

	return payments, nil
}

// UpdateOrderStatus moves an order along the lifecycle table. Moving into
// paid is reserved for payment confirmation, which is the only path that
// reserves stock. Reaching a terminal state releases the cart.
func (s *orderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status models.OrderStatus) (*models.Order, error) {

	order, err := s.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if status == models.OrderStatusPaid {
		return nil, appErrors.InvalidStateError("Orders are marked paid through payment confirmation")
	}

	if !order.Status.CanTransitionTo(status) {
		return nil, appErrors.InvalidStateError(
			fmt.Sprintf("Cannot transition order from '%s' to '%s'", order.Status, status))
	}

	if err := s.orderRepo.UpdateOrderStatus(ctx, orderID, status); err != nil {
		return nil, appErrors.DatabaseError("Failed to update order status").WithError(err)
	}

	order.Status = status

	if status.IsTerminal() {
		if err := s.cartRepo.ClearItems(ctx, order.CartID); err != nil {
			s.logger.WarnContext(ctx, "failed to clear cart after terminal transition",
				slog.String("cartID", order.CartID.String()), slog.Any("error", err))
		}
	}

	s.logger.InfoContext(ctx, "order status updated",
		slog.String("orderID", orderID.String()), slog.String("status", string(status)))

	return order, nil
}

// CancelOrder is the shopper-facing cancellation. Only a pending order may
// be canceled this way; anything later requires staff intervention.
func (s *orderService) CancelOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {

	order, err := s.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != models.OrderStatusPending {
		return nil, appErrors.InvalidStateError(
			fmt.Sprintf("Cannot cancel an order in state '%s'", order.Status))
	}

	return s.UpdateOrderStatus(ctx, orderID, models.OrderStatusCanceled)
}

// sendConfirmationEmail is best effort: a mail failure never unwinds an
// approved payment.
func (s *orderService) sendConfirmationEmail(ctx context.Context, order *models.Order, payment *models.Payment) {

	if s.emailSender == nil || order == nil || order.Email == "" {
		return
	}

	msg := &email.Message{
		To:      order.Email,
		Subject: "Your order is confirmed",
		Content: fmt.Sprintf("Payment of %.2f %s for order %s was approved. Thank you for your purchase.",
			payment.Amount, payment.Currency, order.ID),
	}

	if err := s.emailSender.Send(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "failed to send confirmation email",
			slog.String("orderID", order.ID.String()), slog.Any("error", err))
	}
}
