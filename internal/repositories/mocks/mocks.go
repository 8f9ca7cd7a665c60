// Package mocks holds hand-written testify mocks for the repository
// interfaces, shared by the service and handler tests.
package mocks

import (
	"context"

	"github.com/emontalvo/tienda-storefront/internal/models"
	repository "github.com/emontalvo/tienda-storefront/internal/repositories"
	"github.com/emontalvo/tienda-storefront/pkg/email"
	"github.com/emontalvo/tienda-storefront/pkg/gateway"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// TxManager runs the transactional closure with a nil handle; the repo
// mocks match the tx argument with mock.Anything.
type TxManager struct {
	mock.Mock
}

func (m *TxManager) WithinTx(ctx context.Context, fn func(tx repository.DBTX) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(nil)
}

type ProductRepository struct {
	mock.Mock
}

func (m *ProductRepository) CreateProduct(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *ProductRepository) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *ProductRepository) UpdateProduct(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *ProductRepository) ListProducts(ctx context.Context, activeOnly bool, categoryID int64, page, size int) ([]*models.Product, int, error) {
	args := m.Called(ctx, activeOnly, categoryID, page, size)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*models.Product), args.Int(1), args.Error(2)
}

func (m *ProductRepository) ListLowStock(ctx context.Context, threshold, limit int) ([]*models.Product, error) {
	args := m.Called(ctx, threshold, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Product), args.Error(1)
}

func (m *ProductRepository) GetProductForUpdate(ctx context.Context, tx repository.DBTX, id int64) (*models.Product, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *ProductRepository) DecrementStock(ctx context.Context, tx repository.DBTX, id int64, qty int) error {
	args := m.Called(ctx, tx, id, qty)
	return args.Error(0)
}

type CategoryRepository struct {
	mock.Mock
}

func (m *CategoryRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

func (m *CategoryRepository) GetCategoryByID(ctx context.Context, id int64) (*models.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

func (m *CategoryRepository) ListCategories(ctx context.Context) ([]*models.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Category), args.Error(1)
}

type CartRepository struct {
	mock.Mock
}

func (m *CartRepository) CreateCart(ctx context.Context, cart *models.Cart) error {
	args := m.Called(ctx, cart)
	return args.Error(0)
}

func (m *CartRepository) GetCartBySessionToken(ctx context.Context, sessionToken string) (*models.Cart, error) {
	args := m.Called(ctx, sessionToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Cart), args.Error(1)
}

func (m *CartRepository) AddItem(ctx context.Context, cartID uuid.UUID, productID int64, qty int) error {
	args := m.Called(ctx, cartID, productID, qty)
	return args.Error(0)
}

func (m *CartRepository) SetItemQuantity(ctx context.Context, cartID uuid.UUID, productID int64, qty int) error {
	args := m.Called(ctx, cartID, productID, qty)
	return args.Error(0)
}

func (m *CartRepository) DeleteItem(ctx context.Context, cartID uuid.UUID, productID int64) error {
	args := m.Called(ctx, cartID, productID)
	return args.Error(0)
}

func (m *CartRepository) ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	args := m.Called(ctx, cartID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CartItem), args.Error(1)
}

func (m *CartRepository) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	args := m.Called(ctx, cartID)
	return args.Error(0)
}

type OrderRepository struct {
	mock.Mock
}

func (m *OrderRepository) CreateOrder(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *OrderRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *OrderRepository) GetOrderForUpdate(ctx context.Context, tx repository.DBTX, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *OrderRepository) GetActiveOrderByCartID(ctx context.Context, cartID uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, cartID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *OrderRepository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *OrderRepository) UpdateOrderStatusTx(ctx context.Context, tx repository.DBTX, id uuid.UUID, status models.OrderStatus) error {
	args := m.Called(ctx, tx, id, status)
	return args.Error(0)
}

func (m *OrderRepository) ListOrders(ctx context.Context, status models.OrderStatus, page, size int) ([]*models.Order, int, error) {
	args := m.Called(ctx, status, page, size)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*models.Order), args.Int(1), args.Error(2)
}

func (m *OrderRepository) CountOrdersByStatus(ctx context.Context) (map[models.OrderStatus]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[models.OrderStatus]int), args.Error(1)
}

func (m *OrderRepository) Revenue(ctx context.Context) (float64, error) {
	args := m.Called(ctx)
	return args.Get(0).(float64), args.Error(1)
}

type PaymentRepository struct {
	mock.Mock
}

func (m *PaymentRepository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *PaymentRepository) ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]*models.Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Payment), args.Error(1)
}

func (m *PaymentRepository) CountPending(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *PaymentRepository) GetPaymentForUpdate(ctx context.Context, tx repository.DBTX, id uuid.UUID) (*models.Payment, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *PaymentRepository) MarkApproved(ctx context.Context, tx repository.DBTX, id uuid.UUID, externalReference string) error {
	args := m.Called(ctx, tx, id, externalReference)
	return args.Error(0)
}

func (m *PaymentRepository) MarkRejected(ctx context.Context, id uuid.UUID, externalReference string) error {
	args := m.Called(ctx, id, externalReference)
	return args.Error(0)
}

type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type GatewayClient struct {
	mock.Mock
}

func (m *GatewayClient) CreateCheckoutSession(ctx context.Context, payment *models.Payment, order *models.Order) (*gateway.CheckoutSession, error) {
	args := m.Called(ctx, payment, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.CheckoutSession), args.Error(1)
}

func (m *GatewayClient) VerifyWebhookSignature(payload []byte, signature string) (gateway.Event, error) {
	args := m.Called(payload, signature)
	return args.Get(0).(gateway.Event), args.Error(1)
}

type EmailSender struct {
	mock.Mock
}

func (m *EmailSender) Send(ctx context.Context, msg *email.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
