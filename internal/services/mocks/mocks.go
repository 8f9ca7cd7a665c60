// Package mocks holds hand-written testify mocks for the service
// interfaces, used by the handler tests.
package mocks

import (
	"context"

	"github.com/emontalvo/tienda-storefront/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type CartService struct {
	mock.Mock
}

func (m *CartService) GetOrCreateCart(ctx context.Context, sessionToken string) (*models.Cart, error) {
	args := m.Called(ctx, sessionToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Cart), args.Error(1)
}

func (m *CartService) AddItem(ctx context.Context, sessionToken string, req *models.AddItemRequest) (*models.Cart, error) {
	args := m.Called(ctx, sessionToken, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Cart), args.Error(1)
}

func (m *CartService) SetQuantity(ctx context.Context, sessionToken string, req *models.UpdateQuantityRequest) (*models.Cart, error) {
	args := m.Called(ctx, sessionToken, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Cart), args.Error(1)
}

func (m *CartService) RemoveItem(ctx context.Context, sessionToken string, productID int64) (*models.Cart, error) {
	args := m.Called(ctx, sessionToken, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Cart), args.Error(1)
}

type OrderService struct {
	mock.Mock
}

func (m *OrderService) CreateOrder(ctx context.Context, sessionToken string, req *models.CheckoutRequest) (*models.Order, error) {
	args := m.Called(ctx, sessionToken, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *OrderService) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *OrderService) ListOrders(ctx context.Context, status models.OrderStatus, page, size int) ([]*models.Order, int, error) {
	args := m.Called(ctx, status, page, size)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*models.Order), args.Int(1), args.Error(2)
}

func (m *OrderService) RequestPayment(ctx context.Context, orderID uuid.UUID) (*models.PaymentInitResponse, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentInitResponse), args.Error(1)
}

func (m *OrderService) ConfirmPayment(ctx context.Context, paymentID uuid.UUID, externalReference string) (*models.Payment, error) {
	args := m.Called(ctx, paymentID, externalReference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *OrderService) RejectPayment(ctx context.Context, paymentID uuid.UUID, externalReference string) error {
	args := m.Called(ctx, paymentID, externalReference)
	return args.Error(0)
}

func (m *OrderService) ListPayments(ctx context.Context, orderID uuid.UUID) ([]*models.Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Payment), args.Error(1)
}

func (m *OrderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	args := m.Called(ctx, orderID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *OrderService) CancelOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

type CatalogService struct {
	mock.Mock
}

func (m *CatalogService) CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *CatalogService) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *CatalogService) UpdateProduct(ctx context.Context, id int64, req *models.UpdateProductRequest) (*models.Product, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *CatalogService) ListProducts(ctx context.Context, activeOnly bool, categoryID int64, page, size int) ([]*models.Product, int, error) {
	args := m.Called(ctx, activeOnly, categoryID, page, size)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*models.Product), args.Int(1), args.Error(2)
}

func (m *CatalogService) CreateCategory(ctx context.Context, req *models.CreateCategoryRequest) (*models.Category, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

func (m *CatalogService) GetCategoryByID(ctx context.Context, id int64) (*models.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

func (m *CatalogService) ListCategories(ctx context.Context) ([]*models.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Category), args.Error(1)
}

type UserService struct {
	mock.Mock
}

func (m *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LoginResponse), args.Error(1)
}

func (m *UserService) RegisterStaff(ctx context.Context, req *models.RegisterStaffRequest) (*models.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserService) VerifyToken(tokenString string) (*models.Claims, error) {
	args := m.Called(tokenString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Claims), args.Error(1)
}

type AdminService struct {
	mock.Mock
}

func (m *AdminService) Dashboard(ctx context.Context) (*models.DashboardStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DashboardStats), args.Error(1)
}
