package service

import (
	"context"

	appErrors "github.com/emontalvo/tienda-storefront/internal/errors"
	"github.com/emontalvo/tienda-storefront/internal/models"
	repository "github.com/emontalvo/tienda-storefront/internal/repositories"
)

const (
	lowStockThreshold = 10
	lowStockLimit     = 5
)

type AdminService interface {
	Dashboard(ctx context.Context) (*models.DashboardStats, error)
}

type adminService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	paymentRepo repository.PaymentRepository
}

func NewAdminService(orderRepo repository.OrderRepository, productRepo repository.ProductRepository,
	paymentRepo repository.PaymentRepository) AdminService {
	return &adminService{orderRepo: orderRepo, productRepo: productRepo, paymentRepo: paymentRepo}
}

// Dashboard aggregates the store overview: order counts per state, revenue
// over collected orders, products running low or out of stock, and payment
// attempts still waiting on the gateway.
func (s *adminService) Dashboard(ctx context.Context) (*models.DashboardStats, error) {

	counts, err := s.orderRepo.CountOrdersByStatus(ctx)
	if err != nil {
		return nil, appErrors.DatabaseError("Failed to count orders").WithError(err)
	}

	revenue, err := s.orderRepo.Revenue(ctx)
	if err != nil {
		return nil, appErrors.DatabaseError("Failed to compute revenue").WithError(err)
	}

	lowStock, err := s.productRepo.ListLowStock(ctx, lowStockThreshold, lowStockLimit)
	if err != nil {
		return nil, appErrors.DatabaseError("Failed to list low stock products").WithError(err)
	}

	outOfStock, err := s.productRepo.ListLowStock(ctx, 1, lowStockLimit)
	if err != nil {
		return nil, appErrors.DatabaseError("Failed to list out of stock products").WithError(err)
	}

	pending, err := s.paymentRepo.CountPending(ctx)
	if err != nil {
		return nil, appErrors.DatabaseError("Failed to count pending payments").WithError(err)
	}

	return &models.DashboardStats{
		OrdersByStatus:  counts,
		Revenue:         revenue,
		LowStockLimit:   lowStockThreshold,
		LowStock:        lowStock,
		OutOfStock:      outOfStock,
		PaymentsPending: pending,
	}, nil
}
