package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/emontalvo/tienda-storefront/internal/cache"
	appErrors "github.com/emontalvo/tienda-storefront/internal/errors"
	"github.com/emontalvo/tienda-storefront/internal/models"
	repository "github.com/emontalvo/tienda-storefront/internal/repositories"
	"github.com/microcosm-cc/bluemonday"
)

type CatalogService interface {
	CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error)
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	UpdateProduct(ctx context.Context, id int64, req *models.UpdateProductRequest) (*models.Product, error)
	ListProducts(ctx context.Context, activeOnly bool, categoryID int64, page, size int) ([]*models.Product, int, error)

	CreateCategory(ctx context.Context, req *models.CreateCategoryRequest) (*models.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*models.Category, error)
	ListCategories(ctx context.Context) ([]*models.Category, error)
}

type catalogService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	cache        cache.Cache
	cacheTTL     time.Duration
	sanitizer    *bluemonday.Policy
	logger       *slog.Logger
}

func NewCatalogService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	cacheClient cache.Cache,
	cacheTTL time.Duration,
	logger *slog.Logger,
) CatalogService {
	return &catalogService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		cache:        cacheClient,
		cacheTTL:     cacheTTL,
		sanitizer:    bluemonday.StrictPolicy(),
		logger:       logger,
	}
}

func (s *catalogService) CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error) {

	if _, err := s.categoryRepo.GetCategoryByID(ctx, req.CategoryID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFoundError("Category not found")
		}

		return nil, appErrors.DatabaseError("Failed to load category").WithError(err)
	}

	product := &models.Product{
		CategoryID:  req.CategoryID,
		Name:        s.sanitizer.Sanitize(req.Name),
		Description: s.sanitizer.Sanitize(req.Description),
		Price:       req.Price,
		Stock:       req.Stock,
		Active:      true,
	}

	if err := s.productRepo.CreateProduct(ctx, product); err != nil {
		return nil, appErrors.DatabaseError("Failed to create product").WithError(err)
	}

	s.logger.InfoContext(ctx, "product created", slog.Int64("productID", product.ID))

	return product, nil
}

func (s *catalogService) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {

	key := cache.Key(cache.ProductKeyPrefix, strconv.FormatInt(id, 10))

	var cached models.Product

	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.Any("error", err))
	}

	if hit {
		return &cached, nil
	}

	product, err := s.productRepo.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFoundError("Product not found")
		}

		return nil, appErrors.DatabaseError("Failed to load product").WithError(err)
	}

	if err := s.cache.Set(ctx, key, product, s.cacheTTL); err != nil {
		s.logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.Any("error", err))
	}

	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, id int64, req *models.UpdateProductRequest) (*models.Product, error) {

	product, err := s.productRepo.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFoundError("Product not found")
		}

		return nil, appErrors.DatabaseError("Failed to load product").WithError(err)
	}

	if req.CategoryID != nil {
		if _, err := s.categoryRepo.GetCategoryByID(ctx, *req.CategoryID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.NotFoundError("Category not found")
			}

			return nil, appErrors.DatabaseError("Failed to load category").WithError(err)
		}

		product.CategoryID = *req.CategoryID
	}

	if req.Name != nil {
		product.Name = s.sanitizer.Sanitize(*req.Name)
	}

	if req.Description != nil {
		product.Description = s.sanitizer.Sanitize(*req.Description)
	}

	if req.Price != nil {
		product.Price = *req.Price
	}

	if req.Stock != nil {
		product.Stock = *req.Stock
	}

	if req.Active != nil {
		product.Active = *req.Active
	}

	if err := s.productRepo.UpdateProduct(ctx, product); err != nil {
		return nil, appErrors.DatabaseError("Failed to update product").WithError(err)
	}

	key := cache.Key(cache.ProductKeyPrefix, strconv.FormatInt(id, 10))
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "cache invalidation failed", slog.String("key", key), slog.Any("error", err))
	}

	return product, nil
}

func (s *catalogService) ListProducts(ctx context.Context, activeOnly bool, categoryID int64, page, size int) ([]*models.Product, int, error) {

	products, total, err := s.productRepo.ListProducts(ctx, activeOnly, categoryID, page, size)
	if err != nil {
		return nil, 0, appErrors.DatabaseError("Failed to list products").WithError(err)
	}

	return products, total, nil
}

func (s *catalogService) CreateCategory(ctx context.Context, req *models.CreateCategoryRequest) (*models.Category, error) {

	category := &models.Category{
		Name:        s.sanitizer.Sanitize(req.Name),
		Description: s.sanitizer.Sanitize(req.Description),
		Active:      true,
	}

	if err := s.categoryRepo.CreateCategory(ctx, category); err != nil {
		return nil, appErrors.DatabaseError("Failed to create category").WithError(err)
	}

	return category, nil
}

func (s *catalogService) GetCategoryByID(ctx context.Context, id int64) (*models.Category, error) {

	category, err := s.categoryRepo.GetCategoryByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFoundError("Category not found")
		}

		return nil, appErrors.DatabaseError("Failed to load category").WithError(err)
	}

	return category, nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]*models.Category, error) {

	categories, err := s.categoryRepo.ListCategories(ctx)
	if err != nil {
		return nil, appErrors.DatabaseError("Failed to list categories").WithError(err)
	}

	return categories, nil
}
