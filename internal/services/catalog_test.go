package service_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	appErrors "github.com/emontalvo/tienda-storefront/internal/errors"
	"github.com/emontalvo/tienda-storefront/internal/models"
	"github.com/emontalvo/tienda-storefront/internal/repositories/mocks"
	service "github.com/emontalvo/tienda-storefront/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mapCache is an in-memory stand-in for the redis cache.
type mapCache struct {
	entries map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]byte)}
}

func (c *mapCache) Get(_ context.Context, key string, value any) (bool, error) {
	data, ok := c.entries[key]
	if !ok {
		return false, nil
	}

	return true, json.Unmarshal(data, value)
}

func (c *mapCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	c.entries[key] = data

	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	delete(c.entries, key)

	return nil
}

func newCatalogService(t *testing.T) (service.CatalogService, *mocks.ProductRepository, *mocks.CategoryRepository, *mapCache) {
	t.Helper()

	productRepo := new(mocks.ProductRepository)
	categoryRepo := new(mocks.CategoryRepository)
	testCache := newMapCache()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := service.NewCatalogService(productRepo, categoryRepo, testCache, time.Minute, logger)

	return svc, productRepo, categoryRepo, testCache
}

func TestCreateProduct(t *testing.T) {
	ctx := t.Context()

	category := &models.Category{ID: 3, Name: "Mates", Active: true}

	t.Run("Success - strips markup from user-supplied text", func(t *testing.T) {
		svc, productRepo, categoryRepo, _ := newCatalogService(t)
		categoryRepo.On("GetCategoryByID", ctx, int64(3)).Return(category, nil)
		productRepo.On("CreateProduct", ctx, mock.AnythingOfType("*models.Product")).Return(nil)

		product, err := svc.CreateProduct(ctx, &models.CreateProductRequest{
			CategoryID:  3,
			Name:        "Mate Imperial",
			Description: `Hand carved <script>alert("x")</script> gourd`,
			Price:       42.00,
			Stock:       10,
		})

		require.NoError(t, err)
		assert.NotContains(t, product.Description, "<script>")
		assert.Contains(t, product.Description, "Hand carved")
		assert.True(t, product.Active)
	})

	t.Run("Failure - unknown category", func(t *testing.T) {
		svc, productRepo, categoryRepo, _ := newCatalogService(t)
		categoryRepo.On("GetCategoryByID", ctx, int64(99)).Return(nil, sql.ErrNoRows)

		_, err := svc.CreateProduct(ctx, &models.CreateProductRequest{CategoryID: 99, Name: "Orphan", Price: 1})

		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeNotFound, appErr.Code)
		productRepo.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything)
	})
}

func TestGetProductByID(t *testing.T) {
	ctx := t.Context()

	product := &models.Product{ID: 5, Name: "Bombilla", Price: 6.50, Stock: 20, Active: true}

	t.Run("Success - second read is served from cache", func(t *testing.T) {
		svc, productRepo, _, _ := newCatalogService(t)
		productRepo.On("GetProductByID", ctx, int64(5)).Return(product, nil).Once()

		first, err := svc.GetProductByID(ctx, 5)
		require.NoError(t, err)

		second, err := svc.GetProductByID(ctx, 5)
		require.NoError(t, err)

		assert.Equal(t, first.Name, second.Name)
		productRepo.AssertExpectations(t)
	})

	t.Run("Failure - unknown product", func(t *testing.T) {
		svc, productRepo, _, _ := newCatalogService(t)
		productRepo.On("GetProductByID", ctx, int64(404)).Return(nil, sql.ErrNoRows)

		_, err := svc.GetProductByID(ctx, 404)

		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeNotFound, appErr.Code)
	})
}

func TestUpdateProduct(t *testing.T) {
	ctx := t.Context()

	t.Run("Success - partial update invalidates the cache", func(t *testing.T) {
		existing := &models.Product{ID: 5, CategoryID: 3, Name: "Bombilla", Price: 6.50, Stock: 20, Active: true}

		svc, productRepo, _, testCache := newCatalogService(t)
		testCache.entries["product:5"] = []byte(`{"id":5}`)

		productRepo.On("GetProductByID", ctx, int64(5)).Return(existing, nil)
		productRepo.On("UpdateProduct", ctx, mock.AnythingOfType("*models.Product")).Return(nil)

		newPrice := 7.25
		updated, err := svc.UpdateProduct(ctx, 5, &models.UpdateProductRequest{Price: &newPrice})

		require.NoError(t, err)
		assert.InDelta(t, 7.25, updated.Price, 0.001)
		assert.Equal(t, "Bombilla", updated.Name)
		assert.NotContains(t, testCache.entries, "product:5")
	})

	t.Run("Success - deactivating hides the product from shoppers", func(t *testing.T) {
		existing := &models.Product{ID: 6, Name: "Thermos", Active: true}

		svc, productRepo, _, _ := newCatalogService(t)
		productRepo.On("GetProductByID", ctx, int64(6)).Return(existing, nil)
		productRepo.On("UpdateProduct", ctx, mock.AnythingOfType("*models.Product")).Return(nil)

		inactive := false
		updated, err := svc.UpdateProduct(ctx, 6, &models.UpdateProductRequest{Active: &inactive})

		require.NoError(t, err)
		assert.False(t, updated.Active)
	})
}
