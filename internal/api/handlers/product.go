package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/emontalvo/tienda-storefront/internal/api/middleware"
	"github.com/emontalvo/tienda-storefront/internal/models"
	service "github.com/emontalvo/tienda-storefront/internal/services"
	"github.com/emontalvo/tienda-storefront/internal/utils"
	"github.com/emontalvo/tienda-storefront/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

type ProductHandler struct {
	catalogService service.CatalogService
	validator      *validator.Validate
}

func NewProductHandler(catalogService service.CatalogService) *ProductHandler {
	return &ProductHandler{catalogService: catalogService, validator: validator.New()}
}

// ListProducts godoc
//
//	@Summary	List products
//	@Tags		catalog
//	@Produce	json
//	@Param		all	query	bool	false	"Include inactive products (staff view)"
//	@Param		category	query	int	false	"Filter by category id"
//	@Param		page	query	int	false	"Page number"
//	@Param		size	query	int	false	"Page size"
//	@Success	200	{object}	response.APIResponse
//	@Router		/products [get]
func (h *ProductHandler) ListProducts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		activeOnly := r.URL.Query().Get("all") != "true"

		// A missing or malformed category filter means no filter.
		categoryID, _ := strconv.ParseInt(r.URL.Query().Get("category"), 10, 64)

		page, size := paginationParams(r)

		products, total, err := h.catalogService.ListProducts(r.Context(), activeOnly, categoryID, page, size)
		if err != nil {
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, map[string]any{
			"products": products,
			"total":    total,
			"page":     page,
			"size":     size,
		})
	}
}

func (h *ProductHandler) GetProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		id, err := utils.ParseInt64ID(r, "id")
		if err != nil {
			response.Error(w, err)

			return
		}

		product, err := h.catalogService.GetProductByID(r.Context(), id)
		if err != nil {
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, product)
	}
}

func (h *ProductHandler) CreateProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		var req models.CreateProductRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		product, err := h.catalogService.CreateProduct(r.Context(), &req)
		if err != nil {
			logger.Error("Failed to create product", slog.String("error", err.Error()))
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusCreated, product)
	}
}

func (h *ProductHandler) UpdateProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		id, err := utils.ParseInt64ID(r, "id")
		if err != nil {
			response.Error(w, err)

			return
		}

		var req models.UpdateProductRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		product, err := h.catalogService.UpdateProduct(r.Context(), id, &req)
		if err != nil {
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, product)
	}
}

func (h *ProductHandler) ListCategories() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		categories, err := h.catalogService.ListCategories(r.Context())
		if err != nil {
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, categories)
	}
}

func (h *ProductHandler) GetCategory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		id, err := utils.ParseInt64ID(r, "id")
		if err != nil {
			response.Error(w, err)

			return
		}

		category, err := h.catalogService.GetCategoryByID(r.Context(), id)
		if err != nil {
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, category)
	}
}

func (h *ProductHandler) CreateCategory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		var req models.CreateCategoryRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		category, err := h.catalogService.CreateCategory(r.Context(), &req)
		if err != nil {
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusCreated, category)
	}
}
