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

type OrderHandler struct {
	orderService service.OrderService
	validator    *validator.Validate
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService, validator: validator.New()}
}

// Checkout godoc
//
//	@Summary	Freeze the session's cart into an order
//	@Tags		orders
//	@Accept		json
//	@Produce	json
//	@Param		X-Session-Token	header	string	true	"Session token"
//	@Param		request	body	models.CheckoutRequest	false	"Optional contact details"
//	@Success	201	{object}	response.APIResponse
//	@Failure	400	{object}	response.APIResponse
//	@Failure	409	{object}	response.APIResponse
//	@Router		/orders [post]
func (h *OrderHandler) Checkout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		token := r.Header.Get(sessionTokenHeader)

		// Contact details are optional; an empty body is a valid checkout.
		var req models.CheckoutRequest
		if r.ContentLength > 0 {
			if !utils.ParseAndValidate(r, w, &req, h.validator) {
				return
			}
		}

		order, err := h.orderService.CreateOrder(r.Context(), token, &req)
		if err != nil {
			logger.Error("Checkout failed", slog.String("error", err.Error()))
			response.Error(w, err)

			return
		}

		logger.Info("Order created", slog.String("orderId", order.ID.String()))
		response.Success(w, http.StatusCreated, order)
	}
}

func (h *OrderHandler) GetOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		id, err := utils.ParseUUID(r, "id")
		if err != nil {
			response.Error(w, err)

			return
		}

		order, err := h.orderService.GetOrderByID(r.Context(), id)
		if err != nil {
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, order)
	}
}

func (h *OrderHandler) CancelOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		id, err := utils.ParseUUID(r, "id")
		if err != nil {
			response.Error(w, err)

			return
		}

		order, err := h.orderService.CancelOrder(r.Context(), id)
		if err != nil {
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, order)
	}
}

// ListOrders serves the staff order list with an optional status filter.
func (h *OrderHandler) ListOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		status := models.OrderStatus(r.URL.Query().Get("status"))

		page, size := paginationParams(r)

		orders, total, err := h.orderService.ListOrders(r.Context(), status, page, size)
		if err != nil {
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, map[string]any{
			"orders": orders,
			"total":  total,
			"page":   page,
			"size":   size,
		})
	}
}

func (h *OrderHandler) UpdateStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		id, err := utils.ParseUUID(r, "id")
		if err != nil {
			response.Error(w, err)

			return
		}

		var req models.UpdateOrderStatusRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		order, err := h.orderService.UpdateOrderStatus(r.Context(), id, req.Status)
		if err != nil {
			logger.Warn("Order transition rejected",
				slog.String("orderId", id.String()),
				slog.String("status", string(req.Status)),
				slog.String("error", err.Error()))
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, order)
	}
}

func paginationParams(r *http.Request) (int, int) {

	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	size, err := strconv.Atoi(r.URL.Query().Get("size"))
	if err != nil || size < 1 || size > 100 {
		size = 20
	}

	return page, size
}
