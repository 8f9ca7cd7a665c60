package handlers

import (
	"log/slog"
	"net/http"

	"github.com/emontalvo/tienda-storefront/internal/api/middleware"
	"github.com/emontalvo/tienda-storefront/internal/models"
	service "github.com/emontalvo/tienda-storefront/internal/services"
	"github.com/emontalvo/tienda-storefront/internal/utils"
	"github.com/emontalvo/tienda-storefront/internal/utils/response"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const sessionTokenHeader = "X-Session-Token"

type CartHandler struct {
	cartService service.CartService
	validator   *validator.Validate
}

func NewCartHandler(cartService service.CartService) *CartHandler {
	return &CartHandler{cartService: cartService, validator: validator.New()}
}

// sessionToken returns the caller's session token, minting one when the
// header is absent. The token is always echoed back so the client can
// persist it.
func sessionToken(w http.ResponseWriter, r *http.Request) string {

	token := r.Header.Get(sessionTokenHeader)
	if token == "" {
		token = uuid.NewString()
	}

	w.Header().Set(sessionTokenHeader, token)

	return token
}

// GetCart godoc
//
//	@Summary	Get the session's cart
//	@Tags		cart
//	@Produce	json
//	@Param		X-Session-Token	header	string	false	"Session token; minted when absent"
//	@Success	200	{object}	response.APIResponse
//	@Router		/cart [get]
func (h *CartHandler) GetCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		token := sessionToken(w, r)

		cart, err := h.cartService.GetOrCreateCart(r.Context(), token)
		if err != nil {
			middleware.LoggerFromContext(r.Context()).Error("Failed to load cart",
				slog.String("error", err.Error()))
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, cart)
	}
}

func (h *CartHandler) AddItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		token := sessionToken(w, r)

		var req models.AddItemRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		cart, err := h.cartService.AddItem(r.Context(), token, &req)
		if err != nil {
			middleware.LoggerFromContext(r.Context()).Error("Failed to add cart item",
				slog.Int64("productId", req.ProductID),
				slog.String("error", err.Error()))
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, cart)
	}
}

func (h *CartHandler) UpdateItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		token := sessionToken(w, r)

		productID, err := utils.ParseInt64ID(r, "productID")
		if err != nil {
			response.Error(w, err)

			return
		}

		var req models.UpdateQuantityRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		req.ProductID = productID

		cart, err := h.cartService.SetQuantity(r.Context(), token, &req)
		if err != nil {
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, cart)
	}
}

func (h *CartHandler) RemoveItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		token := sessionToken(w, r)

		productID, err := utils.ParseInt64ID(r, "productID")
		if err != nil {
			response.Error(w, err)

			return
		}

		cart, err := h.cartService.RemoveItem(r.Context(), token, productID)
		if err != nil {
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, cart)
	}
}
