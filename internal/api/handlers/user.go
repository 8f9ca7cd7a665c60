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
)

type UserHandler struct {
	userService service.UserService
	validator   *validator.Validate
}

func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService, validator: validator.New()}
}

// Login godoc
//
//	@Summary	Staff login
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		request	body	models.LoginRequest	true	"Credentials"
//	@Success	200	{object}	response.APIResponse
//	@Failure	401	{object}	response.APIResponse
//	@Router		/auth/login [post]
func (h *UserHandler) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		var req models.LoginRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		result, err := h.userService.Login(r.Context(), &req)
		if err != nil {
			logger.Warn("Login failed", slog.String("email", req.Email))
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, result)
	}
}

func (h *UserHandler) RegisterStaff() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		var req models.RegisterStaffRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		user, err := h.userService.RegisterStaff(r.Context(), &req)
		if err != nil {
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusCreated, user)
	}
}
