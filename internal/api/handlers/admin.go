package handlers

import (
	"net/http"

	service "github.com/emontalvo/tienda-storefront/internal/services"
	"github.com/emontalvo/tienda-storefront/internal/utils/response"
)

type AdminHandler struct {
	adminService service.AdminService
}

func NewAdminHandler(adminService service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

func (h *AdminHandler) Dashboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		stats, err := h.adminService.Dashboard(r.Context())
		if err != nil {
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, stats)
	}
}
