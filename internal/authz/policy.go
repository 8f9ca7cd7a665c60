package authz

import "github.com/emontalvo/tienda-storefront/internal/models"

// Action names an admin capability a staff endpoint may require.
type Action string

const (
	ActionManageCatalog  Action = "catalog:manage"
	ActionManageOrders   Action = "orders:manage"
	ActionConfirmPayment Action = "payments:confirm"
	ActionViewDashboard  Action = "dashboard:view"
	ActionManageUsers    Action = "users:manage"
)

// policy is the full role/action matrix. The owner can do everything; staff
// only maintain the catalog.
var policy = map[models.Role]map[Action]bool{
	models.RoleOwner: {
		ActionManageCatalog:  true,
		ActionManageOrders:   true,
		ActionConfirmPayment: true,
		ActionViewDashboard:  true,
		ActionManageUsers:    true,
	},
	models.RoleStaff: {
		ActionManageCatalog: true,
	},
}

// Allow is the single policy-evaluation point for role-gated endpoints.
func Allow(role models.Role, action Action) bool {
	return policy[role][action]
}
