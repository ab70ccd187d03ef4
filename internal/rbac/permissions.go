package rbac

import "github.com/cologne-noir/decant/internal/shared"

// Permissions used by the storefront API.
const (
	PermCatalogView     = "catalog.view"
	PermCatalogEdit     = "catalog.edit"
	PermInventoryView   = "inventory.view"
	PermInventoryAdjust = "inventory.adjust"
	PermOrdersPlace     = "orders.place"
	PermOrdersViewOwn   = "orders.view_own"
	PermOrdersManage    = "orders.manage"
	PermOrdersFulfill   = "orders.fulfill"
	PermCustomersManage = "customers.manage"
	PermSuppliesManage  = "supplies.manage"
	PermStatsView       = "stats.view"
)

var rolePermissions = map[shared.Role][]string{
	shared.RoleCustomer: {
		PermCatalogView,
		PermOrdersPlace,
		PermOrdersViewOwn,
	},
	shared.RoleAdmin: {
		PermCatalogView,
		PermCatalogEdit,
		PermInventoryView,
		PermInventoryAdjust,
		PermOrdersPlace,
		PermOrdersViewOwn,
		PermOrdersManage,
		PermOrdersFulfill,
		PermCustomersManage,
		PermSuppliesManage,
		PermStatsView,
	},
}

// EffectivePermissions returns the permissions granted to role.
func EffectivePermissions(role shared.Role) []string {
	return rolePermissions[role]
}
