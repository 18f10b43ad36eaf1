package shared

// Core platform permissions.
const (
	PermUsersView = "users.view"
	PermUsersEdit = "users.edit"

	PermRolesView = "roles.view"
	PermRolesEdit = "roles.edit"
)

// Shop domain permissions.
const (
	PermCustomersView = "customers.view"
	PermCustomersEdit = "customers.edit"

	PermProductsView = "products.view"
	PermProductsEdit = "products.edit"

	PermInvoicesView = "invoices.view"
	PermInvoicesEdit = "invoices.edit"

	PermPaymentsView = "payments.view"
	PermPaymentsEdit = "payments.edit"

	PermReturnsView    = "returns.view"
	PermReturnsEdit    = "returns.edit"
	PermReturnsApprove = "returns.approve"

	PermLoyaltyView   = "loyalty.view"
	PermLoyaltyAdjust = "loyalty.adjust"

	PermRedemptionsView = "redemptions.view"
	PermRedemptionsEdit = "redemptions.edit"

	PermReportsView = "reports.view"

	PermSettingsView = "settings.view"
	PermSettingsEdit = "settings.edit"

	PermBackupsView = "backups.view"
	PermBackupsRun  = "backups.run"
)

// AllScopes lists every permission the service understands; used when
// seeding the administrator role.
func AllScopes() []string {
	return []string{
		PermUsersView, PermUsersEdit,
		PermRolesView, PermRolesEdit,
		PermCustomersView, PermCustomersEdit,
		PermProductsView, PermProductsEdit,
		PermInvoicesView, PermInvoicesEdit,
		PermPaymentsView, PermPaymentsEdit,
		PermReturnsView, PermReturnsEdit, PermReturnsApprove,
		PermLoyaltyView, PermLoyaltyAdjust,
		PermRedemptionsView, PermRedemptionsEdit,
		PermReportsView,
		PermSettingsView, PermSettingsEdit,
		PermBackupsView, PermBackupsRun,
	}
}
