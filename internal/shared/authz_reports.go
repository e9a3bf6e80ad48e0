package shared

// Reporting permissions for RBAC enforcement. PermReportsViewAll is the
// blanket permission accepted by every report entry point.
const (
	PermReportsViewAll      = "reports.view_all"
	PermReportsViewSales    = "reports.view_sales"
	PermReportsViewExpenses = "reports.view_expenses"
	PermReportsViewCash     = "reports.view_cash"
	PermReportsViewProfit   = "reports.view_profit"
	PermReportsViewProducts = "reports.view_products"
)

// ReportScopes lists all permissions related to the reporting engine.
func ReportScopes() []string {
	return []string{
		PermReportsViewAll,
		PermReportsViewSales,
		PermReportsViewExpenses,
		PermReportsViewCash,
		PermReportsViewProfit,
		PermReportsViewProducts,
	}
}
