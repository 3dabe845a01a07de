package model

// Privilege represents a permission that can be assigned to staff
type Privilege struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // e.g., "pos:sell"
	Name string `gorm:"type:varchar(100)" json:"name"`
}

const (
	PrivProductView   = "product:view"
	PrivProductCreate = "product:create"
	PrivSaleView      = "sale:view"
	PrivPOSSell       = "pos:sell"
	PrivSaleStatus    = "sale:update_status"
	PrivSaleRefund    = "sale:refund"
	PrivStockView     = "stock:view"
	PrivStockAdjust   = "stock:adjust"
	PrivDashboardView = "dashboard:view"
	PrivStaffManage   = "staff:manage"
)

var DefaultPrivileges = []Privilege{
	{Code: PrivProductView, Name: "View Product"},
	{Code: PrivProductCreate, Name: "Create Product"},
	{Code: PrivSaleView, Name: "View Sales"},
	{Code: PrivPOSSell, Name: "Ring Up POS Sale"},
	{Code: PrivSaleStatus, Name: "Update Order Status"},
	{Code: PrivSaleRefund, Name: "Refund Sale"},
	{Code: PrivStockView, Name: "View Stock Ledger"},
	{Code: PrivStockAdjust, Name: "Adjust Stock"},
	{Code: PrivDashboardView, Name: "View Dashboard"},
	{Code: PrivStaffManage, Name: "Manage Staff"},
}

// CashierPrivileges is the subset granted to till staff.
var CashierPrivileges = []string{PrivProductView, PrivSaleView, PrivPOSSell}
