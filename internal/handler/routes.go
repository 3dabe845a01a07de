package handler

import (
	"go-retail-core/internal/middleware"
	"go-retail-core/internal/model"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Auth      *AuthHandler
	Inventory *InventoryHandler
	Sale      *SaleHandler
	Dashboard *DashboardHandler
}

// Register mounts the /api/v1 routes. auth guards staff routes; storefront
// routes are public and run as system.
func Register(app *fiber.App, h Handlers, auth fiber.Handler, system model.Actor) fiber.Router {
	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	api.Post("/auth/login", h.Auth.Login)

	storefront := api.Group("/checkout", middleware.WithActor(system))
	storefront.Post("/quote", h.Sale.Quote)
	storefront.Post("", h.Sale.Checkout)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", auth)

	protected.Post("/auth/heartbeat", h.Auth.Heartbeat)
	protected.Post("/auth/change-password", h.Auth.ChangePassword)
	protected.Post("/staff", middleware.RequirePrivilege(model.PrivStaffManage), h.Auth.CreateStaff)

	// Catalogue
	protected.Get("/products", middleware.RequirePrivilege(model.PrivProductView), h.Inventory.GetProducts)
	protected.Get("/products/:id", middleware.RequirePrivilege(model.PrivProductView), h.Inventory.GetProduct)
	protected.Post("/products", middleware.RequirePrivilege(model.PrivProductCreate), h.Inventory.CreateProduct)

	// Stock ledger
	protected.Post("/inventory/adjustments", middleware.RequirePrivilege(model.PrivStockAdjust), h.Inventory.AdjustStock)
	protected.Get("/inventory/:productId/movements", middleware.RequirePrivilege(model.PrivStockView), h.Inventory.GetMovements)
	protected.Get("/inventory/:productId/reconcile", middleware.RequirePrivilege(model.PrivStockView), h.Inventory.Reconcile)

	// Till
	protected.Post("/pos/quote", middleware.RequirePrivilege(model.PrivPOSSell), h.Sale.POSQuote)
	protected.Post("/pos/sales", middleware.RequirePrivilege(model.PrivPOSSell), h.Sale.POSSale)

	// Sales and orders
	protected.Get("/sales", middleware.RequirePrivilege(model.PrivSaleView), h.Sale.GetSales)
	protected.Get("/sales/:id", middleware.RequirePrivilege(model.PrivSaleView), h.Sale.GetSale)
	protected.Put("/sales/:id/status", middleware.RequirePrivilege(model.PrivSaleStatus), h.Sale.UpdateStatus)
	protected.Post("/sales/:id/cancel", middleware.RequireAnyPrivilege(model.PrivSaleStatus, model.PrivSaleRefund), h.Sale.Cancel)
	protected.Post("/sales/:id/refunds", middleware.RequirePrivilege(model.PrivSaleRefund), h.Sale.Refund)

	// Dashboard
	protected.Get("/dashboard/stats", middleware.RequirePrivilege(model.PrivDashboardView), h.Dashboard.GetDashboardStats)
	protected.Get("/dashboard/stock-movement", middleware.RequirePrivilege(model.PrivDashboardView), h.Dashboard.GetStockMovement)
	protected.Get("/dashboard/sales", middleware.RequirePrivilege(model.PrivDashboardView), h.Dashboard.GetSalesSummary)

	return protected
}
