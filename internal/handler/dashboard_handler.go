package handler

import (
	"go-retail-core/internal/service"

	"github.com/gofiber/fiber/v2"
)

type DashboardHandler struct {
	service service.DashboardService
}

func NewDashboardHandler(s service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: s}
}

func days(c *fiber.Ctx) int {
	d := c.QueryInt("days", 7)
	if d <= 0 {
		d = 7
	}
	return d
}

// GetStockMovement returns stock movement data for charts
// Query params: days (default 7)
func (h *DashboardHandler) GetStockMovement(c *fiber.Ctx) error {
	period := days(c)
	data, err := h.service.GetStockMovement(c.UserContext(), period)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch stock movement"})
	}

	return c.JSON(fiber.Map{
		"period": period,
		"data":   data,
	})
}

// GetDashboardStats returns overview statistics
func (h *DashboardHandler) GetDashboardStats(c *fiber.Ctx) error {
	stats, err := h.service.GetDashboardStats(c.UserContext())
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch dashboard stats"})
	}

	return c.JSON(stats)
}

// GetSalesSummary returns gross, refunded and net takings for the period
func (h *DashboardHandler) GetSalesSummary(c *fiber.Ctx) error {
	period := days(c)
	summary, err := h.service.GetSalesSummary(c.UserContext(), period)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch sales summary"})
	}

	return c.JSON(fiber.Map{
		"period": period,
		"data":   summary,
	})
}
