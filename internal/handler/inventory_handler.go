package handler

import (
	"go-retail-core/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type InventoryHandler struct {
	products service.ProductService
	ledger   service.StockLedger
}

func NewInventoryHandler(products service.ProductService, ledger service.StockLedger) *InventoryHandler {
	return &InventoryHandler{products: products, ledger: ledger}
}

// AdjustmentRequest is a manual stock correction. Delta is signed.
type AdjustmentRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Delta     int       `json:"delta"`
	Reason    string    `json:"reason"`
}

func (h *InventoryHandler) CreateProduct(c *fiber.Ctx) error {
	var req service.CreateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return badJSON(c)
	}

	product, err := h.products.CreateProduct(c.UserContext(), req, actorOf(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Product created", "data": product})
}

func (h *InventoryHandler) GetProducts(c *fiber.Ctx) error {
	products, err := h.products.GetAllProducts(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(products)
}

func (h *InventoryHandler) GetProduct(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
	}
	product, err := h.products.GetProduct(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

// AdjustStock books a manual correction through the ledger.
// POST /api/v1/inventory/adjustments
func (h *InventoryHandler) AdjustStock(c *fiber.Ctx) error {
	var req AdjustmentRequest
	if err := c.BodyParser(&req); err != nil {
		return badJSON(c)
	}
	if req.ProductID == uuid.Nil {
		return c.Status(422).JSON(fiber.Map{"error": "product_id is required"})
	}

	movement, err := h.ledger.Adjust(c.UserContext(), req.ProductID, req.Delta, req.Reason, actorOf(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Stock adjusted", "data": movement})
}

func (h *InventoryHandler) GetMovements(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "productId")
	if !ok {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
	}
	movements, err := h.ledger.History(c.UserContext(), id, c.QueryInt("limit", 100))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(movements)
}

func (h *InventoryHandler) Reconcile(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "productId")
	if !ok {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
	}
	report, err := h.ledger.Reconcile(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(report)
}
