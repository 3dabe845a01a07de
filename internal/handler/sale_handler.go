package handler

import (
	"time"

	"go-retail-core/internal/model"
	"go-retail-core/internal/repository"
	"go-retail-core/internal/service"

	"github.com/gofiber/fiber/v2"
)

type SaleHandler struct {
	builder   service.SaleBuilder
	committer service.TransactionCommitter
	refunds   service.RefundProcessor
}

func NewSaleHandler(b service.SaleBuilder, c service.TransactionCommitter, r service.RefundProcessor) *SaleHandler {
	return &SaleHandler{builder: b, committer: c, refunds: r}
}

type StatusRequest struct {
	Status model.SaleStatus `json:"status"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

func (h *SaleHandler) parseSale(c *fiber.Ctx, ch model.Channel) (service.SaleRequest, error) {
	var req service.SaleRequest
	if err := c.BodyParser(&req); err != nil {
		return req, err
	}
	req.Channel = ch
	req.IdempotencyKey = c.Get("Idempotency-Key")
	return req, nil
}

func (h *SaleHandler) quote(c *fiber.Ctx, ch model.Channel) error {
	req, err := h.parseSale(c, ch)
	if err != nil {
		return badJSON(c)
	}
	plan, err := h.builder.Build(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(plan)
}

func (h *SaleHandler) commit(c *fiber.Ctx, ch model.Channel) error {
	req, err := h.parseSale(c, ch)
	if err != nil {
		return badJSON(c)
	}

	// A replayed key answers with the stored sale, even if the basket
	// could no longer be priced today.
	if sale, ok := h.committer.Replay(c.UserContext(), req.IdempotencyKey); ok {
		return c.Status(200).JSON(fiber.Map{"message": "Sale already recorded", "replayed": true, "data": sale})
	}
	plan, err := h.builder.Build(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	sale, replayed, err := h.committer.Commit(c.UserContext(), plan, actorOf(c))
	if err != nil {
		return respondError(c, err)
	}

	if replayed {
		return c.Status(200).JSON(fiber.Map{"message": "Sale already recorded", "replayed": true, "data": sale})
	}
	return c.Status(201).JSON(fiber.Map{"message": "Sale recorded", "data": sale})
}

// Quote prices an online basket without saving anything.
// POST /api/v1/checkout/quote
func (h *SaleHandler) Quote(c *fiber.Ctx) error { return h.quote(c, model.ChannelOnline) }

// Checkout places an online order.
// POST /api/v1/checkout
func (h *SaleHandler) Checkout(c *fiber.Ctx) error { return h.commit(c, model.ChannelOnline) }

// POST /api/v1/pos/quote
func (h *SaleHandler) POSQuote(c *fiber.Ctx) error { return h.quote(c, model.ChannelPOS) }

// POST /api/v1/pos/sales
func (h *SaleHandler) POSSale(c *fiber.Ctx) error { return h.commit(c, model.ChannelPOS) }

func (h *SaleHandler) GetSales(c *fiber.Ctx) error {
	filter := repository.SaleFilter{
		Channel: model.Channel(c.Query("channel")),
		Status:  model.SaleStatus(c.Query("status")),
		Limit:   c.QueryInt("limit", 50),
		Offset:  c.QueryInt("offset", 0),
	}
	if from, err := time.Parse("2006-01-02", c.Query("from")); err == nil {
		filter.From = &from
	}
	if to, err := time.Parse("2006-01-02", c.Query("to")); err == nil {
		end := to.AddDate(0, 0, 1)
		filter.To = &end
	}

	sales, total, err := h.committer.List(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": sales, "total": total})
}

func (h *SaleHandler) GetSale(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid sale ID"})
	}
	sale, err := h.committer.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sale)
}

// UpdateStatus moves an online order along its fulfilment steps.
// PUT /api/v1/sales/:id/status
func (h *SaleHandler) UpdateStatus(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid sale ID"})
	}
	var req StatusRequest
	if err := c.BodyParser(&req); err != nil {
		return badJSON(c)
	}

	sale, err := h.committer.Transition(c.UserContext(), id, req.Status, actorOf(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Status updated", "data": sale})
}

// POST /api/v1/sales/:id/cancel
func (h *SaleHandler) Cancel(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid sale ID"})
	}
	var req CancelRequest
	if err := c.BodyParser(&req); err != nil {
		return badJSON(c)
	}

	sale, err := h.committer.Cancel(c.UserContext(), id, req.Reason, actorOf(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Order cancelled", "data": sale})
}

// Refund returns all or part of a completed or delivered sale.
// POST /api/v1/sales/:id/refunds
func (h *SaleHandler) Refund(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid sale ID"})
	}
	var req service.RefundRequest
	if err := c.BodyParser(&req); err != nil {
		return badJSON(c)
	}
	req.SaleID = id

	refund, err := h.refunds.Refund(c.UserContext(), req, actorOf(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Refund recorded", "data": refund})
}
