package handler

import (
	"errors"

	"go-retail-core/internal/middleware"
	"go-retail-core/internal/model"
	"go-retail-core/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var statusByError = []struct {
	err    error
	status int
}{
	{service.ErrProductNotFound, fiber.StatusNotFound},
	{service.ErrSaleNotFound, fiber.StatusNotFound},
	{service.ErrInsufficientStock, fiber.StatusConflict},
	{service.ErrAlreadyRefunded, fiber.StatusConflict},
	{service.ErrRefundExceedsOriginal, fiber.StatusConflict},
	{service.ErrSKUExists, fiber.StatusConflict},
	{service.ErrEmailTaken, fiber.StatusConflict},
	{service.ErrInvalidTransition, fiber.StatusConflict},
	{service.ErrRefundNotAllowed, fiber.StatusConflict},
}

// respondError writes err the way clients expect: user errors verbatim with
// a matching status, anything else as a bare 500.
func respondError(c *fiber.Ctx, err error) error {
	for _, m := range statusByError {
		if errors.Is(err, m.err) {
			return c.Status(m.status).JSON(fiber.Map{"error": err.Error()})
		}
	}
	if service.IsUserError(err) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}

	zap.S().Errorw("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
}

func badJSON(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON"})
}

// paramUUID parses a UUID path parameter.
func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	return id, err == nil
}

func actorOf(c *fiber.Ctx) model.Actor {
	if actor, ok := middleware.ActorFrom(c); ok {
		return actor
	}
	return model.Actor{ID: "system", Name: "Unknown"}
}
