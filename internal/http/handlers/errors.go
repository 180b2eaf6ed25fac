package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"feedshop/internal/domain"
	applog "feedshop/internal/log"
)

const friendlyError = "Something went wrong. Please try again."

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidProduct), errors.Is(err, domain.ErrInvalidQuantity):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrOutOfStock),
		errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrInUse),
		errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrCartExpired),
		errors.Is(err, domain.ErrStockConflict):
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

// fail maps a service error to a JSON response. Unexpected errors are
// logged and hidden behind a generic message.
func fail(c *fiber.Ctx, action string, err error, fields map[string]any) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		applog.Error(c, action+".fail", err, fields)
		return c.Status(status).JSON(fiber.Map{"error": friendlyError})
	}
	if fields == nil {
		fields = map[string]any{}
	}
	fields["error"] = err.Error()
	applog.Info(c, action+".reject", fields)
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func badRequest(c *fiber.Ctx, field, msg string) error {
	applog.Security(c, "validation.fail", map[string]any{"field": field})
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
