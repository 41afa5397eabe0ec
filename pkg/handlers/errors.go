package handlers

import (
	"errors"

	"airline/pkg/apperror"
	"airline/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(apperror.NewValidation(msg))
}

// respond writes v with status, or renders err: rule violations become 400
// with every message, anything else 500 with the cause kept in the log.
func respond(c *fiber.Ctx, log *logger.Logger, status int, v interface{}, err error) error {
	if err == nil {
		return c.Status(status).JSON(v)
	}

	var verr *apperror.ValidationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusBadRequest).JSON(verr)
	}

	log.Error("request failed",
		logger.String("method", c.Method()),
		logger.String("path", c.Path()),
		logger.Error(err),
	)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
}
