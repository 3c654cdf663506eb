package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns errors returned by handlers into the JSON
// envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		var ve *ValidationError
		switch {
		case errors.As(err, &fe):
			code = fe.Code
		case errors.As(err, &ve):
			code = fiber.StatusBadRequest
		}
		return ctx.Status(code).JSON(ErrorResponse(code, err.Error()))
	}
}
