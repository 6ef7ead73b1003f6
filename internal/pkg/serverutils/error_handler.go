package serverutils

import (
	"errors"

	"claudebuddy-be/pkg/research"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// StatusFor maps domain errors onto HTTP status codes.
func StatusFor(err error) int {
	var fiberErr *fiber.Error
	var validationErrs validator.ValidationErrors
	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	case errors.As(err, &validationErrs):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, research.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, research.ErrInvalidState):
		return fiber.StatusConflict
	case errors.Is(err, research.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, research.ErrTooManyTasks):
		return fiber.StatusTooManyRequests
	case errors.Is(err, research.ErrConfiguration):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func ErrorHandler(ctx *fiber.Ctx, err error) error {
	code := StatusFor(err)

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return ctx.Status(code).JSON(ErrorResponseWithData(code, "Validation failed", FieldErrors(validationErrs)))
	}
	return ctx.Status(code).JSON(ErrorResponse(code, err.Error()))
}

func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if err := ctx.Next(); err != nil {
			return ErrorHandler(ctx, err)
		}
		return nil
	}
}
