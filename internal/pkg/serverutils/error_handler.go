package serverutils

import (
	"errors"

	"deck-builder-be/pkg/deck"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware converts errors bubbled up from controllers into
// the JSON envelope with the right status code.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code, message := mapError(err)
		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}

func mapError(err error) (int, string) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return fiber.StatusBadRequest, verr.Error()
	}

	var ite *deck.InvalidTransitionError
	if errors.As(err, &ite) {
		return fiber.StatusConflict, ite.Error()
	}

	switch {
	case errors.Is(err, deck.ErrUnknownSession):
		return fiber.StatusNotFound, err.Error()
	case errors.Is(err, deck.ErrReasoningUnavailable),
		errors.Is(err, deck.ErrRetrievalUnavailable):
		return fiber.StatusServiceUnavailable, err.Error()
	}

	var ferr *fiber.Error
	if errors.As(err, &ferr) {
		return ferr.Code, ferr.Message
	}

	return fiber.StatusInternalServerError, err.Error()
}
