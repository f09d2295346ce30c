package middlewares

import (
	"errors"

	"github.com/ahmed-abdelmageed/vise-services-sub001/apperr"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var kindStatus = map[apperr.Kind]int{
	apperr.Validation:   fiber.StatusUnprocessableEntity,
	apperr.NotFound:     fiber.StatusNotFound,
	apperr.Conflict:     fiber.StatusConflict,
	apperr.Gateway:      fiber.StatusBadGateway,
	apperr.Storage:      fiber.StatusBadGateway,
	apperr.Persistence:  fiber.StatusInternalServerError,
	apperr.Notification: fiber.StatusInternalServerError,
}

// ErrorHandler centralizes error responses and keeps messages sanitized.
// The raw error is only logged.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		// 1) Fiber errors (use their status code + message)
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
		}

		// 2) Validation errors (422 + per-field info)
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			out := make(map[string]string, len(ve))
			for _, fe := range ve {
				// field names are json names, see validate.go
				out[fe.Field()] = fe.Tag()
			}
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"message": "validation failed",
				"errors":  out,
			})
		}

		// 3) Domain errors
		var ae *apperr.Error
		if errors.As(err, &ae) {
			status, ok := kindStatus[ae.Kind]
			if !ok {
				status = fiber.StatusInternalServerError
			}
			if status >= fiber.StatusInternalServerError || ae.Kind == apperr.Gateway || ae.Kind == apperr.Storage {
				log.Error("request failed",
					zap.String("kind", string(ae.Kind)),
					zap.String("path", c.Path()),
					zap.Error(err))
			}
			body := fiber.Map{"message": ae.Message}
			if status == fiber.StatusInternalServerError {
				body["message"] = "internal server error"
			}
			if len(ae.Fields) > 0 {
				body["errors"] = ae.Fields
			}
			return c.Status(status).JSON(body)
		}

		// 4) Unknown errors (500)
		log.Error("internal error", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "internal server error",
		})
	}
}
