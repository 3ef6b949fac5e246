package apperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type errorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// ErrorHandler maps every error returned by a handler onto a response.
// Unrecognized errors are logged and answered with an opaque 500.
func ErrorHandler(log logrus.FieldLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var appErr *Error
		if errors.As(err, &appErr) {
			return c.Status(Status(appErr.Kind)).JSON(errorBody{
				Error:   appErr.Message,
				Details: appErr.Detail,
			})
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(errorBody{Error: fe.Message})
		}

		log.WithFields(logrus.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		}).WithError(err).Error("unhandled error")

		return c.Status(fiber.StatusInternalServerError).JSON(errorBody{Error: "internal server error"})
	}
}
