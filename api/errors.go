package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/intents/pkg/intent"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusFor maps classifier errors onto HTTP status codes. Persistence is
// checked first: a persist timeout is still a persistence failure, and the
// caller must learn that the model changed in memory only.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, intent.ErrPersistence):
		return fiber.StatusInternalServerError,
			"model updated in memory but not persisted: " + err.Error()
	case errors.Is(err, intent.ErrValidation):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, intent.ErrUnknownSystem), errors.Is(err, intent.ErrEmptyCorpus):
		return fiber.StatusNotFound, err.Error()
	case errors.Is(err, intent.ErrTimeout):
		return fiber.StatusGatewayTimeout, err.Error()
	case errors.Is(err, intent.ErrDependency):
		return fiber.StatusBadGateway, err.Error()
	default:
		return fiber.StatusInternalServerError, err.Error()
	}
}

func (s *Server) fail(c *fiber.Ctx, err error) error {
	status, msg := statusFor(err)

	if status >= fiber.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"error", err,
		)
	} else {
		s.logger.Debug("request rejected",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"error", err,
		)
	}

	return c.Status(status).JSON(ErrorResponse{Error: msg})
}
