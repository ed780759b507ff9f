package http

import (
	"errors"
	"log/slog"

	"cv-optimizer/internal/domain"

	"github.com/gofiber/fiber/v2"
)

const msgInternal = "Internal server error"

// AppError is an error with a fixed status and a message safe to return.
type AppError struct {
	StatusCode int
	Message    string
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

func NewAppError(status int, message string, cause error) *AppError {
	return &AppError{StatusCode: status, Message: message, Cause: cause}
}

// ErrorHandler renders every error as {"detail": "..."}. Details of 5xx
// errors are logged and replaced by a generic message.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, detail := normalizeError(err)
		if status >= fiber.StatusInternalServerError {
			logger.Error("request failed",
				"method", c.Method(),
				"path", c.Path(),
				"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
				"error", err,
			)
			detail = msgInternal
		}
		return c.Status(status).JSON(fiber.Map{"detail": detail})
	}
}

func normalizeError(err error) (int, string) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode, appErr.Message
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, fiberErr.Message
	}

	status := statusFor(err)
	var de *domain.Error
	if errors.As(err, &de) {
		return status, de.Message
	}
	return status, defaultMessage(status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrNotReady),
		errors.Is(err, domain.ErrNoAPIKey):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrAuth):
		return fiber.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

func defaultMessage(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "Invalid request"
	case fiber.StatusUnauthorized:
		return "Could not validate credentials"
	case fiber.StatusForbidden:
		return "Forbidden"
	case fiber.StatusNotFound:
		return "Not found"
	default:
		return msgInternal
	}
}
