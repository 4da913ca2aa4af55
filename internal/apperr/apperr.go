// Package apperr carries HTTP-aware application errors and renders them
// for fiber.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"go-retail-catalog/internal/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Error represents an application error
type Error struct {
	Code    int         `json:"-"`
	Message string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
	Err     error       `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(code int, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// WithDetails returns a copy carrying a structured payload for the client.
func (e *Error) WithDetails(details interface{}) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

func BadRequest(message string, err error) *Error {
	return New(http.StatusBadRequest, message, err)
}

func NotFound(message string) *Error {
	return New(http.StatusNotFound, message, nil)
}

func Conflict(message string) *Error {
	return New(http.StatusConflict, message, nil)
}

func Forbidden(message string) *Error {
	return New(http.StatusForbidden, message, nil)
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, "Internal server error", err)
}

// Handler is the fiber ErrorHandler. Unknown errors become a 500 with the
// cause logged, never echoed.
func Handler(c *fiber.Ctx, err error) error {
	var appErr *Error
	if errors.As(err, &appErr) {
		if appErr.Code >= 500 {
			logger.Error(c.UserContext(), "request failed", appErr.Err, zap.String("path", c.Path()))
		}
		return c.Status(appErr.Code).JSON(appErr)
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	logger.Error(c.UserContext(), "unhandled error", err, zap.String("path", c.Path()))
	return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
}
