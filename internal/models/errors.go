package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes surfaced to callers.
const (
	CodeNotFound       = "NOT_FOUND"
	CodeEmptyText      = "EMPTY_TEXT"
	CodeValidation     = "VALIDATION_ERROR"
	CodeStorageFailure = "STORAGE_FAILURE"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeUpstream       = "UPSTREAM_UNAVAILABLE"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewEmptyTextError() *AppError {
	return &AppError{
		Code:    CodeEmptyText,
		Message: "Comment text must not be empty",
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

// NewStorageError wraps a persistence failure. Nothing was committed.
func NewStorageError(err error) *AppError {
	return &AppError{
		Code:    CodeStorageFailure,
		Message: "Storage operation failed",
		Err:     err,
	}
}

// NewUpstreamError wraps a failure of an external service the request depends on.
func NewUpstreamError(service string, err error) *AppError {
	return &AppError{
		Code:    CodeUpstream,
		Message: fmt.Sprintf("%s is unavailable", service),
		Err:     err,
	}
}

// IsCode reports whether err is an *AppError carrying code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// StatusFor maps an error onto the HTTP status the API reports for it.
func StatusFor(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeEmptyText, CodeValidation:
		return fiber.StatusBadRequest
	case CodeUnauthorized:
		return fiber.StatusUnauthorized
	case CodeUpstream:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// RespondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		// Storage details stay in the logs.
		if appErr.Err != nil && appErr.Code != CodeStorageFailure {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}
