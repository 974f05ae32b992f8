package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes carried by AppError.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeInvalidUsername  = "INVALID_USERNAME"
	CodeInvalidBio       = "INVALID_BIO"
	CodeInvalidAbout     = "INVALID_ABOUT"
	CodeDuplicate        = "DUPLICATE"
	CodeNotFound         = "NOT_FOUND"
	CodeInvalidID        = "INVALID_ID"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeAlreadyFollowing = "ALREADY_FOLLOWING"
	CodeNotFollowing     = "NOT_FOLLOWING"
	CodeConnection       = "CONNECTION_ERROR"
	CodeInternal         = "INTERNAL_ERROR"
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

func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

// NewFieldValidationError is a validation failure bound to one profile field.
func NewFieldValidationError(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func NewDuplicateError(message string) *AppError {
	return &AppError{
		Code:    CodeDuplicate,
		Message: message,
	}
}

func NewInvalidIDError(id string) *AppError {
	return &AppError{
		Code:    CodeInvalidID,
		Message: fmt.Sprintf("invalid ID %q", id),
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewAlreadyFollowingError() *AppError {
	return &AppError{
		Code:    CodeAlreadyFollowing,
		Message: "Already following this user",
	}
}

func NewNotFollowingError() *AppError {
	return &AppError{
		Code:    CodeNotFollowing,
		Message: "Not following this user",
	}
}

func NewConnectionError(err error) *AppError {
	return &AppError{
		Code:    CodeConnection,
		Message: "Database connection unavailable",
		Err:     err,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// IsCode reports whether err carries an AppError with the given code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsValidation matches generic and field-level validation failures.
func IsValidation(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	switch appErr.Code {
	case CodeValidation, CodeInvalidUsername, CodeInvalidBio, CodeInvalidAbout:
		return true
	}
	return false
}

// IsAppError reports whether err is already a domain error.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
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
		if appErr.Err != nil && appErr.Code != CodeInternal {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}
