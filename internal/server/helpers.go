package server

import (
	"errors"

	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

const maxPaginationLimit = 100

// parsePagination extracts page and limit query parameters.
func parsePagination(c *fiber.Ctx) (page, limit int) {
	page = c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit = c.QueryInt("limit", service.DefaultPageSize)
	if limit <= 0 {
		limit = service.DefaultPageSize
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}
	return page, limit
}

// statusFor maps a domain error to its HTTP status.
func statusFor(err error) int {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case models.CodeValidation, models.CodeInvalidUsername, models.CodeInvalidBio,
		models.CodeInvalidAbout, models.CodeInvalidID:
		return fiber.StatusBadRequest
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeUnauthorized:
		return fiber.StatusForbidden
	case models.CodeDuplicate, models.CodeAlreadyFollowing, models.CodeNotFollowing:
		return fiber.StatusConflict
	case models.CodeConnection:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func respondError(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, statusFor(err), err)
}

func badRequest(c *fiber.Ctx, message string) error {
	return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError(message))
}

func queryFlag(c *fiber.Ctx, key string) bool {
	switch c.Query(key) {
	case "1", "true", "yes":
		return true
	}
	return false
}
