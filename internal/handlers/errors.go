package handlers

import (
	"errors"
	"log"

	"tokoadmin/internal/services"

	"github.com/gofiber/fiber/v2"
)

// Machine-readable error codes. These are part of the HTTP contract; clients
// key on them, so they must stay stable.
const (
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeValidationError    = "VALIDATION_ERROR"
	CodeDuplicateCategory  = "DUPLICATE_CATEGORY"
	CodeNotFound           = "NOT_FOUND"
	CodeCategoryInUse      = "CATEGORY_IN_USE"
	CodeInvalidCategory    = "INVALID_CATEGORY"
	CodeServerError        = "SERVER_ERROR"
)

// respondError maps a service error to its status and wire code. Unexpected
// faults collapse to a generic SERVER_ERROR with no internal detail leaked.
func respondError(c *fiber.Ctx, err error) error {
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"code":    CodeValidationError,
			"message": "Validation failed",
			"fields":  ve.Fields,
		})
	}

	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"code":    CodeInvalidCredentials,
			"message": "Invalid username or password",
		})
	case errors.Is(err, services.ErrUnauthenticated):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"code":    CodeUnauthorized,
			"message": "Authentication required",
		})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"code":    CodeNotFound,
			"message": "Record not found",
		})
	case errors.Is(err, services.ErrDuplicateName):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"code":    CodeDuplicateCategory,
			"message": "A category with this name already exists",
		})
	case errors.Is(err, services.ErrCategoryInUse):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"code":    CodeCategoryInUse,
			"message": "Category is referenced by existing products",
		})
	case errors.Is(err, services.ErrInvalidCategory):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"code":    CodeInvalidCategory,
			"message": "Referenced category does not exist",
		})
	default:
		log.Printf("Unhandled error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"code":    CodeServerError,
			"message": "Internal server error",
		})
	}
}

// badRequest reports a malformed request body or parameter as a validation
// failure on the named field.
func badRequest(c *fiber.Ctx, field, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"code":    CodeValidationError,
		"message": "Validation failed",
		"fields":  map[string]string{field: message},
	})
}
