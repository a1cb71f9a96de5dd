package api

import (
	"errors"

	"go-propflow/internal/common/apperrors"

	"github.com/gofiber/fiber/v2"
)

// Error maps the service error taxonomy onto HTTP responses. A soft-deleted
// instance answers 410 with provenance only; unknown errors stay generic.
func Error(ctx *fiber.Ctx, err error) error {
	var validation *apperrors.ValidationError
	if errors.As(err, &validation) {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validation.Msg})
	}

	var unauthorized *apperrors.UnauthorizedError
	if errors.As(err, &unauthorized) {
		return ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": unauthorized.Error()})
	}

	if errors.Is(err, apperrors.ErrNotFound) {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}

	var conflict *apperrors.StateConflictError
	if errors.As(err, &conflict) {
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":          conflict.Error(),
			"current_status": conflict.Current,
		})
	}

	var gone *apperrors.GoneError
	if errors.As(err, &gone) {
		return ctx.Status(fiber.StatusGone).JSON(fiber.Map{
			"error":        "process instance has been deleted",
			"deleted_at":   gone.DeletedAt,
			"deleted_by":   gone.DeletedBy,
			"external_ref": gone.ExternalRef,
		})
	}

	return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}
