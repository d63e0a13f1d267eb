package server

import (
	"errors"
	"strings"

	"farmfeed/internal/auth"
	"farmfeed/internal/middleware"
	"farmfeed/internal/models"
	"farmfeed/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// respondError writes err with the status its code maps to. Only server-side
// failures are logged.
func respondError(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		observability.Logger.ErrorContext(c.UserContext(), "request failed",
			"method", c.Method(), "path", c.Path(), "error", err)
	}
	return models.RespondWithError(c, status, err)
}

// parsePostID extracts the :id route parameter as a post id.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func parsePostID(c *fiber.Ctx) (string, error) {
	id := strings.TrimSpace(c.Params("id"))
	if err := uuid.Validate(id); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid post ID"))
		return "", errResponseWritten
	}
	return id, nil
}

// parseBody decodes the request body into dest.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func parseBody(c *fiber.Ctx, dest any) error {
	if err := c.BodyParser(dest); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}

// currentPrincipal returns the verified caller, or the zero Principal on
// public routes. Services reject the zero value where identity is required.
func currentPrincipal(c *fiber.Ctx) auth.Principal {
	p, _ := middleware.PrincipalFrom(c)
	return p
}

func featureDisabled(c *fiber.Ctx, feature string) error {
	return models.RespondWithError(c, fiber.StatusForbidden,
		models.NewUnauthorizedError(feature+" is not enabled for this account"))
}
