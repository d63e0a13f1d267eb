// Package middleware provides HTTP middleware for the feed API.
package middleware

import (
	"errors"

	"farmfeed/internal/auth"
	"farmfeed/internal/models"
	"farmfeed/internal/observability"

	"github.com/gofiber/fiber/v2"
)

const principalLocal = "principal"

// AuthRequired is a middleware that enforces a verified bearer token.
// On success the principal is stored in c.Locals and in the request context.
func AuthRequired(verifier *auth.Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := verifier.VerifyHeader(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			msg := "Invalid or expired token"
			if errors.Is(err, auth.ErrMissingToken) {
				msg = "Authorization header required"
			}
			observability.Logger.DebugContext(c.UserContext(), "rejected bearer token", "error", err)
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(msg))
		}

		c.Locals("userID", p.UserID)
		c.Locals(principalLocal, p)

		ctx := auth.WithPrincipal(c.UserContext(), p)
		ctx = observability.WithUserID(ctx, p.UserID)
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// PrincipalFrom returns the principal stored by AuthRequired.
func PrincipalFrom(c *fiber.Ctx) (auth.Principal, bool) {
	p, ok := c.Locals(principalLocal).(auth.Principal)
	return p, ok && p.UserID != ""
}
