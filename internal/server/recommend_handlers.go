package server

import (
	"farmfeed/internal/featureflags"
	"farmfeed/internal/recommend"

	"github.com/gofiber/fiber/v2"
)

// Recommend handles POST /api/recommendations
func (s *Server) Recommend(c *fiber.Ctx) error {
	p := currentPrincipal(c)
	if !s.featureFlags.Enabled(featureflags.Recommendations, p.UserID) {
		return featureDisabled(c, "Crop recommendation")
	}

	var cond recommend.Conditions
	if err := parseBody(c, &cond); err != nil {
		return nil
	}

	entry, err := s.recommendService.Recommend(c.UserContext(), p, cond)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(entry)
}

// GetHistory handles GET /api/me/history
func (s *Server) GetHistory(c *fiber.Ctx) error {
	entries, err := s.recommendService.History(c.UserContext(), currentPrincipal(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(entries)
}
