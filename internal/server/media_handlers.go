package server

import (
	"strings"

	"farmfeed/internal/featureflags"
	"farmfeed/internal/models"

	"github.com/gofiber/fiber/v2"
)

// UploadMedia handles POST /api/media (multipart: "file", optional "kind").
// The returned reference is what a post's media field carries.
func (s *Server) UploadMedia(c *fiber.Ctx) error {
	p := currentPrincipal(c)
	if !s.featureFlags.Enabled(featureflags.MediaUploads, p.UserID) {
		return featureDisabled(c, "Media upload")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("No file uploaded"))
	}

	kind := models.MediaKind(strings.ToLower(strings.TrimSpace(c.FormValue("kind"))))
	if kind == "" {
		major, _, _ := strings.Cut(file.Header.Get(fiber.HeaderContentType), "/")
		kind = models.MediaKind(major)
	}

	src, err := file.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
	}
	defer func() { _ = src.Close() }()

	m, err := s.media.Put(c.UserContext(), src, kind)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(m)
}
