package server

import (
	"farmfeed/internal/models"
	"farmfeed/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createPostRequest struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Media       models.Media `json:"media"`
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req createPostRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.postService.CreatePost(c.UserContext(), currentPrincipal(c), service.CreatePostInput{
		Title:       req.Title,
		Description: req.Description,
		Media:       req.Media,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetFeed handles GET /api/feed. Every call is a full reload of the store.
func (s *Server) GetFeed(c *fiber.Ctx) error {
	snap, err := s.feedService.RefreshFeed(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(snap)
}

// GetFeedState handles GET /api/feed/state: the state of this instance's
// reader, kept warm by change notifications.
func (s *Server) GetFeedState(c *fiber.Ctx) error {
	state, lastErr := s.feedService.State()
	snap := s.feedService.Snapshot()

	resp := fiber.Map{
		"state":     state.String(),
		"posts":     len(snap.Posts),
		"loaded_at": snap.LoadedAt,
	}
	if lastErr != nil {
		resp["error"] = lastErr.Error()
	}
	return c.JSON(resp)
}

// GetThread handles GET /api/posts/:id
func (s *Server) GetThread(c *fiber.Ctx) error {
	id, err := parsePostID(c)
	if err != nil {
		return nil
	}

	thread, err := s.feedService.Thread(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(thread)
}

// GetUserPosts handles GET /api/users/:id/posts
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	posts, err := s.postService.ListPostsByAuthor(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// ToggleReaction handles POST /api/posts/:id/reactions
func (s *Server) ToggleReaction(c *fiber.Ctx) error {
	id, err := parsePostID(c)
	if err != nil {
		return nil
	}

	var req struct {
		Kind string `json:"kind"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	kind, err := models.ParseReactionKind(req.Kind)
	if err != nil {
		return respondError(c, err)
	}

	post, err := s.reactionService.ToggleReaction(c.UserContext(), id, currentPrincipal(c), kind)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}
