package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"farmfeed/internal/auth"
	"farmfeed/internal/models"
	"farmfeed/internal/notifications"
	"farmfeed/internal/observability"
	"farmfeed/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const (
	maxTitleLen       = 300
	maxDescriptionLen = 5000
)

type PostService struct {
	postRepo repository.PostRepository
	events   EventPublisher
	now      func() time.Time
	newID    func() string
}

type CreatePostInput struct {
	Title       string
	Description string
	Media       models.Media
}

func NewPostService(postRepo repository.PostRepository, events EventPublisher) *PostService {
	return &PostService{
		postRepo: postRepo,
		events:   events,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

func (s *PostService) CreatePost(ctx context.Context, author auth.Principal, in CreatePostInput) (post *models.Post, err error) {
	span, ctx := observability.NewSpan(ctx, "PostService.CreatePost")
	defer func() { span.End(err) }()

	if err := requirePrincipal(author); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return nil, models.NewValidationError("Title too long (max 300 characters)")
	}
	description := strings.TrimSpace(in.Description)
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return nil, models.NewValidationError("Description too long (max 5000 characters)")
	}
	if err := validateMedia(in.Media); err != nil {
		return nil, err
	}

	post = &models.Post{
		ID:          s.newID(),
		AuthorID:    author.UserID,
		AuthorName:  authorName(author),
		Title:       title,
		Description: description,
		Media:       in.Media,
		LikedBy:     []string{},
		DislikedBy:  []string{},
		CreatedAt:   s.now(),
	}
	ctx = context.WithoutCancel(ctx)
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	observability.PostsCreatedTotal.Inc()
	publish(ctx, s.events, notifications.EventPostCreated, post.ID, author.UserID)
	return post, nil
}

func validateMedia(m models.Media) error {
	if m.IsZero() {
		if m.Kind != "" {
			return models.NewValidationError("Media URL is required when a media kind is set")
		}
		return nil
	}
	if !m.Kind.Valid() {
		return models.NewValidationError("Media kind must be \"image\" or \"video\"")
	}
	return nil
}

func (s *PostService) GetPost(ctx context.Context, id string) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id)
}

// ListPosts returns every post, newest first.
func (s *PostService) ListPosts(ctx context.Context) (posts []*models.Post, err error) {
	span, ctx := observability.NewSpan(ctx, "PostService.ListPosts")
	defer func() { span.End(err) }()
	return s.postRepo.List(ctx)
}

func (s *PostService) ListPostsByAuthor(ctx context.Context, authorID string) ([]*models.Post, error) {
	span, ctx := observability.NewSpan(ctx, "PostService.ListPostsByAuthor",
		attribute.String("author.id", authorID))
	posts, err := s.postRepo.ListByAuthor(ctx, authorID)
	span.End(err)
	return posts, err
}
