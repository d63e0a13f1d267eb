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

const maxCommentLen = 2000

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	events      EventPublisher
	now         func() time.Time
	newID       func() string
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	events EventPublisher,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		events:      events,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
}

// AddComment appends a comment and recounts the post's CommentCount from the
// stored rows. Blank text is rejected before the post is looked up. Once
// validated, the write completes even if ctx is cancelled.
func (s *CommentService) AddComment(
	ctx context.Context, postID string, author auth.Principal, text string,
) (comment *models.Comment, err error) {
	span, ctx := observability.NewSpan(ctx, "CommentService.AddComment",
		attribute.String("post.id", postID))
	defer func() { span.End(err) }()

	if err := requirePrincipal(author); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		observability.CommentsTotal.WithLabelValues("empty").Inc()
		return nil, models.NewEmptyTextError()
	}
	if utf8.RuneCountInString(text) > maxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 2000 characters)")
	}

	comment = &models.Comment{
		ID:         s.newID(),
		PostID:     postID,
		AuthorID:   author.UserID,
		AuthorName: authorName(author),
		Text:       text,
		CreatedAt:  s.now(),
	}
	ctx = context.WithoutCancel(ctx)
	_, err = s.commentRepo.Append(ctx, comment)
	observability.CommentsTotal.WithLabelValues(observability.Result(err)).Inc()
	if err != nil {
		return nil, err
	}

	publish(ctx, s.events, notifications.EventCommentAdded, postID, author.UserID)
	return comment, nil
}

// ListComments returns the post's comments, oldest first. A post without
// comments yields an empty slice.
func (s *CommentService) ListComments(ctx context.Context, postID string) ([]*models.Comment, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	comments, err := s.commentRepo.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []*models.Comment{}
	}
	return comments, nil
}
