package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"farmfeed/internal/auth"
	"farmfeed/internal/models"
	"farmfeed/internal/notifications"
	"farmfeed/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn       func(context.Context, *models.Post) error
	getByIDFn      func(context.Context, string) (*models.Post, error)
	listFn         func(context.Context) ([]*models.Post, error)
	listByAuthorFn func(context.Context, string) ([]*models.Post, error)
	mutateFn       func(context.Context, string, func(*models.Post) error) (*models.Post, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id string) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) List(ctx context.Context) ([]*models.Post, error) {
	return s.listFn(ctx)
}
func (s *postRepoStub) ListByAuthor(ctx context.Context, authorID string) ([]*models.Post, error) {
	return s.listByAuthorFn(ctx, authorID)
}
func (s *postRepoStub) Mutate(ctx context.Context, id string, fn func(*models.Post) error) (*models.Post, error) {
	return s.mutateFn(ctx, id, fn)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:       func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn:      func(_ context.Context, id string) (*models.Post, error) { return &models.Post{ID: id}, nil },
		listFn:         func(_ context.Context) ([]*models.Post, error) { return []*models.Post{}, nil },
		listByAuthorFn: func(_ context.Context, _ string) ([]*models.Post, error) { return []*models.Post{}, nil },
		mutateFn: func(_ context.Context, id string, fn func(*models.Post) error) (*models.Post, error) {
			p := &models.Post{ID: id}
			if err := fn(p); err != nil {
				return nil, err
			}
			return p, nil
		},
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	appendFn     func(context.Context, *models.Comment) (int, error)
	listByPostFn func(context.Context, string) ([]*models.Comment, error)
}

func (s *commentRepoStub) Append(ctx context.Context, comment *models.Comment) (int, error) {
	return s.appendFn(ctx, comment)
}
func (s *commentRepoStub) ListByPost(ctx context.Context, postID string) ([]*models.Comment, error) {
	return s.listByPostFn(ctx, postID)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		appendFn:     func(_ context.Context, _ *models.Comment) (int, error) { return 1, nil },
		listByPostFn: func(_ context.Context, _ string) ([]*models.Comment, error) { return nil, nil },
	}
}

// eventRecorder captures published feed events.
type eventRecorder struct {
	mu     sync.Mutex
	events []notifications.FeedEvent
	err    error
}

func (r *eventRecorder) PublishFeedEvent(_ context.Context, ev notifications.FeedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *eventRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

// core wires the services over a fresh memory store.
type core struct {
	store     *repository.MemoryStore
	posts     *PostService
	reactions *ReactionService
	comments  *CommentService
	feed      *FeedService
	events    *eventRecorder
}

func newCore() *core {
	store := repository.NewMemoryStore()
	events := &eventRecorder{}
	posts := NewPostService(store, events)
	comments := NewCommentService(store, store, events)
	return &core{
		store:     store,
		posts:     posts,
		reactions: NewReactionService(store, events),
		comments:  comments,
		feed:      NewFeedService(posts, comments),
		events:    events,
	}
}

func principal(id string) auth.Principal {
	return auth.Principal{UserID: id, Name: "Farmer " + id}
}

func (c *core) mustCreate(t *testing.T, author, title string) *models.Post {
	t.Helper()
	post, err := c.posts.CreatePost(context.Background(), principal(author), CreatePostInput{Title: title})
	require.NoError(t, err)
	return post
}

// assertCode asserts that err is an AppError carrying code.
func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeValidation)
}

// assertConsistent checks that p's reaction sets and counters agree.
func assertConsistent(t *testing.T, p *models.Post) {
	t.Helper()
	assert.Equal(t, len(p.LikedBy), p.LikeCount, "like count drifted from set")
	assert.Equal(t, len(p.DislikedBy), p.DislikeCount, "dislike count drifted from set")
	for _, u := range p.LikedBy {
		assert.NotContains(t, p.DislikedBy, u, "user %s in both sets", u)
	}
}
