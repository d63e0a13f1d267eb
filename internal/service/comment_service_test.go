package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"farmfeed/internal/models"
	"farmfeed/internal/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentService_Scenario(t *testing.T) {
	t.Parallel()
	c := newCore()
	ctx := context.Background()
	post := c.mustCreate(t, "u1", "Rain advice")

	comment, err := c.comments.AddComment(ctx, post.ID, principal("u3"), "Nice tip")
	require.NoError(t, err)
	assert.Equal(t, "Nice tip", comment.Text)
	assert.Equal(t, "u3", comment.AuthorID)
	assert.NotEmpty(t, comment.ID)

	stored, err := c.posts.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.CommentCount)

	comments, err := c.comments.ListComments(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "Nice tip", comments[0].Text)
	assert.Contains(t, c.events.types(), notifications.EventCommentAdded)
}

func TestCommentService_EmptyTextLeavesPostUntouched(t *testing.T) {
	t.Parallel()
	c := newCore()
	ctx := context.Background()
	post := c.mustCreate(t, "u1", "Rain advice")

	for _, text := range []string{"", "   ", "\t\n "} {
		_, err := c.comments.AddComment(ctx, post.ID, principal("u3"), text)
		assertCode(t, err, models.CodeEmptyText)
	}

	stored, err := c.posts.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.CommentCount)

	comments, err := c.comments.ListComments(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestCommentService_EmptyTextCheckedBeforeLookup(t *testing.T) {
	t.Parallel()
	c := newCore()
	_, err := c.comments.AddComment(context.Background(), "missing-id", principal("u3"), "  ")
	assertCode(t, err, models.CodeEmptyText)
}

func TestCommentService_AddComment_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("missing post", func(t *testing.T) {
		t.Parallel()
		c := newCore()
		_, err := c.comments.AddComment(ctx, "missing-id", principal("u3"), "hello")
		assertCode(t, err, models.CodeNotFound)
	})

	t.Run("too long", func(t *testing.T) {
		t.Parallel()
		svc := NewCommentService(noopCommentRepo(), noopPostRepo(), nil)
		_, err := svc.AddComment(ctx, "p1", principal("u3"), strings.Repeat("é", maxCommentLen+1))
		assertValidationError(t, err)
	})

	t.Run("exactly at limit in runes", func(t *testing.T) {
		t.Parallel()
		svc := NewCommentService(noopCommentRepo(), noopPostRepo(), nil)
		_, err := svc.AddComment(ctx, "p1", principal("u3"), strings.Repeat("é", maxCommentLen))
		assert.NoError(t, err)
	})

	t.Run("storage failure propagates", func(t *testing.T) {
		t.Parallel()
		repoErr := models.NewStorageError(errors.New("timeout"))
		repo := noopCommentRepo()
		repo.appendFn = func(context.Context, *models.Comment) (int, error) { return 0, repoErr }
		events := &eventRecorder{}
		svc := NewCommentService(repo, noopPostRepo(), events)
		_, err := svc.AddComment(ctx, "p1", principal("u3"), "hello")
		assert.ErrorIs(t, err, repoErr)
		assert.Empty(t, events.types())
	})
}

func TestCommentService_AddComment_TrimsAndStamps(t *testing.T) {
	t.Parallel()

	var got *models.Comment
	repo := noopCommentRepo()
	repo.appendFn = func(_ context.Context, c *models.Comment) (int, error) {
		got = c
		return 1, nil
	}
	svc := NewCommentService(repo, noopPostRepo(), nil)
	now := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	svc.newID = func() string { return "c-1" }

	_, err := svc.AddComment(context.Background(), "p1", principal("u3"), "  Nice tip \n")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Nice tip", got.Text)
	assert.Equal(t, "c-1", got.ID)
	assert.Equal(t, "p1", got.PostID)
	assert.Equal(t, "Farmer u3", got.AuthorName)
	assert.Equal(t, now, got.CreatedAt)
}

func TestCommentService_CountMatchesListing(t *testing.T) {
	t.Parallel()
	c := newCore()
	ctx := context.Background()
	a := c.mustCreate(t, "u1", "a")
	b := c.mustCreate(t, "u1", "b")

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	c.comments.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	for i, postID := range []string{a.ID, b.ID, a.ID, a.ID} {
		_, err := c.comments.AddComment(ctx, postID, principal("u2"), strings.Repeat("c", i+1))
		require.NoError(t, err)
	}

	for _, id := range []string{a.ID, b.ID} {
		post, err := c.posts.GetPost(ctx, id)
		require.NoError(t, err)
		comments, err := c.comments.ListComments(ctx, id)
		require.NoError(t, err)
		assert.Len(t, comments, post.CommentCount)
	}

	comments, err := c.comments.ListComments(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "ccc", "cccc"}, []string{comments[0].Text, comments[1].Text, comments[2].Text})
}

func TestCommentService_ListComments(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("empty is not an error", func(t *testing.T) {
		t.Parallel()
		svc := NewCommentService(noopCommentRepo(), noopPostRepo(), nil)
		comments, err := svc.ListComments(ctx, "p1")
		require.NoError(t, err)
		assert.NotNil(t, comments)
		assert.Empty(t, comments)
	})

	t.Run("missing post", func(t *testing.T) {
		t.Parallel()
		c := newCore()
		_, err := c.comments.ListComments(ctx, "missing-id")
		assertCode(t, err, models.CodeNotFound)
	})
}
