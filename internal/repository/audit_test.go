package repository

import (
	"context"
	"testing"

	"farmfeed/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditor_DriftAndRepair(t *testing.T) {
	db := newSQLiteDB(t)
	posts, comments := NewPostRepository(db), NewCommentRepository(db)
	auditor := NewAuditor(db)
	ctx := context.Background()

	require.NoError(t, posts.Create(ctx, newPost("p1", "a", 0)))
	require.NoError(t, posts.Create(ctx, newPost("p2", "b", 1)))
	_, err := posts.Mutate(ctx, "p1", like("u1"))
	require.NoError(t, err)
	_, err = comments.Append(ctx, &models.Comment{
		ID: "c1", PostID: "p1", AuthorID: "u2", AuthorName: "Farmer u2", Text: "same here", CreatedAt: baseTime,
	})
	require.NoError(t, err)

	drift, err := auditor.Drift(ctx)
	require.NoError(t, err)
	assert.Empty(t, drift, "counters written through the store never drift")

	require.NoError(t, db.Model(&models.Post{}).Where("id = ?", "p1").
		Updates(map[string]any{"like_count": 5, "comment_count": 0}).Error)

	drift, err = auditor.Drift(ctx)
	require.NoError(t, err)
	require.Len(t, drift, 1)
	assert.Equal(t, CounterDrift{
		PostID: "p1", LikeCount: 5, CommentCount: 0, Likes: 1, Comments: 1,
	}, drift[0])

	require.NoError(t, auditor.Repair(ctx, "p1"))
	drift, err = auditor.Drift(ctx)
	require.NoError(t, err)
	assert.Empty(t, drift)

	p, err := posts.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.LikeCount)
	assert.Equal(t, 1, p.CommentCount)
}

func TestAuditor_RepairUnknownPost(t *testing.T) {
	auditor := NewAuditor(newSQLiteDB(t))
	err := auditor.Repair(context.Background(), "missing")
	assert.True(t, models.IsCode(err, models.CodeNotFound), "got %v", err)
}
