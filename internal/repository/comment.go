package repository

import (
	"context"
	"errors"

	"farmfeed/internal/models"
	"farmfeed/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	// Append stores the comment and recomputes the owning post's CommentCount
	// from the stored rows, atomically under the post's lock. It returns the
	// new count.
	Append(ctx context.Context, comment *models.Comment) (int, error)
	// ListByPost returns the post's comments, oldest first.
	ListByPost(ctx context.Context, postID string) ([]*models.Comment, error)
}

// commentRepository implements CommentRepository
type commentRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db, log: observability.NewRepoLogger("comments")}
}

func (r *commentRepository) Append(ctx context.Context, comment *models.Comment) (int, error) {
	defer observability.TrackStore("comment_append")()

	var count int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			First(&post, "id = ?", comment.PostID).Error; err != nil {
			return err
		}
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Comment{}).Where("post_id = ?", comment.PostID).Count(&count).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ?", comment.PostID).Update("comment_count", count).Error
	})
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.LogError(ctx, err, "append")
		}
		return 0, translateError(err, "Post", comment.PostID)
	}

	r.log.LogCreate(ctx, map[string]any{"comment_id": comment.ID, "post_id": comment.PostID, "comment_count": count})
	return int(count), nil
}

func (r *commentRepository) ListByPost(ctx context.Context, postID string) ([]*models.Comment, error) {
	defer observability.TrackStore("comment_list")()

	comments := make([]*models.Comment, 0)
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, translateError(err, "Post", postID)
	}
	return comments, nil
}
