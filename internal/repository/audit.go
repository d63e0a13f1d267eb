package repository

import (
	"context"

	"farmfeed/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CounterDrift describes a post whose denormalized counters disagree with
// the reaction and comment rows.
type CounterDrift struct {
	PostID       string
	LikeCount    int
	DislikeCount int
	CommentCount int
	Likes        int
	Dislikes     int
	Comments     int
}

// Auditor checks and repairs denormalized post counters.
type Auditor struct {
	db *gorm.DB
}

// NewAuditor creates an Auditor over db.
func NewAuditor(db *gorm.DB) *Auditor {
	return &Auditor{db: db}
}

const auditSelect = "posts.id AS post_id, posts.like_count, posts.dislike_count, posts.comment_count, " +
	"(SELECT COUNT(*) FROM reactions WHERE reactions.post_id = posts.id AND reactions.kind = 'like') AS likes, " +
	"(SELECT COUNT(*) FROM reactions WHERE reactions.post_id = posts.id AND reactions.kind = 'dislike') AS dislikes, " +
	"(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comments"

// Drift returns every post whose counters do not match its rows.
func (a *Auditor) Drift(ctx context.Context) ([]CounterDrift, error) {
	var rows []CounterDrift
	if err := a.db.WithContext(ctx).
		Model(&models.Post{}).
		Select(auditSelect).
		Order("posts.id").
		Scan(&rows).Error; err != nil {
		return nil, translateError(err, "Post", "")
	}

	out := make([]CounterDrift, 0)
	for _, r := range rows {
		if r.LikeCount != r.Likes || r.DislikeCount != r.Dislikes || r.CommentCount != r.Comments {
			out = append(out, r)
		}
	}
	return out, nil
}

// Repair recomputes a post's counters from its rows under the post's lock.
func (a *Auditor) Repair(ctx context.Context, postID string) error {
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&post, "id = ?", postID).Error; err != nil {
			return err
		}
		var row CounterDrift
		if err := tx.Model(&models.Post{}).Select(auditSelect).Where("posts.id = ?", postID).Scan(&row).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ?", postID).Updates(map[string]any{
			"like_count":    row.Likes,
			"dislike_count": row.Dislikes,
			"comment_count": row.Comments,
		}).Error
	})
	return translateError(err, "Post", postID)
}
