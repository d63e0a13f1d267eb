package models

import "time"

// Comment is an immutable reply attached to exactly one post.
type Comment struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	PostID     string    `gorm:"size:36;not null;index:idx_comments_post_created,priority:1" json:"post_id"`
	AuthorID   string    `gorm:"size:128;not null" json:"author_id"`
	AuthorName string    `gorm:"size:255;not null" json:"author_name"`
	Text       string    `gorm:"type:text;not null" json:"text"`
	CreatedAt  time.Time `gorm:"not null;index:idx_comments_post_created,priority:2" json:"created_at"`
}
