// Package models contains data structures for the application's domain models.
package models

import (
	"slices"
	"time"
)

// MediaKind identifies the type of media attached to a post.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// Valid reports whether k is a known media kind.
func (k MediaKind) Valid() bool {
	return k == MediaImage || k == MediaVideo
}

// Media is a reference to an uploaded asset. Posts never hold raw bytes.
type Media struct {
	URL  string    `gorm:"size:1024" json:"url"`
	Kind MediaKind `gorm:"size:16" json:"kind"`
}

// IsZero reports whether no media is attached.
func (m Media) IsZero() bool {
	return m.URL == ""
}

// Post is a community feed entry.
// LikeCount and DislikeCount always equal len(LikedBy) and len(DislikedBy);
// a user id appears in at most one of the two sets.
type Post struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	AuthorID    string    `gorm:"size:128;not null;index" json:"author_id"`
	AuthorName  string    `gorm:"size:255;not null" json:"author_name"`
	Title       string    `gorm:"size:300;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Media       Media     `gorm:"embedded;embeddedPrefix:media_" json:"media,omitzero"`

	LikeCount    int `gorm:"not null" json:"like_count"`
	DislikeCount int `gorm:"not null" json:"dislike_count"`
	CommentCount int `gorm:"not null" json:"comment_count"`

	// Membership sets are materialized from the reactions table.
	LikedBy    []string `gorm:"-" json:"liked_by"`
	DislikedBy []string `gorm:"-" json:"disliked_by"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

// ReactionOf returns the kind of reaction the user currently holds on the post.
func (p *Post) ReactionOf(userID string) (ReactionKind, bool) {
	if slices.Contains(p.LikedBy, userID) {
		return ReactionLike, true
	}
	if slices.Contains(p.DislikedBy, userID) {
		return ReactionDislike, true
	}
	return "", false
}

// Clone returns a deep copy of the post.
func (p *Post) Clone() *Post {
	cp := *p
	cp.LikedBy = append(make([]string, 0, len(p.LikedBy)), p.LikedBy...)
	cp.DislikedBy = append(make([]string, 0, len(p.DislikedBy)), p.DislikedBy...)
	return &cp
}

// NormalizeSets makes the membership sets non-nil and sorted, so that
// snapshots compare and serialize deterministically.
func (p *Post) NormalizeSets() {
	if p.LikedBy == nil {
		p.LikedBy = []string{}
	}
	if p.DislikedBy == nil {
		p.DislikedBy = []string{}
	}
	slices.Sort(p.LikedBy)
	slices.Sort(p.DislikedBy)
}
