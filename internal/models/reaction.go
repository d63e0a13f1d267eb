package models

import (
	"strings"
	"time"
)

// ReactionKind is a user's mark on a post. The zero value is not a valid kind.
type ReactionKind string

const (
	ReactionLike    ReactionKind = "like"
	ReactionDislike ReactionKind = "dislike"
)

// ParseReactionKind converts wire input into a ReactionKind.
func ParseReactionKind(s string) (ReactionKind, error) {
	switch ReactionKind(strings.ToLower(strings.TrimSpace(s))) {
	case ReactionLike:
		return ReactionLike, nil
	case ReactionDislike:
		return ReactionDislike, nil
	}
	return "", NewValidationError("kind must be \"like\" or \"dislike\"")
}

// Valid reports whether k is Like or Dislike.
func (k ReactionKind) Valid() bool {
	return k == ReactionLike || k == ReactionDislike
}

// Opposite returns the mutually exclusive kind.
func (k ReactionKind) Opposite() ReactionKind {
	if k == ReactionLike {
		return ReactionDislike
	}
	return ReactionLike
}

// Reaction is the storage row backing a post's membership sets.
// The composite primary key allows one reaction per user per post.
type Reaction struct {
	PostID    string       `gorm:"primaryKey;size:36"`
	UserID    string       `gorm:"primaryKey;size:128"`
	Kind      ReactionKind `gorm:"size:16;not null"`
	CreatedAt time.Time
}
