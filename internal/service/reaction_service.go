package service

import (
	"context"
	"slices"

	"farmfeed/internal/auth"
	"farmfeed/internal/models"
	"farmfeed/internal/notifications"
	"farmfeed/internal/observability"
	"farmfeed/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// reactionSlot selects the membership set and counter a reaction kind governs.
type reactionSlot struct {
	set   func(*models.Post) *[]string
	count func(*models.Post) *int
}

var reactionSlots = map[models.ReactionKind]reactionSlot{
	models.ReactionLike: {
		set:   func(p *models.Post) *[]string { return &p.LikedBy },
		count: func(p *models.Post) *int { return &p.LikeCount },
	},
	models.ReactionDislike: {
		set:   func(p *models.Post) *[]string { return &p.DislikedBy },
		count: func(p *models.Post) *int { return &p.DislikeCount },
	},
}

// applyToggle applies a reaction toggle by userID to p in place.
// Reacting with the held kind removes it; reacting with the other kind
// switches sides in one step.
func applyToggle(p *models.Post, userID string, kind models.ReactionKind) {
	target, other := reactionSlots[kind], reactionSlots[kind.Opposite()]

	if removeMember(target.set(p), userID) {
		decrement(target.count(p))
		return
	}

	*target.set(p) = append(*target.set(p), userID)
	*target.count(p)++
	if removeMember(other.set(p), userID) {
		decrement(other.count(p))
	}
}

func removeMember(set *[]string, userID string) bool {
	i := slices.Index(*set, userID)
	if i < 0 {
		return false
	}
	*set = slices.Delete(*set, i, i+1)
	return true
}

func decrement(n *int) {
	if *n > 0 {
		*n--
	}
}

type ReactionService struct {
	postRepo repository.PostRepository
	events   EventPublisher
}

func NewReactionService(postRepo repository.PostRepository, events EventPublisher) *ReactionService {
	return &ReactionService{
		postRepo: postRepo,
		events:   events,
	}
}

// ToggleReaction likes, dislikes or un-reacts on behalf of user. The whole
// read-modify-write runs under the post's lock; the returned post is the
// committed state. Cancelling ctx does not abandon the write.
func (s *ReactionService) ToggleReaction(
	ctx context.Context, postID string, user auth.Principal, kind models.ReactionKind,
) (post *models.Post, err error) {
	span, ctx := observability.NewSpan(ctx, "ReactionService.ToggleReaction",
		attribute.String("post.id", postID),
		attribute.String("reaction.kind", string(kind)),
	)
	defer func() { span.End(err) }()

	if err := requirePrincipal(user); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, models.NewValidationError("kind must be \"like\" or \"dislike\"")
	}

	// The toggle commits even if the caller goes away mid-write.
	ctx = context.WithoutCancel(ctx)
	post, err = s.postRepo.Mutate(ctx, postID, func(p *models.Post) error {
		applyToggle(p, user.UserID, kind)
		return nil
	})
	observability.ReactionsTotal.WithLabelValues(string(kind), observability.Result(err)).Inc()
	if err != nil {
		return nil, err
	}

	publish(ctx, s.events, notifications.EventReactionToggled, postID, user.UserID)
	return post, nil
}
