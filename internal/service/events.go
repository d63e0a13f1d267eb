// Package service implements the feed core: posts, reactions, comments and
// the feed reader. Services are storage-agnostic; persistence arrives through
// the repository interfaces.
package service

import (
	"context"

	"farmfeed/internal/auth"
	"farmfeed/internal/models"
	"farmfeed/internal/notifications"
	"farmfeed/internal/observability"
)

// EventPublisher receives a hint after each committed mutation.
type EventPublisher interface {
	PublishFeedEvent(ctx context.Context, ev notifications.FeedEvent) error
}

// publish sends a change hint. Failures are logged and never surface to the
// caller: the mutation has already committed.
func publish(ctx context.Context, pub EventPublisher, eventType, postID, userID string) {
	if pub == nil {
		return
	}
	ev := notifications.FeedEvent{Type: eventType, PostID: postID, UserID: userID}
	if err := pub.PublishFeedEvent(ctx, ev); err != nil {
		observability.Logger.WarnContext(ctx, "failed to publish feed event",
			"type", eventType, "post_id", postID, "error", err)
	}
}

func requirePrincipal(p auth.Principal) error {
	if p.UserID == "" {
		return models.NewUnauthorizedError("Authentication required")
	}
	return nil
}

// authorName falls back to the user id when the identity provider sent no name.
func authorName(p auth.Principal) string {
	if p.Name != "" {
		return p.Name
	}
	return p.UserID
}
