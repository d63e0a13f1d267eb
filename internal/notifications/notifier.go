// Package notifications publishes feed change hints over Redis pub/sub.
// Readers treat an event as a cue to reload; nothing depends on delivery.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"farmfeed/internal/observability"

	"github.com/redis/go-redis/v9"
)

// FeedChannel is the Redis channel carrying every feed event.
const FeedChannel = "feed:events"

// Event types.
const (
	EventPostCreated     = "post_created"
	EventReactionToggled = "reaction_toggled"
	EventCommentAdded    = "comment_added"
)

// FeedEvent announces a committed mutation of a post.
type FeedEvent struct {
	Type   string    `json:"type"`
	PostID string    `json:"post_id"`
	UserID string    `json:"user_id,omitempty"`
	At     time.Time `json:"at"`
}

// Notifier provides helpers to publish feed events into Redis
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
// A nil client turns every call into a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishFeedEvent sends ev to FeedChannel.
func (n *Notifier) PublishFeedEvent(ctx context.Context, ev FeedEvent) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal feed event: %w", err)
	}
	if err := n.rdb.Publish(ctx, FeedChannel, payload).Err(); err != nil {
		observability.RedisErrors.WithLabelValues("publish").Inc()
		return err
	}
	return nil
}

// Subscribe calls onEvent for each event received on FeedChannel until ctx
// is cancelled. Malformed payloads are logged and skipped.
func (n *Notifier) Subscribe(ctx context.Context, onEvent func(FeedEvent)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, FeedChannel)
	// Wait for the subscription to be confirmed so no event published after
	// Subscribe returns is missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		observability.RedisErrors.WithLabelValues("subscribe").Inc()
		return fmt.Errorf("subscribe %s: %w", FeedChannel, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				ev, err := DecodeFeedEvent(msg.Payload)
				if err != nil {
					observability.Logger.WarnContext(ctx, "dropping malformed feed event", "error", err)
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							observability.Logger.ErrorContext(ctx, "panic in feed subscriber",
								"panic", r, "stack", string(debug.Stack()))
						}
					}()
					onEvent(ev)
				}()
			}
		}
	}()

	return nil
}

// DecodeFeedEvent parses a FeedChannel payload.
func DecodeFeedEvent(payload string) (FeedEvent, error) {
	var ev FeedEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return FeedEvent{}, fmt.Errorf("decode feed event: %w", err)
	}
	if ev.Type == "" || ev.PostID == "" {
		return FeedEvent{}, fmt.Errorf("decode feed event: missing type or post_id")
	}
	return ev, nil
}
