package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	t.Parallel()
	n := NewNotifier(nil)
	assert.NoError(t, n.PublishFeedEvent(context.Background(), FeedEvent{Type: EventPostCreated, PostID: "p1"}))
	assert.NoError(t, n.Subscribe(context.Background(), func(FeedEvent) {}))

	var nilNotifier *Notifier
	assert.NoError(t, nilNotifier.PublishFeedEvent(context.Background(), FeedEvent{}))
}

func TestNotifier_PublishAndSubscribe(t *testing.T) {
	n := NewNotifier(newTestRedis(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan FeedEvent, 4)
	require.NoError(t, n.Subscribe(ctx, func(ev FeedEvent) { events <- ev }))

	require.NoError(t, n.PublishFeedEvent(context.Background(), FeedEvent{
		Type: EventReactionToggled, PostID: "p1", UserID: "u2",
	}))

	select {
	case ev := <-events:
		assert.Equal(t, EventReactionToggled, ev.Type)
		assert.Equal(t, "p1", ev.PostID)
		assert.Equal(t, "u2", ev.UserID)
		assert.False(t, ev.At.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("feed event not delivered")
	}
}

func TestNotifier_SubscriberSurvivesPanicAndBadPayload(t *testing.T) {
	rdb := newTestRedis(t)
	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan FeedEvent, 4)
	require.NoError(t, n.Subscribe(ctx, func(ev FeedEvent) {
		if ev.PostID == "boom" {
			panic("handler failure")
		}
		events <- ev
	}))

	require.NoError(t, rdb.Publish(context.Background(), FeedChannel, "not json").Err())
	require.NoError(t, n.PublishFeedEvent(context.Background(), FeedEvent{Type: EventCommentAdded, PostID: "boom"}))
	require.NoError(t, n.PublishFeedEvent(context.Background(), FeedEvent{Type: EventCommentAdded, PostID: "p2"}))

	select {
	case ev := <-events:
		assert.Equal(t, "p2", ev.PostID)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber stopped after panic")
	}
}

func TestDecodeFeedEvent(t *testing.T) {
	t.Parallel()
	ev, err := DecodeFeedEvent(`{"type":"post_created","post_id":"p9"}`)
	require.NoError(t, err)
	assert.Equal(t, FeedEvent{Type: EventPostCreated, PostID: "p9"}, ev)

	_, err = DecodeFeedEvent(`{"type":"post_created"}`)
	assert.Error(t, err)
	_, err = DecodeFeedEvent(`{`)
	assert.Error(t, err)
}
