package service

import (
	"context"
	"sync"
	"time"

	"farmfeed/internal/models"
	"farmfeed/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// FeedState is the reader's position in idle → loading → loaded | error.
type FeedState int

const (
	FeedIdle FeedState = iota
	FeedLoading
	FeedLoaded
	FeedError
)

func (s FeedState) String() string {
	switch s {
	case FeedLoading:
		return "loading"
	case FeedLoaded:
		return "loaded"
	case FeedError:
		return "error"
	default:
		return "idle"
	}
}

// Snapshot is the feed as read from the store at LoadedAt.
type Snapshot struct {
	Posts    []*models.Post `json:"posts"`
	LoadedAt time.Time      `json:"loaded_at"`
}

func (s Snapshot) clone() Snapshot {
	posts := make([]*models.Post, len(s.Posts))
	for i, p := range s.Posts {
		posts[i] = p.Clone()
	}
	return Snapshot{Posts: posts, LoadedAt: s.LoadedAt}
}

// Thread is a post together with its comments.
type Thread struct {
	Post     *models.Post      `json:"post"`
	Comments []*models.Comment `json:"comments"`
}

// FeedService is a feed reader. It never patches its snapshot locally: every
// refresh reloads the whole feed from the store.
type FeedService struct {
	posts    *PostService
	comments *CommentService
	now      func() time.Time

	mu       sync.Mutex
	state    FeedState
	settled  FeedState
	seq      uint64
	snapshot Snapshot
	lastErr  error
}

func NewFeedService(posts *PostService, comments *CommentService) *FeedService {
	return &FeedService{
		posts:    posts,
		comments: comments,
		now:      func() time.Time { return time.Now().UTC() },
		snapshot: Snapshot{Posts: []*models.Post{}},
	}
}

// RefreshFeed reloads the feed. If ctx is cancelled while loading, the result
// is discarded, the context error is returned and the previous snapshot stays.
// When reads overlap, only the most recently started one updates the state.
func (f *FeedService) RefreshFeed(ctx context.Context) (snap Snapshot, err error) {
	span, ctx := observability.NewSpan(ctx, "FeedService.RefreshFeed")
	defer func() { span.End(err) }()

	f.mu.Lock()
	f.seq++
	seq := f.seq
	f.state = FeedLoading
	f.mu.Unlock()

	posts, err := f.posts.ListPosts(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	latest := seq == f.seq

	if ctxErr := ctx.Err(); ctxErr != nil {
		if latest {
			f.state = f.settled
		}
		observability.FeedRefreshTotal.WithLabelValues("cancelled").Inc()
		return Snapshot{}, ctxErr
	}
	observability.FeedRefreshTotal.WithLabelValues(observability.Result(err)).Inc()
	if err != nil {
		if latest {
			f.state, f.settled, f.lastErr = FeedError, FeedError, err
		}
		return Snapshot{}, err
	}

	snap = Snapshot{Posts: posts, LoadedAt: f.now()}
	if latest {
		f.snapshot = snap.clone()
		f.state, f.settled, f.lastErr = FeedLoaded, FeedLoaded, nil
	}
	span.SetAttributes(attribute.Int("feed.posts", len(posts)))
	return snap, nil
}

// State reports the reader state and the error of the last failed read.
func (f *FeedService) State() (FeedState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, f.lastErr
}

// Snapshot returns a copy of the last successfully loaded feed.
func (f *FeedService) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot.clone()
}

// Thread loads a post and its comments for a detail view. Comments are read
// after the post and are append-only, so the post's CommentCount is taken
// from the listing to keep the two in agreement.
func (f *FeedService) Thread(ctx context.Context, postID string) (thread *Thread, err error) {
	span, ctx := observability.NewSpan(ctx, "FeedService.Thread",
		attribute.String("post.id", postID))
	defer func() { span.End(err) }()

	post, err := f.posts.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	comments, err := f.comments.ListComments(ctx, postID)
	if err != nil {
		return nil, err
	}
	post.CommentCount = len(comments)
	return &Thread{Post: post, Comments: comments}, nil
}
