package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"farmfeed/internal/models"
)

// MemoryStore is an in-process implementation of PostRepository and
// CommentRepository. Stored posts are never modified in place: writers build
// a copy under the post's lock and swap it in, so readers always observe a
// committed state.
type MemoryStore struct {
	mu       sync.RWMutex
	posts    map[string]*models.Post
	comments map[string][]*models.Comment
	locks    map[string]*sync.Mutex
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		posts:    make(map[string]*models.Post),
		comments: make(map[string][]*models.Comment),
		locks:    make(map[string]*sync.Mutex),
	}
}

var (
	_ PostRepository    = (*MemoryStore)(nil)
	_ CommentRepository = (*MemoryStore)(nil)
)

func (s *MemoryStore) Create(ctx context.Context, post *models.Post) error {
	if err := ctx.Err(); err != nil {
		return models.NewStorageError(err)
	}
	post.NormalizeSets()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.posts[post.ID]; exists {
		return models.NewStorageError(fmt.Errorf("duplicate post id %q", post.ID))
	}
	s.posts[post.ID] = post.Clone()
	s.locks[post.ID] = &sync.Mutex{}
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (*models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.NewStorageError(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, models.NewNotFoundError("Post", id)
	}
	return p.Clone(), nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*models.Post, error) {
	return s.filter(ctx, func(*models.Post) bool { return true })
}

func (s *MemoryStore) ListByAuthor(ctx context.Context, authorID string) ([]*models.Post, error) {
	return s.filter(ctx, func(p *models.Post) bool { return p.AuthorID == authorID })
}

func (s *MemoryStore) filter(ctx context.Context, keep func(*models.Post) bool) ([]*models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.NewStorageError(err)
	}
	s.mu.RLock()
	out := make([]*models.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if keep(p) {
			out = append(out, p.Clone())
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b *models.Post) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

func (s *MemoryStore) Mutate(ctx context.Context, id string, fn func(*models.Post) error) (*models.Post, error) {
	unlock, err := s.lockPost(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	s.mu.RLock()
	current := s.posts[id]
	s.mu.RUnlock()

	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	if _, err := memberships(next); err != nil {
		return nil, models.NewStorageError(err)
	}

	stored := current.Clone()
	stored.LikedBy, stored.DislikedBy = next.LikedBy, next.DislikedBy
	stored.LikeCount, stored.DislikeCount = next.LikeCount, next.DislikeCount
	stored.NormalizeSets()

	s.mu.Lock()
	s.posts[id] = stored
	s.mu.Unlock()
	return stored.Clone(), nil
}

func (s *MemoryStore) Append(ctx context.Context, comment *models.Comment) (int, error) {
	unlock, err := s.lockPost(ctx, comment.PostID)
	if err != nil {
		return 0, err
	}
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	c := *comment
	s.comments[comment.PostID] = append(s.comments[comment.PostID], &c)
	n := len(s.comments[comment.PostID])

	updated := s.posts[comment.PostID].Clone()
	updated.CommentCount = n
	s.posts[comment.PostID] = updated
	return n, nil
}

func (s *MemoryStore) ListByPost(ctx context.Context, postID string) ([]*models.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.NewStorageError(err)
	}
	s.mu.RLock()
	stored := s.comments[postID]
	out := make([]*models.Comment, len(stored))
	for i, c := range stored {
		cp := *c
		out[i] = &cp
	}
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b *models.Comment) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// lockPost acquires the per-post mutex. Posts are never deleted, so a lock
// found once stays valid.
func (s *MemoryStore) lockPost(ctx context.Context, id string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, models.NewStorageError(err)
	}
	s.mu.RLock()
	l, ok := s.locks[id]
	s.mu.RUnlock()
	if !ok {
		return nil, models.NewNotFoundError("Post", id)
	}
	l.Lock()
	return l.Unlock, nil
}
