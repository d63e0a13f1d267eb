// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"slices"
	"time"

	"farmfeed/internal/models"
	"farmfeed/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	// List returns every post, newest first.
	List(ctx context.Context) ([]*models.Post, error)
	ListByAuthor(ctx context.Context, authorID string) ([]*models.Post, error)
	// Mutate runs fn against the post while holding its per-post lock and
	// persists the resulting reaction sets and counts in the same transaction.
	// Other fields are not written back. If fn fails nothing is committed.
	Mutate(ctx context.Context, id string, fn func(*models.Post) error) (*models.Post, error)
}

var errConflictingReaction = errors.New("user holds both a like and a dislike")

// postRepository implements PostRepository
type postRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, log: observability.NewRepoLogger("posts")}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackStore("post_create")()

	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return translateError(err, "Post", post.ID)
	}
	post.NormalizeSets()
	r.log.LogCreate(ctx, map[string]any{"post_id": post.ID, "author_id": post.AuthorID})
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	defer observability.TrackStore("post_get")()

	var post models.Post
	db := r.db.WithContext(ctx)
	if err := db.First(&post, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "Post", id)
	}
	if err := loadReactions(db, []*models.Post{&post}); err != nil {
		return nil, translateError(err, "Post", id)
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context) ([]*models.Post, error) {
	defer observability.TrackStore("post_list")()
	return r.find(r.db.WithContext(ctx))
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID string) ([]*models.Post, error) {
	defer observability.TrackStore("post_list_by_author")()
	return r.find(r.db.WithContext(ctx).Where("author_id = ?", authorID))
}

func (r *postRepository) find(db *gorm.DB) ([]*models.Post, error) {
	posts := make([]*models.Post, 0)
	if err := db.Order("created_at DESC").Order("id DESC").Find(&posts).Error; err != nil {
		return nil, translateError(err, "Post", "")
	}
	if err := loadReactions(db.Session(&gorm.Session{NewDB: true}), posts); err != nil {
		return nil, translateError(err, "Post", "")
	}
	return posts, nil
}

func (r *postRepository) Mutate(ctx context.Context, id string, fn func(*models.Post) error) (*models.Post, error) {
	defer observability.TrackStore("post_mutate")()

	var out *models.Post
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&post, "id = ?", id).Error; err != nil {
			return err
		}
		if err := loadReactions(tx, []*models.Post{&post}); err != nil {
			return err
		}

		before := post.Clone()
		if err := fn(&post); err != nil {
			return err
		}
		if err := persistReactions(tx, before, &post); err != nil {
			return err
		}
		if err := tx.Model(&models.Post{}).Where("id = ?", id).Updates(map[string]any{
			"like_count":    post.LikeCount,
			"dislike_count": post.DislikeCount,
		}).Error; err != nil {
			return err
		}

		post.NormalizeSets()
		out = &post
		return nil
	})
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.LogError(ctx, err, "mutate")
		}
		return nil, translateError(err, "Post", id)
	}

	r.log.LogUpdate(ctx, map[string]any{"post_id": id, "likes": out.LikeCount, "dislikes": out.DislikeCount})
	return out, nil
}

// loadReactions fills LikedBy/DislikedBy for posts from the reactions table.
func loadReactions(db *gorm.DB, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]string, len(posts))
	byID := make(map[string]*models.Post, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
		byID[p.ID] = p
		p.LikedBy, p.DislikedBy = nil, nil
	}

	var reactions []models.Reaction
	if err := db.Where("post_id IN ?", ids).Order("user_id").Find(&reactions).Error; err != nil {
		return err
	}
	for _, re := range reactions {
		p := byID[re.PostID]
		switch re.Kind {
		case models.ReactionLike:
			p.LikedBy = append(p.LikedBy, re.UserID)
		case models.ReactionDislike:
			p.DislikedBy = append(p.DislikedBy, re.UserID)
		}
	}
	for _, p := range posts {
		p.NormalizeSets()
	}
	return nil
}

// memberships indexes a post's sets by user, rejecting a user found in both.
func memberships(p *models.Post) (map[string]models.ReactionKind, error) {
	out := make(map[string]models.ReactionKind, len(p.LikedBy)+len(p.DislikedBy))
	for _, u := range p.LikedBy {
		out[u] = models.ReactionLike
	}
	for _, u := range p.DislikedBy {
		if _, dup := out[u]; dup {
			return nil, errConflictingReaction
		}
		out[u] = models.ReactionDislike
	}
	return out, nil
}

// persistReactions writes the row-level difference between before and after.
func persistReactions(tx *gorm.DB, before, after *models.Post) error {
	prev, err := memberships(before)
	if err != nil {
		return err
	}
	next, err := memberships(after)
	if err != nil {
		return err
	}

	users := make([]string, 0, len(prev)+len(next))
	for u := range prev {
		users = append(users, u)
	}
	for u := range next {
		if _, ok := prev[u]; !ok {
			users = append(users, u)
		}
	}
	slices.Sort(users)

	now := time.Now().UTC()
	for _, u := range users {
		was, had := prev[u]
		is, has := next[u]
		switch {
		case had && !has:
			err = tx.Where("post_id = ? AND user_id = ?", after.ID, u).Delete(&models.Reaction{}).Error
		case !had && has:
			err = tx.Create(&models.Reaction{PostID: after.ID, UserID: u, Kind: is, CreatedAt: now}).Error
		case was != is:
			err = tx.Model(&models.Reaction{}).
				Where("post_id = ? AND user_id = ?", after.ID, u).
				Update("kind", is).Error
		}
		if err != nil {
			return err
		}
	}
	return nil
}
