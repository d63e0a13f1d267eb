// Package seed fills a store with demo farmers, posts, reactions and
// comments. Everything goes through the services, so seeded posts satisfy the
// same counter rules as posts built by real traffic. Development and
// testing only.
package seed

import (
	"context"
	"fmt"
	"strings"

	"farmfeed/internal/auth"
	"farmfeed/internal/models"
	"farmfeed/internal/observability"
	"farmfeed/internal/service"

	"github.com/brianvoe/gofakeit/v6"
)

// Options configuration for the seeder
type Options struct {
	NumFarmers int
	NumPosts   int
	// MaxComments bounds the comments added to each post.
	MaxComments int
	// ReactionRate is the chance that a given farmer reacts to a given post.
	ReactionRate float64
	// MediaRate is the chance that a post carries an image reference.
	MediaRate float64
	// Seed makes the output reproducible; 0 picks a random seed.
	Seed int64
}

// DefaultOptions returns the sizes used by cmd/seed.
func DefaultOptions() Options {
	return Options{
		NumFarmers:   12,
		NumPosts:     40,
		MaxComments:  6,
		ReactionRate: 0.35,
		MediaRate:    0.3,
	}
}

// Result summarizes what was created.
type Result struct {
	Farmers   []auth.Principal
	Posts     []*models.Post
	Reactions int
	Comments  int
}

var (
	crops = []string{
		"maize", "rice", "cassava", "sorghum", "millet", "beans", "groundnuts",
		"coffee", "tea", "bananas", "tomatoes", "kale", "sweet potatoes", "cotton",
	}

	topics = []string{
		"Pest alert on my %s",
		"Harvest update: %s",
		"Best planting time for %s?",
		"Irrigation schedule for %s",
		"Soil test results before sowing %s",
		"Market prices for %s this week",
		"Leaf spots on %s, any advice?",
		"Intercropping %s with legumes",
	}
)

// Seeder creates demo data through the services.
type Seeder struct {
	posts     *service.PostService
	comments  *service.CommentService
	reactions *service.ReactionService
	faker     *gofakeit.Faker
	opts      Options
}

// NewSeeder creates a Seeder over the given services.
func NewSeeder(
	posts *service.PostService,
	comments *service.CommentService,
	reactions *service.ReactionService,
	opts Options,
) *Seeder {
	return &Seeder{
		posts:     posts,
		comments:  comments,
		reactions: reactions,
		faker:     gofakeit.New(opts.Seed),
		opts:      opts,
	}
}

// Run seeds farmers, then posts, then reactions and comments on each post.
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	if s.opts.NumFarmers <= 0 {
		return nil, fmt.Errorf("seed: at least one farmer is required")
	}

	res := &Result{Farmers: s.farmers(s.opts.NumFarmers)}

	for range s.opts.NumPosts {
		author := s.pick(res.Farmers)
		post, err := s.posts.CreatePost(ctx, author, s.postInput())
		if err != nil {
			return res, fmt.Errorf("seed post: %w", err)
		}

		n, err := s.react(ctx, post.ID, res.Farmers)
		if err != nil {
			return res, err
		}
		res.Reactions += n

		n, err = s.comment(ctx, post.ID, res.Farmers)
		if err != nil {
			return res, err
		}
		res.Comments += n

		if post, err = s.posts.GetPost(ctx, post.ID); err != nil {
			return res, fmt.Errorf("reload seeded post: %w", err)
		}
		res.Posts = append(res.Posts, post)
	}

	observability.Logger.InfoContext(ctx, "seed completed",
		"farmers", len(res.Farmers),
		"posts", len(res.Posts),
		"reactions", res.Reactions,
		"comments", res.Comments,
	)
	return res, nil
}

func (s *Seeder) farmers(n int) []auth.Principal {
	out := make([]auth.Principal, 0, n)
	for range n {
		out = append(out, auth.Principal{
			UserID: s.faker.UUID(),
			Name:   s.faker.Name(),
		})
	}
	return out
}

func (s *Seeder) postInput() service.CreatePostInput {
	crop := s.faker.RandomString(crops)
	in := service.CreatePostInput{
		Title:       fmt.Sprintf(s.faker.RandomString(topics), crop),
		Description: s.faker.Paragraph(1, 3, 12, "\n"),
	}
	if s.faker.Float64() < s.opts.MediaRate {
		in.Media = models.Media{
			URL:  fmt.Sprintf("https://picsum.photos/seed/%s/800/600", strings.ReplaceAll(crop, " ", "-")+s.faker.DigitN(4)),
			Kind: models.MediaImage,
		}
	}
	return in
}

// react lets each farmer react to the post with probability ReactionRate.
// Some farmers change their mind, which exercises the switch path.
func (s *Seeder) react(ctx context.Context, postID string, farmers []auth.Principal) (int, error) {
	count := 0
	for _, f := range farmers {
		if s.faker.Float64() >= s.opts.ReactionRate {
			continue
		}
		kind := models.ReactionLike
		if s.faker.Float64() < 0.25 {
			kind = models.ReactionDislike
		}
		if _, err := s.reactions.ToggleReaction(ctx, postID, f, kind); err != nil {
			return count, fmt.Errorf("seed reaction: %w", err)
		}
		count++

		if s.faker.Float64() < 0.1 {
			if _, err := s.reactions.ToggleReaction(ctx, postID, f, kind.Opposite()); err != nil {
				return count, fmt.Errorf("seed reaction switch: %w", err)
			}
			count++
		}
	}
	return count, nil
}

func (s *Seeder) comment(ctx context.Context, postID string, farmers []auth.Principal) (int, error) {
	if s.opts.MaxComments <= 0 {
		return 0, nil
	}
	n := s.faker.Number(0, s.opts.MaxComments)
	for i := range n {
		text := s.faker.Sentence(s.faker.Number(4, 14))
		if _, err := s.comments.AddComment(ctx, postID, s.pick(farmers), text); err != nil {
			return i, fmt.Errorf("seed comment: %w", err)
		}
	}
	return n, nil
}

func (s *Seeder) pick(farmers []auth.Principal) auth.Principal {
	return farmers[s.faker.Number(0, len(farmers)-1)]
}
