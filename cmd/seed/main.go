// Command seed fills the configured store with demo farmers and posts.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"farmfeed/internal/auth"
	"farmfeed/internal/bootstrap"
	"farmfeed/internal/notifications"
	"farmfeed/internal/repository"
	"farmfeed/internal/seed"
	"farmfeed/internal/service"
)

func main() {
	defaults := seed.DefaultOptions()
	numFarmers := flag.Int("farmers", defaults.NumFarmers, "Number of farmers to create")
	numPosts := flag.Int("posts", defaults.NumPosts, "Number of posts to create")
	maxComments := flag.Int("comments", defaults.MaxComments, "Maximum comments per post")
	reactionRate := flag.Float64("reaction-rate", defaults.ReactionRate, "Chance a farmer reacts to a post")
	seedValue := flag.Int64("seed", 0, "Random seed (0 picks one)")
	printTokens := flag.Bool("tokens", false, "Print a bearer token for each seeded farmer")
	flag.Parse()

	rt, err := bootstrap.InitRuntime(bootstrap.Options{ServiceName: "farmfeed-seed", Migrate: true})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	ctx := context.Background()
	defer func() { _ = rt.Close(ctx) }()

	postRepo := repository.NewPostRepository(rt.DB)
	commentRepo := repository.NewCommentRepository(rt.DB)
	notifier := notifications.NewNotifier(rt.Redis)

	seeder := seed.NewSeeder(
		service.NewPostService(postRepo, notifier),
		service.NewCommentService(commentRepo, postRepo, notifier),
		service.NewReactionService(postRepo, notifier),
		seed.Options{
			NumFarmers:   *numFarmers,
			NumPosts:     *numPosts,
			MaxComments:  *maxComments,
			ReactionRate: *reactionRate,
			MediaRate:    defaults.MediaRate,
			Seed:         *seedValue,
		},
	)

	log.Printf("Target: %d farmers, %d posts", *numFarmers, *numPosts)
	res, err := seeder.Run(ctx)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("Created %d posts, %d reactions, %d comments", len(res.Posts), res.Reactions, res.Comments)

	if *printTokens {
		issuer := auth.NewIssuer(rt.Config.JWTSecret, 24*time.Hour)
		for _, f := range res.Farmers {
			tok, err := issuer.Issue(f)
			if err != nil {
				log.Fatalf("Failed to issue token: %v", err)
			}
			log.Printf("%s (%s): %s", f.Name, f.UserID, tok)
		}
	}
}
