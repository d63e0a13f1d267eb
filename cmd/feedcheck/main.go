// Command feedcheck verifies every post's counters against its reaction and
// comment rows. It exits with status 1 when drift remains.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"farmfeed/internal/bootstrap"
	"farmfeed/internal/repository"
)

func main() {
	fix := flag.Bool("fix", false, "Recompute drifted counters from the stored rows")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall time limit")
	flag.Parse()

	rt, err := bootstrap.InitRuntime(bootstrap.Options{ServiceName: "farmfeed-feedcheck", SkipRedis: true})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)

	code := run(ctx, repository.NewAuditor(rt.DB), *fix)

	cancel()
	_ = rt.Close(context.Background())
	os.Exit(code)
}

func run(ctx context.Context, auditor *repository.Auditor, fix bool) int {
	drift, err := auditor.Drift(ctx)
	if err != nil {
		log.Printf("Audit failed: %v", err)
		return 2
	}
	if len(drift) == 0 {
		log.Println("All post counters match their rows")
		return 0
	}

	for _, d := range drift {
		log.Printf("post %s: likes %d/%d dislikes %d/%d comments %d/%d (stored/actual)",
			d.PostID, d.LikeCount, d.Likes, d.DislikeCount, d.Dislikes, d.CommentCount, d.Comments)
	}
	if !fix {
		log.Printf("%d post(s) drifted; rerun with -fix to repair", len(drift))
		return 1
	}

	for _, d := range drift {
		if err := auditor.Repair(ctx, d.PostID); err != nil {
			log.Printf("Repair of post %s failed: %v", d.PostID, err)
			return 2
		}
	}

	remaining, err := auditor.Drift(ctx)
	if err != nil {
		log.Printf("Re-audit failed: %v", err)
		return 2
	}
	if len(remaining) > 0 {
		log.Printf("%d post(s) still drifted after repair", len(remaining))
		return 1
	}
	log.Printf("Repaired %d post(s)", len(drift))
	return 0
}
