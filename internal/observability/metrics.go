package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReactionsTotal counts reaction toggles by kind and outcome.
	ReactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farmfeed_reactions_total",
		Help: "Total number of reaction toggles by kind and result",
	}, []string{"kind", "result"})

	// CommentsTotal counts comment appends by outcome.
	CommentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farmfeed_comments_total",
		Help: "Total number of comment appends by result",
	}, []string{"result"})

	// PostsCreatedTotal counts created posts.
	PostsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "farmfeed_posts_created_total",
		Help: "Total number of posts created",
	})

	// FeedRefreshTotal counts feed reads by outcome.
	FeedRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farmfeed_feed_refresh_total",
		Help: "Total number of feed refreshes by result",
	}, []string{"result"})

	// StoreLatency records persistence latency by operation.
	StoreLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "farmfeed_store_latency_seconds",
		Help:    "Store operation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farmfeed_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// PredictionsTotal counts crop prediction calls by outcome.
	PredictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farmfeed_predictions_total",
		Help: "Total number of crop prediction requests by result",
	}, []string{"result"})
)

// TrackStore returns a function that records store latency when called (e.g. defer).
func TrackStore(operation string) func() {
	start := time.Now()
	return func() {
		StoreLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

// Result maps an error onto the "result" label used by the counters above.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
