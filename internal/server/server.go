// Package server contains the HTTP handlers for the feed API.
package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"farmfeed/internal/auth"
	"farmfeed/internal/cache"
	"farmfeed/internal/config"
	"farmfeed/internal/database"
	"farmfeed/internal/featureflags"
	"farmfeed/internal/media"
	"farmfeed/internal/middleware"
	"farmfeed/internal/models"
	"farmfeed/internal/notifications"
	"farmfeed/internal/observability"
	"farmfeed/internal/recommend"
	"farmfeed/internal/repository"
	"farmfeed/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	verifier     *auth.Verifier
	notifier     *notifications.Notifier
	featureFlags *featureflags.Manager
	media        media.Store
	postRepo     repository.PostRepository
	commentRepo  repository.CommentRepository

	postService      *service.PostService
	commentService   *service.CommentService
	reactionService  *service.ReactionService
	feedService      *service.FeedService
	recommendService *recommend.Service
}

// NewServer connects to the configured database and Redis and builds a Server.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	return NewServerWithDeps(cfg, db, cache.InitRedis(cfg.RedisURL))
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// A nil db selects the in-memory store; a nil Redis client disables change
// notifications and keeps recommendation history in process.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	store, err := media.NewDiskStore(cfg.MediaDir, int64(cfg.MediaMaxUploadMB)<<20)
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("farmfeed-api"),
		verifier:       auth.NewVerifier(cfg.JWTSecret),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		media:          store,
	}
	if db != nil {
		s.postRepo = repository.NewPostRepository(db)
		s.commentRepo = repository.NewCommentRepository(db)
	} else {
		mem := repository.NewMemoryStore()
		s.postRepo, s.commentRepo = mem, mem
	}

	timeout := time.Duration(cfg.PredictionTimeoutSeconds) * time.Second
	s.wireServices(recommend.NewClient(cfg.PredictionURL, timeout))
	return s, nil
}

// wireServices builds the service layer over the server's repositories.
func (s *Server) wireServices(predictor recommend.Predictor) {
	s.notifier = notifications.NewNotifier(s.redis)
	s.postService = service.NewPostService(s.postRepo, s.notifier)
	s.commentService = service.NewCommentService(s.commentRepo, s.postRepo, s.notifier)
	s.reactionService = service.NewReactionService(s.postRepo, s.notifier)
	s.feedService = service.NewFeedService(s.postService, s.commentService)
	s.recommendService = recommend.NewService(predictor, recommend.NewHistory(s.redis, s.config.HistoryLimit))
}

// App returns the configured Fiber app, building it on first use.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:      "farmfeed",
		BodyLimit:    (s.config.MediaMaxUploadMB + 1) << 20,
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return models.RespondWithError(c, fe.Code, errors.New(fe.Message))
	}
	observability.Logger.ErrorContext(c.UserContext(), "unhandled error", "path", c.Path(), "error", err)
	return models.RespondWithError(c, fiber.StatusInternalServerError, errors.New("Internal server error"))
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{
		// Media is embedded by clients on other origins.
		CrossOriginResourcePolicy: "cross-origin",
	}))
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:8081,http://localhost:19006"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		MaxAge:       86400,
	}))
}

// SetupRoutes registers the API. Public routes come before the protected
// group so the auth middleware never sees them.
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	api.Get("/health", s.HealthCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/api/metrics")
	}
	app.Static(strings.TrimSuffix(media.URLPrefix, "/"), s.config.MediaDir)

	api.Get("/feed", s.GetFeed)
	api.Get("/feed/state", s.GetFeedState)
	api.Get("/posts/:id", s.GetThread)
	api.Get("/posts/:id/comments", s.GetComments)
	api.Get("/users/:id/posts", s.GetUserPosts)

	protected := api.Group("", middleware.AuthRequired(s.verifier))

	protected.Get("/flags", s.GetFeatureFlags)
	protected.Get("/me/history", s.GetHistory)

	protected.Post("/posts", s.rateLimit("create_post"), s.CreatePost)
	protected.Post("/media", s.rateLimit("upload_media"), s.UploadMedia)
	protected.Post("/posts/:id/reactions", s.rateLimit("toggle_reaction"), s.ToggleReaction)
	protected.Post("/posts/:id/comments", s.rateLimit("create_comment"), s.CreateComment)
	protected.Post("/recommendations", s.rateLimit("recommend"), s.Recommend)
}

func (s *Server) rateLimit(name string) fiber.Handler {
	return middleware.RateLimit(s.redis, s.config.RateLimitPerMinute, time.Minute, name)
}

// HealthCheck reports database and Redis health. Redis is optional, so only
// a failing database makes the service unhealthy.
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := map[string]any{"status": "up", "driver": "memory"}
	if s.db != nil {
		dbStatus = database.Health(ctx, s.db)
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus["status"] != "up" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now().UTC(),
	})
}

// Start subscribes to feed events and serves until Shutdown.
func (s *Server) Start() error {
	s.shutdownCtx, s.shutdownFn = context.WithCancel(context.Background())
	if err := s.startFeedListener(s.shutdownCtx); err != nil {
		observability.Logger.Warn("feed event listener unavailable", "error", err)
	}

	addr := ":" + s.config.Port
	observability.Logger.Info("server listening", "addr", addr, "env", s.config.Env)
	return s.App().Listen(addr)
}

// Shutdown stops the event listener and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}
	return s.App().ShutdownWithContext(ctx)
}

// startFeedListener reloads the server's feed snapshot whenever a mutation is
// announced, including ones committed by other instances.
func (s *Server) startFeedListener(ctx context.Context) error {
	if s.redis == nil {
		return nil
	}
	return s.notifier.Subscribe(ctx, func(ev notifications.FeedEvent) {
		if _, err := s.feedService.RefreshFeed(ctx); err != nil && ctx.Err() == nil {
			observability.Logger.WarnContext(ctx, "feed reload after event failed",
				"event", ev.Type, "post_id", ev.PostID, "error", err)
		}
	})
}
