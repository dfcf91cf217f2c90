// Package server contains HTTP and WebSocket handlers for the Conduit API.
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	_ "conduit/docs" // swagger docs
	"conduit/internal/config"
	"conduit/internal/featureflags"
	"conduit/internal/middleware"
	"conduit/internal/models"
	"conduit/internal/notifications"
	"conduit/internal/repository"
	"conduit/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const dispatcherQueueSize = 1024

// Per-route write limits, counted in Redis per user or IP.
var (
	registerRule      = middleware.RateRule{Name: "register", Limit: 5, Window: 10 * time.Minute}
	loginRule         = middleware.RateRule{Name: "login", Limit: 10, Window: 5 * time.Minute}
	createArticleRule = middleware.RateRule{Name: "create_article", Limit: 10, Window: time.Minute}
	createCommentRule = middleware.RateRule{Name: "create_comment", Limit: 20, Window: time.Minute}
)

// Server owns the HTTP app, its storage handles and the realtime pipeline.
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	limiter        *middleware.RateLimiter
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	relayDone      <-chan struct{}

	userRepo    repository.UserRepository
	followRepo  repository.FollowRepository
	articleRepo repository.ArticleRepository
	commentRepo repository.CommentRepository
	tagRepo     repository.TagRepository

	notifier     *notifications.Notifier
	hub          *notifications.Hub
	publisher    *notifications.Publisher
	dispatcher   *notifications.Dispatcher
	featureFlags *featureflags.Manager

	userService    *service.UserService
	profileService *service.ProfileService
	articleService *service.ArticleService
	commentService *service.CommentService
	tagService     *service.TagService
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis and applies
// the schema. redisClient may be nil.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if db == nil {
		return nil, errors.New("database is required")
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("conduit-api"),
		limiter:        middleware.NewRateLimiter(redisClient, cfg.Env),
		userRepo:       repository.NewUserRepository(db),
		followRepo:     repository.NewFollowRepository(db),
		articleRepo:    repository.NewArticleRepository(db),
		commentRepo:    repository.NewCommentRepository(db),
		tagRepo:        repository.NewTagRepository(db),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}
	s.initServices()
	s.initRealtime()
	return s, nil
}

func (s *Server) initServices() {
	s.userService = service.NewUserService(s.userRepo, s.featureFlags)
	s.profileService = service.NewProfileService(s.userRepo, s.followRepo)
	s.articleService = service.NewArticleService(s.articleRepo)
	s.commentService = service.NewCommentService(s.commentRepo, s.articleRepo)
	s.tagService = service.NewTagService(s.tagRepo)
}

// initRealtime builds the websocket hub and the event pipeline. The notifier
// is a no-op without Redis, in which case the publisher delivers locally.
func (s *Server) initRealtime() {
	s.notifier = notifications.NewNotifier(s.redis)
	s.hub = notifications.NewHub()
	s.publisher = notifications.NewPublisher(s.hub, s.notifier, s.featureFlags)
	s.dispatcher = notifications.NewDispatcher(dispatcherQueueSize)
}

// FeatureFlags exposes the live flag set so callers can hot-reload it.
func (s *Server) FeatureFlags() *featureflags.Manager {
	return s.featureFlags
}

// Defaults for the global chain.
const (
	devOrigins      = "http://localhost:4100,http://localhost:3000,http://127.0.0.1:4100"
	corsHeaders     = "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version"
	corsMaxAge      = 24 * time.Hour
	perIPLimit      = 100
	perIPLimitReset = time.Minute
)

// SetupMiddleware installs the global chain. Tracing runs before
// ContextMiddleware so log records carry the trace id, and CORS runs before
// the IP limiter so refused requests still carry CORS headers.
func (s *Server) SetupMiddleware(app *fiber.App) {
	chain := []fiber.Handler{
		recover.New(),
		requestid.New(),
		middleware.TracingMiddleware(),
		middleware.ContextMiddleware(),
	}
	if s.promMiddleware != nil {
		chain = append(chain, middleware.MetricsMiddleware(s.promMiddleware))
	}
	chain = append(chain,
		helmet.New(),
		middleware.StructuredLogger(),
		cors.New(s.corsConfig()),
		limiter.New(ipLimiterConfig()),
	)
	for _, h := range chain {
		app.Use(h)
	}
}

func (s *Server) corsConfig() cors.Config {
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = devOrigins
	}
	return cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     corsHeaders,
		AllowCredentials: true,
		MaxAge:           int(corsMaxAge.Seconds()),
	}
}

// ipLimiterConfig caps every client IP in process memory. The Redis rules
// on write routes apply on top of it.
func ipLimiterConfig() limiter.Config {
	return limiter.Config{
		Max:          perIPLimit,
		Expiration:   perIPLimitReset,
		Next:         func(c *fiber.Ctx) bool { return c.Method() == fiber.MethodOptions },
		KeyGenerator: func(c *fiber.Ctx) string { return c.IP() },
		LimitReached: func(c *fiber.Ctx) error {
			return models.RespondWithError(c, fiber.StatusTooManyRequests,
				&models.AppError{Code: "RATE_LIMITED", Message: "too many requests, try again later"})
		},
	}
}

// SetupRoutes mounts the probes, metrics, docs and the /api surface.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Conduit API Metrics Dashboard",
	}))

	api.Get("/swagger/*", swagger.HandlerDefault)

	auth := s.AuthRequired()

	// Users and authentication
	users := api.Group("/users")
	users.Post("/", s.limiter.Limit(registerRule), s.Register)
	users.Post("/login", s.limiter.Limit(loginRule), s.Login)
	users.Post("/logout", auth, s.Logout)

	api.Get("/user", auth, s.GetCurrentUser)
	api.Put("/user", auth, s.UpdateCurrentUser)

	// Profiles
	profiles := api.Group("/profiles")
	profiles.Get("/:username", s.GetProfile)
	profiles.Post("/:username/follow", auth, s.FollowUser)
	profiles.Delete("/:username/follow", auth, s.UnfollowUser)

	// Articles. /feed must be registered before /:slug.
	articles := api.Group("/articles")
	articles.Get("/", s.ListArticles)
	articles.Get("/feed", auth, s.GetFeed)
	articles.Post("/", auth, s.limiter.Limit(createArticleRule), s.CreateArticle)
	articles.Get("/:slug/comments", s.GetComments)
	articles.Post("/:slug/comments", auth, s.limiter.Limit(createCommentRule), s.CreateComment)
	articles.Delete("/:slug/comments/:id", auth, s.DeleteComment)
	articles.Post("/:slug/favorite", auth, s.FavoriteArticle)
	articles.Delete("/:slug/favorite", auth, s.UnfavoriteArticle)
	articles.Get("/:slug", s.GetArticle)
	articles.Put("/:slug", auth, s.UpdateArticle)
	articles.Delete("/:slug", auth, s.DeleteArticle)

	// Tags
	api.Get("/tags", s.GetTags)

	// Feature flags as evaluated for the caller
	api.Get("/feature-flags", auth, s.GetFeatureFlags)

	// Realtime notifications
	api.Get("/ws", auth, s.WebsocketUpgrade, s.WebsocketHandler())
}

// newApp builds a Fiber app with the full middleware chain and routes.
func (s *Server) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Conduit API",
		UnescapePath: true,
		ErrorHandler: s.errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// errorHandler renders errors that escape handlers, including Fiber's own
// 404 and 405 responses, in the standard error envelope.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return models.RespondWithError(c, fe.Code, errors.New(fe.Message))
	}
	return s.respondError(c, err)
}

// Start serves on the configured port until Shutdown. With Redis it also
// relays events published by other instances to local sockets.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.newApp()

	if s.notifier.Enabled() {
		done, err := s.hub.Relay(s.shutdownCtx, s.notifier)
		if err != nil {
			middleware.Logger.Error("notification relay did not start", "error", err)
		} else {
			s.relayDone = done
		}
	}

	middleware.Logger.Info("server starting", "port", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown stops in dependency order: the Redis relay and HTTP listener,
// then queued notifications, then sockets, then storage. It keeps going past
// failures and returns them joined.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	var errs []error
	step := func(what string, err error) {
		if err != nil {
			middleware.Logger.Error("shutdown step failed", "step", what, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", what, err))
		}
	}

	if s.app != nil {
		step("http", s.app.ShutdownWithContext(ctx))
	}
	if err := s.dispatcher.Stop(ctx); err != nil {
		middleware.Logger.Warn("notification queue not drained", "error", err)
	}
	step("hub", s.hub.Shutdown(ctx))
	if s.relayDone != nil {
		select {
		case <-s.relayDone:
		case <-ctx.Done():
			step("relay", ctx.Err())
		}
	}
	if sqlDB, err := s.db.DB(); err == nil {
		step("database", sqlDB.Close())
	}
	if s.redis != nil {
		step("redis", s.redis.Close())
	}

	middleware.Logger.Info("server stopped", "failed_steps", len(errs))
	return errors.Join(errs...)
}
