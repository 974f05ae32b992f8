// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	_ "inkwell/docs" // swagger docs
	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *database.Manager
	redis          *redis.Client
	invalidator    *cache.Invalidator
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	userService    *service.UserService
	postService    *service.PostService
}

// NewServer creates a new server instance with all dependencies. The
// database connection is opened on first use, not here.
func NewServer(cfg *config.Config) (*Server, error) {
	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, database.NewManager(cfg), cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil, in which case views are never cached.
func NewServerWithDeps(cfg *config.Config, db *database.Manager, redisClient *redis.Client) (*Server, error) {
	invalidator, err := cache.NewInvalidator(redisClient, cfg.InvalidationWorkers)
	if err != nil {
		return nil, err
	}

	userRepo := repository.NewUserRepositoryWithConn(db)
	followRepo := repository.NewFollowRepositoryWithConn(db)
	postRepo := repository.NewPostRepositoryWithConn(db)

	middleware.InitMiddleware(cfg)

	return &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		invalidator:    invalidator,
		promMiddleware: middleware.InitMetrics("inkwell-api"),
		userService:    service.NewUserService(userRepo, followRepo, postRepo, invalidator),
		postService: service.NewPostService(postRepo, userRepo, followRepo, invalidator,
			time.Duration(cfg.ViewCacheTTLSeconds)*time.Second),
	}, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Tracing must run before the context middleware so the trace ID reaches logs
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PATCH,DELETE,OPTIONS",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	auth := middleware.IdentityRequired
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api.Get("/swagger/*", swagger.HandlerDefault)

	api.Get("/follow-status", s.FollowStatus)

	// Define specific routes BEFORE generic /:id routes
	users := api.Group("/users")
	users.Post("/", auth, s.CreateUser)
	users.Get("/", auth, s.GetAllUsers)
	users.Get("/me", auth, s.GetMyProfile)
	users.Patch("/me", auth, s.UpdateMyProfile)
	users.Post("/:externalId/follow", auth, s.FollowUser)
	users.Delete("/:externalId/follow", auth, s.UnfollowUser)
	users.Get("/:id/posts", s.GetUserPosts)
	users.Get("/:id", s.GetUserProfile)

	posts := api.Group("/posts")
	posts.Get("/", s.GetPosts)
	posts.Get("/search", s.SearchPosts)
	posts.Post("/", auth, s.CreatePost)
	posts.Post("/:id/like", auth, s.LikePost)
	posts.Delete("/:id/like", auth, s.UnlikePost)
	posts.Post("/:id/comments", auth, s.AddComment)
	posts.Post("/:id/save", auth, s.SavePost)
	posts.Delete("/:id/save", auth, s.UnsavePost)
	posts.Get("/:id", s.GetPost)
	posts.Patch("/:id", auth, s.UpdatePost)
	posts.Delete("/:id", auth, s.DeletePost)
}

// App builds the Fiber application with middleware and routes installed.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:      "Inkwell API",
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
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

// Start starts the server
func (s *Server) Start() error {
	app := s.App()
	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	// Drain pending invalidations before Redis goes away
	if s.invalidator != nil {
		s.invalidator.Close()
	}

	if s.db != nil {
		s.db.Close()
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", err.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
