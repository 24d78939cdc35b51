// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"campusqa/internal/config"
	"campusqa/internal/featureflags"
	"campusqa/internal/middleware"
	"campusqa/internal/models"
	"campusqa/internal/observability"
	"campusqa/internal/repository"
	"campusqa/internal/service"
	"campusqa/internal/tokens"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
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
	tokens         *tokens.Service
	featureFlags   *featureflags.Manager

	userRepo repository.UserRepository
	tagRepo  repository.TagRepository

	authService       *service.AuthService
	questionService   *service.QuestionService
	rankingService    *service.RankingService
	reputationService *service.ReputationService
	userService       *service.UserService
	messageService    *service.MessageService
}

// NewServer wires repositories and services around already-initialized
// dependencies. The bootstrap layer establishes DB/Redis and applies the schema.
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	userRepo := repository.NewUserRepository(db)
	tokenSvc := tokens.NewServiceFromConfig(cfg)
	flags := featureflags.NewManager(cfg.FeatureFlags)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics(observability.ServiceName),
		tokens:         tokenSvc,
		featureFlags:   flags,
		userRepo:       userRepo,
		tagRepo:        repository.NewTagRepository(db),
	}

	s.authService = service.NewAuthService(userRepo, tokenSvc)
	s.questionService = service.NewQuestionService(db)
	s.rankingService = service.NewRankingService(repository.NewRankingRepository(db), repository.NewQuestionRepository(db), flags)
	s.reputationService = service.NewReputationService(db)
	s.userService = service.NewUserService(userRepo)
	s.messageService = service.NewMessageService(repository.NewMessageRepository(db), userRepo)

	return s, nil
}

// App builds the Fiber application with middleware and routes. It is safe to
// call more than once; each call returns a fresh app.
func (s *Server) App() *fiber.App {
	bodyLimit := s.config.BodyLimitKB * 1024
	if bodyLimit <= 0 {
		bodyLimit = 200 * 1024
	}

	app := fiber.New(fiber.Config{
		AppName:      "CampusQA API",
		BodyLimit:    bodyLimit,
		ErrorHandler: models.ErrorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	// Tracing runs before ContextMiddleware so the trace id reaches the log context.
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so throttled responses still carry CORS headers.
	origins := s.config.ClientOrigin
	if origins == "" {
		origins = "http://localhost:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	if s.config.GlobalRateLimitPerMinute > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        s.config.GlobalRateLimitPerMinute,
			Expiration: time.Minute,
			Next: func(c *fiber.Ctx) bool {
				return c.Method() == fiber.MethodOptions
			},
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return &models.AppError{
					Status:  http.StatusTooManyRequests,
					Code:    models.CodeRateLimited,
					Message: "Too many requests, please try again later.",
				}
			},
		}))
	}
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "CampusQA Metrics Dashboard",
	}))

	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(s.redis, 5, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/refresh", middleware.RateLimit(s.redis, 30, 5*time.Minute, "refresh"), s.Refresh)
	auth.Post("/logout", s.Logout)
	auth.Get("/me", s.AuthRequired(), s.Me)

	// Everything below requires a bearer access token.
	protected := api.Group("", s.AuthRequired())

	questions := protected.Group("/questions")
	questions.Get("/", s.ListQuestions)
	questions.Post("/", middleware.RateLimit(s.redis, 10, 10*time.Minute, "ask"), s.AskQuestion)
	// Specific /:id/answers/... routes before the generic /:id route
	questions.Post("/:id/answers", middleware.RateLimit(s.redis, 20, 10*time.Minute, "answer"), s.PostAnswer)
	questions.Post("/:id/answers/:answerId/accept", s.AcceptAnswer)
	questions.Post("/:id/answers/:answerId/like", s.LikeAnswer)
	questions.Get("/:id", s.GetQuestion)

	protected.Get("/contributors", s.GetContributors)
	protected.Get("/leaderboard", s.GetLeaderboard)
	protected.Get("/tags", s.GetPopularTags)
	protected.Get("/features", s.GetFeatureFlags)

	protected.Post("/membership/join", s.JoinCommunity)

	profile := protected.Group("/profile")
	profile.Patch("/me", s.UpdateMyProfile)
	profile.Get("/me/reputation", s.GetMyReputation)

	messages := protected.Group("/messages", s.FeatureRequired(featureflags.Messages))
	messages.Get("/conversations", s.GetConversations)
	messages.Get("/unread-count", s.GetUnreadCount)
	messages.Get("/with/:userId", s.GetThread)
	messages.Post("/send", middleware.RateLimit(s.redis, 30, time.Minute, "send_message"), s.SendMessage)
}

// AuthRequired returns the session middleware bound to the token service.
func (s *Server) AuthRequired() fiber.Handler {
	return middleware.AuthRequired(s.tokens)
}

// FeatureRequired hides a route group behind a feature flag. Disabled
// surfaces answer 404 as if they did not exist.
func (s *Server) FeatureRequired(name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := middleware.UserID(c)
		if !s.featureFlags.Enabled(name, userID) {
			return models.NewNotFoundErrorWithCode(models.CodeNotFound, "Not found")
		}
		return c.Next()
	}
}

// LivenessCheck reports that the process is serving. It touches no dependencies.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"ok": true})
}

// ReadinessCheck pings the database and Redis. Redis is optional: a missing
// client reports "disabled" without failing readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(fiber.Map{
		"ok": status == fiber.StatusOK,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now().UTC(),
	})
}

// Start builds the app and listens on the configured port. It blocks until
// the listener stops.
func (s *Server) Start() error {
	s.app = s.App()
	slog.Info("server starting", slog.String("port", s.config.Port), slog.String("env", s.config.Env))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			slog.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			slog.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			slog.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	slog.Info("server shutdown complete")
	return nil
}

// ReputationService exposes the ledger service for the background jobs that
// share this process.
func (s *Server) ReputationService() *service.ReputationService {
	return s.reputationService
}

// FeatureFlags exposes the flag manager to the jobs scheduler.
func (s *Server) FeatureFlags() *featureflags.Manager {
	return s.featureFlags
}
