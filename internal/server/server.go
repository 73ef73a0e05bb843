// Package server contains the HTTP and WebSocket handlers of the StackIt API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	_ "stackit/docs" // swagger docs
	"stackit/internal/bootstrap"
	"stackit/internal/config"
	"stackit/internal/database"
	"stackit/internal/featureflags"
	"stackit/internal/middleware"
	"stackit/internal/models"
	"stackit/internal/notifications"
	"stackit/internal/repository"
	"stackit/internal/service"

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

const (
	// avatarBodyLimit leaves room for multipart framing around the largest accepted image.
	avatarBodyLimit = 12 * 1024 * 1024
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
	tokens         *middleware.TokenManager
	featureFlags   *featureflags.Manager

	userRepo         repository.UserRepository
	notificationRepo repository.NotificationRepository

	notifier   *notifications.Notifier
	hub        *notifications.Hub
	dispatcher *notifications.Dispatcher

	authService         *service.AuthService
	avatarService       *service.AvatarService
	userService         *service.UserService
	questionService     *service.QuestionService
	answerService       *service.AnswerService
	voteService         *service.VoteService
	tagService          *service.TagService
	notificationService *service.NotificationService
}

// NewServer connects to the database and Redis and builds a Server on top of them.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, rdb, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{SeedOfficialTags: true})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, rdb)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; realtime delivery, revocation and caching are then off.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("server requires config and database")
	}

	userRepo := repository.NewUserRepository(db)
	tagRepo := repository.NewTagRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	answerRepo := repository.NewAnswerRepository(db)
	voteRepo := repository.NewVoteRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	s := &Server{
		config:           cfg,
		db:               db,
		redis:            redisClient,
		promMiddleware:   middleware.InitMetrics("stackit-api"),
		tokens:           middleware.NewTokenManager(cfg, redisClient),
		featureFlags:     featureflags.NewManager(cfg.FeatureFlags),
		userRepo:         userRepo,
		notificationRepo: notificationRepo,
	}

	// a typed nil *Notifier must not reach the dispatcher's Publisher interface
	var publisher notifications.Publisher
	if redisClient != nil {
		s.notifier = notifications.NewNotifier(redisClient)
		s.hub = notifications.NewHub()
		publisher = s.notifier
	}
	s.dispatcher = notifications.NewDispatcher(notificationRepo, publisher, s.featureFlags)

	s.authService = service.NewAuthService(userRepo, s.tokens)
	s.avatarService = service.NewAvatarService(userRepo, cfg)
	s.userService = service.NewUserService(userRepo)
	s.questionService = service.NewQuestionService(questionRepo, answerRepo)
	s.answerService = service.NewAnswerService(answerRepo, questionRepo, s.dispatcher)
	s.voteService = service.NewVoteService(voteRepo, questionRepo, answerRepo, s.dispatcher)
	s.tagService = service.NewTagService(tagRepo)
	s.notificationService = service.NewNotificationService(notificationRepo, s.dispatcher, cfg.NotificationRetentionDays)

	return s, nil
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
		// avatars are embedded by the frontend from another origin
		CrossOriginResourcePolicy: "cross-origin",
	}))
	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit so error responses keep their headers
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	window := s.config.RateLimitWindow
	if window <= 0 {
		window = 15 * time.Minute
	}
	limit := s.config.RateLimitMax
	if limit <= 0 {
		limit = 100
	}
	api := app.Group("/api")
	api.Use(middleware.RateLimit(s.redis, limit, window, "global"))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Static(service.AvatarURLPrefix, s.avatarService.Dir(), fiber.Static{
		MaxAge: 86400,
	})

	api := app.Group("/api")
	api.Get("/", s.ReadinessCheck)
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "StackIt API Metrics",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	authRequired := s.AuthRequired()
	optionalAuth := s.OptionalAuth()

	// Auth
	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(s.redis, 5, 15*time.Minute, "register"), s.Register)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 15*time.Minute, "login"), s.Login)
	auth.Post("/forgot-password", middleware.RateLimit(s.redis, 3, 15*time.Minute, "forgot_password"), s.ForgotPassword)
	auth.Post("/reset-password", middleware.RateLimit(s.redis, 5, 15*time.Minute, "reset_password"), s.ResetPassword)
	auth.Get("/me", authRequired, s.Me)
	auth.Put("/profile", authRequired, s.UpdateProfile)
	auth.Post("/avatar", authRequired, s.UploadAvatar)
	auth.Put("/change-password", authRequired, s.ChangePassword)
	auth.Post("/logout", authRequired, s.Logout)
	auth.Post("/refresh", authRequired, s.Refresh)

	// Questions: fixed paths before /:id
	questions := api.Group("/questions")
	questions.Get("/", optionalAuth, s.ListQuestions)
	questions.Get("/search", optionalAuth, s.SearchQuestions)
	questions.Post("/", authRequired, middleware.RateLimit(s.redis, 10, time.Hour, "create_question"), s.CreateQuestion)
	questions.Get("/:questionId/answers", optionalAuth, s.ListAnswers)
	questions.Post("/:questionId/answers", authRequired, middleware.RateLimit(s.redis, 30, time.Hour, "create_answer"), s.CreateAnswer)
	questions.Post("/:id/vote", authRequired, s.RequireCapability(models.CapabilityVote),
		middleware.RateLimit(s.redis, 60, time.Minute, "vote"), s.VoteQuestion)
	questions.Put("/:id/close", authRequired, s.CloseQuestion)
	questions.Get("/:id", optionalAuth, s.GetQuestion)
	questions.Put("/:id", authRequired, s.UpdateQuestion)
	questions.Delete("/:id", authRequired, s.DeleteQuestion)

	// Answers
	answers := api.Group("/answers")
	answers.Get("/question/:questionId", optionalAuth, s.ListAnswers)
	answers.Post("/question/:questionId", authRequired, middleware.RateLimit(s.redis, 30, time.Hour, "create_answer"), s.CreateAnswer)
	answers.Post("/:id/vote", authRequired, s.RequireCapability(models.CapabilityVote),
		middleware.RateLimit(s.redis, 60, time.Minute, "vote"), s.VoteAnswer)
	answers.Put("/:id/accept", authRequired, s.AcceptAnswer)
	answers.Post("/:id/comments", authRequired, s.RequireCapability(models.CapabilityComment), s.AddComment)
	answers.Delete("/:answerId/comments/:commentId", authRequired, s.DeleteComment)
	answers.Get("/:id", optionalAuth, s.GetAnswer)
	answers.Put("/:id", authRequired, s.UpdateAnswer)
	answers.Delete("/:id", authRequired, s.DeleteAnswer)

	// Tags
	tags := api.Group("/tags")
	tags.Get("/", s.ListTags)
	tags.Get("/popular", s.PopularTags)
	tags.Get("/search", s.SearchTags)
	tags.Post("/", authRequired, s.RequireCapability(models.CapabilityCreateTags), s.CreateTag)
	tags.Put("/:id/official", authRequired, s.AdminRequired(), s.SetTagOfficial)
	tags.Get("/:id", s.GetTag)
	tags.Put("/:id", authRequired, s.RequireCapability(models.CapabilityCreateTags), s.UpdateTag)
	tags.Delete("/:id", authRequired, s.RequireCapability(models.CapabilityCreateTags), s.DeleteTag)

	// Users: admin listing and /:id/* before the public /:username
	users := api.Group("/users")
	users.Get("/", authRequired, s.AdminRequired(), s.ListUsers)
	users.Get("/:id/stats", authRequired, s.GetUserStats)
	users.Put("/:id/ban", authRequired, s.AdminRequired(), s.BanUser)
	users.Put("/:id/role", authRequired, s.AdminRequired(), s.SetUserRole)
	users.Delete("/:id", authRequired, s.AdminRequired(), s.DeleteUser)
	users.Get("/:username", s.GetUserProfile)

	// Notifications
	notifs := api.Group("/notifications", authRequired)
	notifs.Get("/", s.ListNotifications)
	notifs.Get("/unread-count", s.GetUnreadCount)
	notifs.Put("/read-all", s.MarkAllNotificationsRead)
	notifs.Put("/:id/read", s.MarkNotificationRead)
	notifs.Put("/:id/unread", s.MarkNotificationUnread)
	notifs.Post("/:id/restore", s.RestoreNotification)
	notifs.Delete("/:id", s.DeleteNotification)
	notifs.Delete("/", s.DeleteAllNotifications)

	// Realtime
	api.Post("/ws/ticket", authRequired, ticketLimiter(), s.IssueWSTicket)
	api.Get("/ws", s.WebSocketUpgradeRequired, authRequired, s.WebsocketHandler())

	// Admin
	admin := api.Group("/admin", authRequired, s.AdminRequired())
	admin.Get("/feature-flags", s.GetFeatureFlags)
	admin.Delete("/notifications/purge", s.PurgeNotifications)
}

// ticketLimiter caps websocket ticket issuance per user with an in-memory window.
func ticketLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        10,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return strconv.FormatUint(uint64(viewerID(c)), 10)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Message: "Too many ticket requests, please try again later.",
			})
		},
	})
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis == nil {
		redisStatus = "unavailable"
	} else if err := s.redis.Ping(ctx).Err(); err != nil {
		redisStatus = "unhealthy"
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"message": "StackIt API",
		"version": "1.0.0",
		"status":  overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// NewApp builds the Fiber app with the envelope error handler, middleware and routes.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "StackIt API",
		BodyLimit: avatarBodyLimit,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Message: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, models.StatusFor(err), err)
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// Start starts background jobs and the HTTP listener. It blocks until the listener stops.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := s.NewApp()

	if s.notifier != nil && s.hub != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start notification hub wiring", slog.String("error", err.Error()))
			}
		}()
	}
	go s.runNotificationPurge(s.shutdownCtx)

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// runNotificationPurge removes old read notifications on every tick while the
// notification_purge flag is on.
func (s *Server) runNotificationPurge(ctx context.Context) {
	interval := s.config.NotificationPurgeInterval
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.featureFlags.Enabled(featureflags.NotificationPurge, 0) {
				continue
			}
			res, err := s.notificationService.Purge(ctx, 0)
			if err != nil {
				middleware.Logger.ErrorContext(ctx, "notification purge failed", slog.String("error", err.Error()))
				continue
			}
			middleware.Logger.InfoContext(ctx, "notification purge finished",
				slog.Int64("deleted", res.Deleted),
				slog.Time("older_than", res.OlderThan))
		}
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down notification hub", slog.String("error", err.Error()))
		}
	}

	if database.DB == s.db {
		database.Close()
	} else if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", err.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
