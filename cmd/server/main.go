package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/aptify/chat-backend/internal/cache"
	"github.com/aptify/chat-backend/internal/handlers"
	"github.com/aptify/chat-backend/internal/middleware"
	"github.com/aptify/chat-backend/internal/repository"
	"github.com/aptify/chat-backend/internal/service"
	"github.com/aptify/chat-backend/internal/storage"
	"github.com/aptify/chat-backend/internal/stream"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName: "Aptify Chat Backend",
		// Attachment uploads up to 25MB + multipart overhead.
		BodyLimit: 32 * 1024 * 1024, // 32MB
	})

	// Middleware
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     os.Getenv("ALLOWED_ORIGINS"),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Aptify-CSRF",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
	}))

	// Initialize database connection
	db, err := repository.InitDB()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Initialize Redis cache
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if parsedDB, err := strconv.Atoi(dbStr); err == nil {
			redisDB = parsedDB
		}
	}

	redisCache := cache.NewRedisCache(redisAddr, redisPassword, redisDB)
	if err := redisCache.Ping(); err != nil {
		log.Printf("WARNING: Redis connection failed: %v. Running without cache.", err)
		redisCache = nil
	} else {
		log.Println("Redis cache connected successfully")
	}

	messageCache := cache.NewMessageCache(redisCache)
	userCache := cache.NewUserCache(redisCache)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Initialize S3/MinIO storage (best-effort; attachments are dropped with
	// a log line when it is missing)
	var s3Store *storage.S3Storage
	if cfg, err := storage.LoadS3ConfigFromEnv(); err != nil {
		log.Printf("WARNING: S3 storage not configured: %v", err)
	} else if st, err := storage.NewS3Storage(cfg); err != nil {
		log.Printf("WARNING: Failed to initialize S3 storage: %v", err)
	} else {
		s3Store = st
		log.Printf("S3 storage initialized successfully (bucket=%s)", cfg.Bucket)
	}

	var attachmentStore *storage.AttachmentStore
	var uploader service.AttachmentUploader
	if s3Store != nil {
		attachmentStore = storage.NewAttachmentStore(s3Store)
		uploader = attachmentStore
	}

	// Initialize services
	authService := service.NewAuthService(userRepo)
	userService := service.NewUserService(userRepo, userCache)
	conversationService := service.NewConversationService(conversationRepo, userRepo)

	// Live message fan-out: in-process always, Redis relay across instances.
	broker := stream.NewBroker(redisCache)
	reader := stream.NewReader(conversationRepo, messageRepo, broker, userService)

	// The hub lives on the websocket handler; the notification service
	// pushes through it when the target user is connected.
	wsHandler := handlers.NewWebSocketHandler(reader, conversationService, userCache)
	notificationService := service.NewNotificationService(notificationRepo, userService, wsHandler.GetHub())
	messageService := service.NewMessageService(messageRepo, conversationRepo, conversationService, uploader, broker, notificationService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, userService)
	conversationHandler := handlers.NewConversationHandler(conversationService, userService, messageCache)
	messageHandler := handlers.NewMessageHandler(messageService, conversationService, userService, messageCache)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	mediaHandler := handlers.NewMediaHandler(attachmentStore, conversationService)

	// Public routes
	api := app.Group("/api", middleware.OriginAllowed())
	auth := api.Group("/auth", limiter.New(limiter.Config{
		Max:        20,
		Expiration: time.Minute,
	}))
	auth.Get("/csrf", authHandler.CSRF)
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/logout", middleware.CSRFRequired(), authHandler.Logout)

	// Protected routes
	protected := api.Group("/", middleware.AuthRequired(), middleware.CSRFRequired())
	protected.Get("/users/me", authHandler.GetCurrentUser)

	protected.Get("/conversations", conversationHandler.List)
	protected.Post("/conversations", conversationHandler.Open)
	protected.Post("/conversations/:id/read", conversationHandler.MarkRead)
	protected.Get("/conversations/:id/messages", messageHandler.GetMessages)
	protected.Post("/messages", messageHandler.SendMessage)

	protected.Get("/notifications", notificationHandler.List)
	protected.Get("/notifications/unread-count", notificationHandler.UnreadCount)
	protected.Post("/notifications/:id/read", notificationHandler.MarkRead)
	protected.Post("/notifications/read-all", notificationHandler.MarkAllRead)
	protected.Post("/notifications", middleware.RequireRole("admin"), notificationHandler.Create)

	protected.Get("/media/attachments/*", mediaHandler.GetAttachment)

	// WebSocket route (websocket upgrade needs special handling)
	app.Use(
		"/ws",
		middleware.OriginAllowed(),
		middleware.AuthRequired(),
		func(c *fiber.Ctx) error {
			// Upgrade to WebSocket
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		},
	)
	app.Get("/ws", websocket.New(wsHandler.HandleWebSocket))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "Aptify chat backend is running",
		})
	})

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s...", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
