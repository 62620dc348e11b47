package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/stillmind/api/internal/client"
	"github.com/stillmind/api/internal/config"
	"github.com/stillmind/api/internal/handler"
	"github.com/stillmind/api/internal/middleware"
	"github.com/stillmind/api/internal/service"
	"github.com/stillmind/api/internal/store"
	ws "github.com/stillmind/api/internal/websocket"
	"github.com/stillmind/api/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Open the job store
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	// Initialize Redis client (rate limiting only)
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize external clients
	ttsRegistry := client.NewTTSRegistry(&cfg.TTS)
	catalogClient := client.NewCatalogClient(&cfg.Catalog)
	encoderClient := client.NewEncoderClient(&cfg.Encoder)

	// Initialize R2 client (optional - continues if not configured)
	var storageClient client.StorageClient
	if cfg.R2.AccessKeyID != "" && cfg.R2.SecretAccessKey != "" {
		r2Client, err := client.NewR2Client(&cfg.R2)
		if err != nil {
			log.Printf("Warning: R2 client not initialized: %v", err)
		} else {
			storageClient = r2Client
		}
	} else {
		log.Println("Info: R2 storage not configured, using mock storage")
	}

	// Initialize services
	renderService := service.NewRenderService(st)
	editService := service.NewEditService(st, cfg.Edits.FreeLimit, cfg.Edits.FeeCents)

	// Initialize render worker and dispatcher
	renderWorker := worker.NewRenderWorker(
		st,
		ttsRegistry,
		catalogClient,
		encoderClient,
		storageClient,
		hub,
		cfg.Audio.SampleRate,
		cfg.Audio.TargetRMSDb,
		cfg.Audio.LimiterCeilingDb,
	)
	dispatcher := worker.NewDispatcher(
		st,
		renderWorker,
		hub,
		cfg.Worker.BatchSize,
		time.Duration(cfg.Worker.ClaimDelayMs)*time.Millisecond,
		time.Duration(cfg.Worker.LeaseTimeoutMin)*time.Minute,
	)

	// Initialize handlers
	trackHandler := handler.NewTrackHandler(renderService, validate)
	jobHandler := handler.NewJobHandler(renderService)
	editHandler := handler.NewEditHandler(editService, validate)
	dispatchHandler := handler.NewDispatchHandler(dispatcher, cfg.Worker.Secret)

	// Initialize middleware
	var apiAuthMiddleware fiber.Handler
	if cfg.Gateway.Enabled {
		// Behind Traefik: auth is handled by ForwardAuth, read X-User-* headers
		log.Println("Info: Gateway mode enabled — using header-based auth")
		apiAuthMiddleware = middleware.GatewayAuthMiddleware()
	} else {
		apiAuthMiddleware = middleware.NewAuthMiddleware(cfg.JWT.Secret).Authenticate()
	}
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    10 * 1024 * 1024, // 10MB
	})

	// Global middleware
	app.Use(recover.New())
	isDebug := strings.EqualFold(cfg.Server.LogLevel, "debug")
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if isDebug {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body} ${reqHeaders}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		storeOK := st.Ping(c.Context()) == nil
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"store":   storeOK,
				"tts":     ttsRegistry.AnyConfigured(),
				"catalog": catalogClient.IsConfigured(),
				"encoder": encoderClient.IsConfigured(),
				"storage": storageClient != nil,
			},
		})
	})

	// API routes
	api := app.Group("/api", apiAuthMiddleware)

	// Track routes
	tracks := api.Group("/tracks")
	tracks.Post("/", rateLimiter.RenderLimit(cfg.RateLimit.RenderPerHour), trackHandler.Create)
	tracks.Get("/:trackId", trackHandler.Get)
	tracks.Post("/:trackId/edit", rateLimiter.EditLimit(cfg.RateLimit.EditPerHour), editHandler.Edit)
	tracks.Get("/:trackId/edit/eligibility", editHandler.Eligibility)

	// Job routes
	jobs := api.Group("/jobs")
	jobs.Get("/:jobId", jobHandler.Status)
	jobs.Get("/:jobId/result", jobHandler.Result)

	// Worker trigger (shared-secret auth, not user-facing)
	app.Post("/internal/worker/dispatch", dispatchHandler.Dispatch)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		hub.HandleConnection(c, jobID)
	}))

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
