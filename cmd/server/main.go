package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/ahmetcoskunkizilkaya/fixreport/internal/assets"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/config"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/database"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/events"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/locks"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/logging"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/repository"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/routes"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/services"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup()

	cfg := config.Load()

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	usePostgres := cfg.StoreDriver != "memory"
	if usePostgres && cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	ctx := context.Background()

	// Sentry error tracking
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      os.Getenv("APP_ENV"),
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Report store
	var (
		repo         repository.ReportRepository
		authService  *services.AuthService
		pgLogHandler *logging.PGHandler
		ping         func() error
	)
	cleanupDone := make(chan struct{})
	if usePostgres {
		if err := database.Connect(cfg); err != nil {
			slog.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		if err := database.Migrate(database.DB); err != nil {
			slog.Error("migration failed", "error", err)
			os.Exit(1)
		}

		// PostgreSQL log handler (ERROR+ async batch)
		pgLogHandler = logging.NewPGHandler(database.DB)
		slog.SetDefault(slog.New(logging.NewMultiHandler(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
			pgLogHandler,
		)))
		logging.StartCleanup(database.DB, cfg.LogRetentionDays, cleanupDone)

		repo = repository.NewGormReportRepository(database.DB)
		authService = services.NewAuthService(database.DB, cfg)
		ping = database.Ping
	} else {
		slog.Warn("using in-memory report store; data is lost on restart and auth routes are disabled")
		repo = repository.NewMemoryReportRepository()
	}

	// Assets
	var backend assets.Backend
	switch cfg.AssetDriver {
	case "gcs":
		gcs, err := assets.NewGCSBackend(ctx, cfg.GCSBucket, cfg.GCSCredentialsJSON, cfg.AssetBaseURL)
		if err != nil {
			slog.Error("gcs asset backend failed", "bucket", cfg.GCSBucket, "error", err)
			os.Exit(1)
		}
		defer gcs.Close()
		backend = gcs
	default:
		local, err := assets.NewLocalBackend(cfg.AssetDir, cfg.AssetBaseURL)
		if err != nil {
			slog.Error("local asset backend failed", "dir", cfg.AssetDir, "error", err)
			os.Exit(1)
		}
		backend = local
	}
	assetManager := assets.NewManager(backend, assets.Options{
		MaxBytes:     cfg.AssetMaxBytes,
		MaxDimension: cfg.AssetMaxDimension,
	})
	janitor := assets.NewJanitor(assetManager, 256)

	// Events and per-report locks. Redis makes both span instances.
	hub := events.NewHub(0)
	var (
		broadcaster events.Broadcaster = hub
		locker      locks.Locker       = locks.NewKeyedMutex()
		closers     []io.Closer
	)
	if cfg.RedisAddress != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Error("redis connection failed", "address", cfg.RedisAddress, "error", err)
			os.Exit(1)
		}
		relay, err := events.NewRedisBroadcaster(ctx, rdb, cfg.EventsChannel, hub)
		if err != nil {
			slog.Error("redis event relay failed", "error", err)
			os.Exit(1)
		}
		broadcaster = relay
		locker = locks.NewRedisLocker(rdb, "fixreport:lock:report:")
		closers = append(closers, relay, rdb)
		slog.Info("redis enabled for events and locks", "channel", cfg.EventsChannel)
	}

	// Services
	reportService := services.NewReportService(repo, assetManager, janitor, broadcaster, locker, cfg.Buildings)

	// Handlers
	h := routes.Handlers{
		Report: handlers.NewReportHandler(reportService, cfg.AssetMaxBytes),
		Asset:  handlers.NewAssetHandler(assetManager),
		Events: handlers.NewEventsHandler(hub),
		Health: handlers.NewHealthHandler(ping, hub),
	}
	if authService != nil {
		h.Auth = handlers.NewAuthHandler(authService)
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    cfg.BodyLimitMB * 1024 * 1024,
		ErrorHandler: handlers.ErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${locals:requestid}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	// Routes
	routes.Setup(app, cfg, h)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "store", cfg.StoreDriver, "assets", cfg.AssetDriver)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	// Closing the hub ends open event streams so Shutdown does not wait on them.
	hub.Close()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	// Pending asset deletions finish before the process exits.
	janitor.Close()
	for _, c := range closers {
		if err := c.Close(); err != nil {
			slog.Error("close error", "error", err)
		}
	}

	close(cleanupDone)
	if pgLogHandler != nil {
		pgLogHandler.Stop()
	}
	sentry.Flush(2 * time.Second)

	if usePostgres {
		if err := database.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}
