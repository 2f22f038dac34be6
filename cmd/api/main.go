package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/rfp-agent/backend/internal/api/handlers"
	"github.com/rfp-agent/backend/internal/cache/redis"
	"github.com/rfp-agent/backend/internal/ingestion"
	"github.com/rfp-agent/backend/internal/matching"
	"github.com/rfp-agent/backend/internal/metrics"
	"github.com/rfp-agent/backend/internal/middleware/ratelimit"
	"github.com/rfp-agent/backend/internal/middleware/security"
	"github.com/rfp-agent/backend/internal/middleware/validation"
	"github.com/rfp-agent/backend/internal/pipeline"
	"github.com/rfp-agent/backend/internal/pricing"
	"github.com/rfp-agent/backend/internal/remote"
	"github.com/rfp-agent/backend/internal/storage/local"
	"github.com/rfp-agent/backend/internal/storage/sqlite"
	"github.com/rfp-agent/backend/pkg/config"
	appLogger "github.com/rfp-agent/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting RFP Agent API Server")

	metrics.Init()

	products, err := matching.LoadCatalog(cfg.Data.ProductsCSV)
	if err != nil {
		appLogger.Fatal("Failed to load product catalog", zap.Error(err))
	}
	productPrices, err := pricing.LoadPriceTable(cfg.Data.ProductPricingCSV)
	if err != nil {
		appLogger.Fatal("Failed to load product pricing", zap.Error(err))
	}
	testPrices, err := pricing.LoadPriceTable(cfg.Data.TestPricingCSV)
	if err != nil {
		appLogger.Fatal("Failed to load test pricing", zap.Error(err))
	}
	appLogger.Info("Reference tables loaded",
		zap.Int("products", len(products)),
		zap.Int("product_prices", productPrices.Len()),
		zap.Int("test_prices", testPrices.Len()),
	)

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	var store handlers.DocumentStore = sqliteClient
	if cfg.Data.Store == "dir" {
		dirStore, err := local.NewStore(cfg.Data.RFPDir)
		if err != nil {
			appLogger.Fatal("Failed to open RFP directory", zap.Error(err))
		}
		store = dirStore
	}
	appLogger.Info("RFP store ready", zap.String("store", cfg.Data.Store))

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("Redis unavailable, remote fetches will not be cached", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	var fetcher ingestion.Fetcher
	if cfg.Fetch.Enabled {
		var cache remote.Cache
		if redisClient != nil {
			cache = redisClient
		}
		fetcher = remote.NewClient(remote.Config{
			Timeout:      time.Duration(cfg.Fetch.TimeoutSec) * time.Second,
			MaxAttempts:  cfg.Fetch.MaxAttempts,
			MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
			UserAgent:    cfg.Fetch.UserAgent,
			CacheTTL:     time.Duration(cfg.Redis.TTLSec) * time.Second,
		}, cache)
	}

	ingestor := ingestion.NewIngestor(store, fetcher, time.Duration(cfg.Fetch.TimeoutSec)*time.Second)
	matcher := matching.NewMatcher(products)
	estimator := pricing.NewEstimator(productPrices, testPrices)
	orchestrator := pipeline.NewOrchestrator(matcher, estimator, ingestor).WithRecorder(sqliteClient)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.Server.RateLimitPerMinute,
		Logger:               appLogger.GetLogger(),
	})
	defer limiter.Stop()

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		IsDevelopment: cfg.Server.Development,
	}))

	app.Get("/metrics", metrics.MetricsHandler())

	api := app.Group("/api/v1")
	api.Use(limiter.Middleware())
	api.Use(validation.Middleware(validation.Config{
		MaxSources:      cfg.Discovery.MaxSources,
		MaxDocumentSize: cfg.Server.BodyLimit,
		Logger:          appLogger.GetLogger(),
	}))

	rfpHandler := handlers.NewRFPHandler(store, ingestor, orchestrator, sqliteClient)
	rfpHandler.Register(api)

	if redisClient != nil {
		api.Delete("/cache/resources", func(c *fiber.Ctx) error {
			n, err := redisClient.InvalidateResources(c.UserContext())
			if err != nil {
				appLogger.Error("Failed to invalidate resource cache", zap.Error(err))
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "Failed to invalidate cache",
				})
			}
			return c.JSON(fiber.Map{
				"invalidated": n,
			})
		})
	}

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ready",
			"products": matcher.CatalogSize(),
		})
	})

	wsHandler := handlers.NewWebSocketHandler(store, ingestor, orchestrator)
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/run", websocket.New(wsHandler.HandleConnection))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		appLogger.Warn("Shutdown did not complete cleanly", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}
