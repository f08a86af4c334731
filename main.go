package main

import (
	"log"
	"time"

	"github.com/NanoLinuxDevops/WinSphere/config"
	"github.com/NanoLinuxDevops/WinSphere/handlers"
	"github.com/NanoLinuxDevops/WinSphere/jobs"
	"github.com/NanoLinuxDevops/WinSphere/services"
	"github.com/NanoLinuxDevops/WinSphere/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load config
	cfg := config.LoadConfig()

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	// Pick the cache backend: Postgres when configured, local files otherwise
	var store storage.BlobStore
	if cfg.DatabaseURL != "" {
		pgStore, err := storage.NewPostgresBlobStore(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pgStore.Close()
		store = pgStore
	} else {
		fileStore, err := storage.NewFileBlobStore(cfg.CacheDir)
		if err != nil {
			log.Fatalf("Failed to initialize cache directory: %v", err)
		}
		store = fileStore
	}

	// Initialize services
	fetcher := services.NewPaisArchiveFetcher(cfg.Refresh)
	defer fetcher.Close()

	cacheService := services.NewDrawCacheService(store, cfg.Refresh)
	refreshService := services.NewDataRefreshService(cfg.Refresh, fetcher, cacheService)
	predictionService := services.NewPredictionService()

	log.Println("WinSphere draw data services initialized:")
	log.Printf("  - Archive fetcher (rate limit: %v, timeout: %v)",
		cfg.Refresh.RequestRateLimit, cfg.Refresh.FetchTimeout)
	log.Printf("  - Draw cache (timeout: %v, max records: %d, compression: %t)",
		cfg.Refresh.CacheTimeout, cfg.Refresh.MaxCacheSize, cfg.Refresh.CompressionEnabled)
	log.Printf("  - Refresh pipeline (max retries: %d, cached fallback: %t)",
		cfg.Refresh.MaxRetries, cfg.Refresh.FallbackToCachedData)

	// Initialize handlers
	drawHandler := handlers.NewDrawHandler(refreshService)
	cacheHandler := handlers.NewCacheHandler(cacheService)
	predictionHandler := handlers.NewPredictionHandler(predictionService, refreshService)

	// Start the background refresh job
	refreshJob := jobs.NewScheduledRefreshJob(refreshService, cfg.Refresh.CacheTimeout/4)
	refreshJob.Start()

	// Setup Fiber
	app := fiber.New()

	// Middleware
	app.Use(logger.New())
	app.Use(cors.New())

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"state":     refreshService.State(),
			"timestamp": time.Now().Unix(),
		})
	})

	// Routes
	api := app.Group("/api/v1")

	// Draw data routes
	api.Get("/draws", drawHandler.GetDraws)
	api.Post("/draws/refresh", drawHandler.RefreshDraws)
	api.Get("/draws/status", drawHandler.GetRefreshStatus)
	api.Get("/draws/quality", drawHandler.GetQualityReport)

	// Cache routes
	api.Get("/cache/stats", cacheHandler.GetCacheStats)
	api.Get("/cache/verify", cacheHandler.VerifyCache)
	api.Post("/cache/optimize", cacheHandler.OptimizeCache)
	api.Delete("/cache", cacheHandler.ClearCache)

	// Prediction route
	api.Get("/predictions", predictionHandler.GetPrediction)

	// Start server
	log.Printf("Server starting on port %s", cfg.ServerPort)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
