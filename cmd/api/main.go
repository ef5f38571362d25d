package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/love-coupon-system/internal/config"
	"github.com/fairyhunter13/love-coupon-system/internal/eligibility"
	"github.com/fairyhunter13/love-coupon-system/internal/handler"
	"github.com/fairyhunter13/love-coupon-system/internal/kvstore"
	"github.com/fairyhunter13/love-coupon-system/internal/repository"
	"github.com/fairyhunter13/love-coupon-system/internal/service"
	"github.com/fairyhunter13/love-coupon-system/internal/validator"
	"github.com/fairyhunter13/love-coupon-system/pkg/database"
)

func main() {
	// Load configuration first
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize zerolog based on configuration
	initLogger(cfg)

	// Create context for startup
	ctx := context.Background()

	// Initialize database pool with retry
	pool, err := database.NewPool(ctx, cfg.DB.DSN(), 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if cfg.DB.AutoMigrate {
		if err := database.EnsureSchema(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("failed to apply schema")
		}
		log.Info().Msg("schema up to date")
	}

	// Keyed store for favorites, celebrations, reminders and pending deletes
	store, storePinger, closeStore := newStore(ctx, cfg.Store)

	engine, err := newEngine(cfg.Engine)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid engine configuration")
	}
	log.Info().
		Int("creation_quota", engine.Gate.Quota).
		Str("day_window", cfg.Engine.DayWindowPolicy).
		Str("timezone", engine.Location().String()).
		Dur("image_visibility", engine.Images.Duration).
		Msg("redemption rules loaded")

	// Initialize Fiber with production-ready configuration
	app := fiber.New(fiber.Config{
		AppName:      "Love Coupon API",
		ReadTimeout:  30 * time.Second,  // Max time to read request
		WriteTimeout: 30 * time.Second,  // Max time to write response
		IdleTimeout:  120 * time.Second, // Max time for keep-alive connections
		BodyLimit:    1 * 1024 * 1024,   // 1MB body limit (explicit, prevents large payloads)
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New()) // Adds X-Request-ID header to all requests
	app.Use(logger.New())

	// Initialize validator
	validate := validator.New()

	// Repositories
	couponRepo := repository.NewCouponRepository(pool)
	redemptionRepo := repository.NewRedemptionRepository(pool)
	profileRepo := repository.NewProfileRepository(pool)
	moodRepo := repository.NewMoodRepository(pool)
	accessLogRepo := repository.NewAccessLogRepository(pool)

	// Services
	deletionService := service.NewDeletionService(store, couponRepo, redemptionRepo, cfg.SoftDelete.Timeout)
	favoriteService := service.NewFavoriteService(store, couponRepo)
	couponService := service.NewCouponService(couponRepo, redemptionRepo, profileRepo, deletionService, favoriteService)
	redemptionService := service.NewRedemptionService(pool, couponRepo, redemptionRepo, profileRepo, engine).
		WithPendingDeletes(deletionService)
	imageService := service.NewImageService(couponRepo, redemptionRepo, accessLogRepo, engine.Images)
	insightsService := service.NewInsightsService(couponRepo, redemptionRepo, profileRepo, store, engine)
	moodService := service.NewMoodService(moodRepo, engine)

	handler.RegisterRoutes(app, handler.Handlers{
		Health:      handler.NewHealthHandler(pool, storePinger),
		Coupons:     handler.NewCouponHandler(couponService, deletionService, favoriteService, validate),
		Redemptions: handler.NewRedemptionHandler(redemptionService, validate),
		Images:      handler.NewImageHandler(imageService),
		Insights:    handler.NewInsightsHandler(insightsService),
		Moods:       handler.NewMoodHandler(moodService, validate),
	})

	// Purge deletions whose undo window has passed
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		service.NewSweeper(deletionService, cfg.SoftDelete.SweepInterval).Run(sweepCtx)
	}()

	// Start server with graceful shutdown
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	log.Info().Int("timeout_seconds", cfg.Server.ShutdownTimeout).Msg("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	// Shutdown server (waits for in-flight requests)
	log.Info().Msg("waiting for in-flight requests to complete...")
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	stopSweeper()
	<-sweeperDone

	closeStore()

	// Close database pool AFTER server shutdown (even if shutdown timed out)
	log.Info().Msg("closing database connections...")
	pool.Close()
	log.Info().Msg("database connections closed")
	log.Info().Msg("server stopped")
}

// newEngine builds the redemption rules from configuration.
func newEngine(cfg config.EngineConfig) (*eligibility.Engine, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	policy, err := eligibility.ParsePolicy(cfg.DayWindowPolicy, loc)
	if err != nil {
		return nil, err
	}
	return eligibility.NewEngine(cfg.CreationQuota, policy, cfg.ImageVisibility()), nil
}

// newStore opens the configured keyed store. The returned pinger is nil for the
// in-memory backend.
func newStore(ctx context.Context, cfg config.StoreConfig) (kvstore.Store, handler.Pinger, func()) {
	if cfg.Backend != config.BackendRedis {
		log.Warn().Msg("using in-memory keyed store; state is lost on restart and not shared between instances")
		return kvstore.NewMemoryStore(), nil, func() {}
	}

	rs, err := kvstore.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("failed to connect to redis")
	}
	log.Info().Str("addr", cfg.RedisAddr).Int("db", cfg.RedisDB).Msg("redis connection established")
	return rs, rs, func() {
		if err := rs.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis connection")
		}
	}
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Log.Pretty {
		// Human-readable output for development
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		// JSON output for production
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
