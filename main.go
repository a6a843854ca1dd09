package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"septic-booking-server/config"
	"septic-booking-server/database"
	"septic-booking-server/jobs"
	"septic-booking-server/metrics"
	"septic-booking-server/middleware"
	"septic-booking-server/routes"
	"septic-booking-server/services"
	"septic-booking-server/utils"
	ws "septic-booking-server/websocket"
)

func main() {
	// Load environment variables
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootLog := utils.NewLogger("info", true)
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}

	logger := utils.NewLogger(cfg.Log.Level, cfg.Log.Pretty)
	gin.SetMode(cfg.Server.GinMode)

	db, err := database.Initialize(cfg.Database, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize database")
	}
	if cfg.Database.Seed {
		if err := database.Seed(db, cfg.Database.AdminEmail, cfg.Database.AdminPass, logger); err != nil {
			logger.Fatal().Err(err).Msg("failed to seed database")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pingers := map[string]func(context.Context) error{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	var slotCache services.SlotCache
	if cfg.Redis.Address != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		slotCache = services.NewRedisSlotCache(rdb, time.Duration(cfg.Redis.SlotCacheTTLSec)*time.Second,
			logger.With().Str("component", "slot_cache").Logger())
		pingers["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		logger.Info().Str("address", cfg.Redis.Address).Msg("slot cache enabled")
	}

	storage, err := newProofStorage(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize proof storage")
	}

	if cfg.Metrics.Enabled {
		metrics.Register()
	}

	hub := ws.NewHub(logger.With().Str("component", "websocket").Logger())
	go hub.Run(ctx)

	jwtService := services.NewJWTService(db, cfg.JWT, logger.With().Str("component", "auth").Logger())
	tracker := services.NewAvailabilityTracker(db)
	slots := services.NewSlotCalculator(db, slotCache)
	bookings := services.NewBookingService(db, tracker, slots,
		services.NewCancellationPolicy(cfg.Booking.CancellationLimit),
		services.WithNotifier(hub),
		services.WithProofStorage(storage),
		services.WithLogger(logger.With().Str("component", "bookings").Logger()),
	)

	users := services.NewUserService(db, jwtService, logger.With().Str("component", "users").Logger(),
		services.WithSlotCalculator(slots))

	limiter := middleware.NewRateLimiter()
	router := routes.NewRouter(routes.Deps{
		Config:   cfg,
		DB:       db,
		Log:      logger.With().Str("component", "http").Logger(),
		Bookings: bookings,
		Slots:    slots,
		Tracker:  tracker,
		Users:    users,
		JWT:      jwtService,
		Exporter: services.NewBookingExporter(),
		Hub:      hub,
		Limiter:  limiter,
		Pingers:  pingers,
	})

	tokenCleanup := jobs.NewTokenCleanupJob(jwtService, 24*time.Hour, logger.With().Str("component", "jobs").Logger())
	tokenCleanup.Start(ctx)
	defer tokenCleanup.Stop()

	go cleanupLimiter(ctx, limiter)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Server.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func newProofStorage(cfg config.StorageConfig) (services.ProofStorage, error) {
	if cfg.Driver == "cloudinary" {
		return services.NewCloudinaryProofStorage(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
	}
	return services.NewLocalProofStorage(cfg.UploadDir, cfg.PublicBaseURL)
}

func cleanupLimiter(ctx context.Context, limiter *middleware.RateLimiter) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			limiter.Cleanup(time.Hour)
		case <-ctx.Done():
			return
		}
	}
}
