package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pauldariye/greenhouse-proxy-server/config"
	_ "github.com/pauldariye/greenhouse-proxy-server/docs" // Important for Swagger
	v1 "github.com/pauldariye/greenhouse-proxy-server/internal/delivery/http/v1"
	"github.com/pauldariye/greenhouse-proxy-server/internal/repository/greenhouse"
	"github.com/pauldariye/greenhouse-proxy-server/internal/repository/memory"
	"github.com/pauldariye/greenhouse-proxy-server/internal/usecase"
	"github.com/pauldariye/greenhouse-proxy-server/pkg/cache"
	"github.com/pauldariye/greenhouse-proxy-server/pkg/logger"
	"github.com/pauldariye/greenhouse-proxy-server/pkg/redis"
	"github.com/pauldariye/greenhouse-proxy-server/pkg/reporter"
	"github.com/pauldariye/greenhouse-proxy-server/pkg/security"
	"github.com/pauldariye/greenhouse-proxy-server/pkg/validation"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
)

// @title           Greenhouse Proxy API
// @version         1.0
// @description     Public job listings and application relay for a Greenhouse job board.
// @host            localhost:3000
// @BasePath        /
func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Setup Loggers
	logger.Init(cfg.IsProduction())
	secLogger := security.InitSecurityLogger("greenhouse-proxy", cfg.Environment)
	defer secLogger.Sync()
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	logger.Log.Info("Starting greenhouse proxy", "port", cfg.Port, "env", cfg.Environment)

	// 3. Error Tracking
	rep, err := reporter.New(reporter.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
		Release:     os.Getenv("RELEASE"),
	})
	if err != nil {
		logger.Log.Warn("Sentry init failed, error reporting disabled", "error", err)
	}
	defer rep.Flush(2 * time.Second)

	// 4. Setup Redis (optional)
	var redisClient *goredis.Client
	redisClient, err = redis.Connect(context.Background(), redis.Config{
		URL:      cfg.RedisURL,
		Password: cfg.RedisPassword,
	})
	switch {
	case errors.Is(err, redis.ErrNotConfigured):
		redisClient = nil
	case err != nil:
		logger.Log.Warn("Redis unavailable, rate limiting in memory", "error", err)
		redisClient = nil
	default:
		defer redisClient.Close()
		logger.Log.Info("Redis connected")
	}

	// 5. Setup Repositories
	listingCache := memory.NewListingCache(cache.New(cache.WithTTL(cfg.CacheTTL)))
	boardRepo := greenhouse.NewClient(greenhouse.Config{
		BoardURL: cfg.GHJobsBoard,
		APIKey:   cfg.GHJobsAPIKey,
		Timeout:  cfg.UpstreamTimeout,
		MaxRPS:   cfg.UpstreamMaxRPS,
	}, nil)

	// 6. Setup UseCases
	validate := validation.New()
	listingUC := usecase.NewListingUsecase(boardRepo, listingCache, cfg.PaginationLimit)
	applicationUC := usecase.NewApplicationUsecase(boardRepo, validate, secLogger, true)
	healthUC := usecase.NewHealthUsecase(listingCache, redisClient)

	// 7. Setup Router
	router := v1.NewRouter(v1.RouterDeps{
		ListingUC:      listingUC,
		ApplicationUC:  applicationUC,
		HealthUC:       healthUC,
		Config:         cfg,
		RedisClient:    redisClient,
		SecurityLogger: secLogger,
		Reporter:       rep,
	})

	// 8. Start Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Error("Listen failed", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", "error", err)
	}

	logger.Log.Info("Server exiting")
}
