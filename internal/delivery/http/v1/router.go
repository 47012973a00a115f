package v1

import (
	"net/http"
	"time"

	"github.com/pauldariye/greenhouse-proxy-server/config"
	"github.com/pauldariye/greenhouse-proxy-server/internal/delivery/http/middleware"
	"github.com/pauldariye/greenhouse-proxy-server/internal/delivery/http/response"
	"github.com/pauldariye/greenhouse-proxy-server/internal/domain"
	"github.com/pauldariye/greenhouse-proxy-server/internal/usecase"
	"github.com/pauldariye/greenhouse-proxy-server/pkg/apperror"
	"github.com/pauldariye/greenhouse-proxy-server/pkg/logger"
	"github.com/pauldariye/greenhouse-proxy-server/pkg/reporter"
	"github.com/pauldariye/greenhouse-proxy-server/pkg/security"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type RouterDeps struct {
	ListingUC      domain.ListingUsecase
	ApplicationUC  domain.ApplicationUsecase
	HealthUC       usecase.HealthUsecase
	Config         *config.Config
	RedisClient    *goredis.Client          // nil = in-memory rate limiting
	SecurityLogger *security.SecurityLogger // nil = security events not logged
	Reporter       reporter.Reporter        // nil = errors not reported
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.RedirectTrailingSlash = false

	if err := r.SetTrustedProxies(deps.Config.TrustedProxies); err != nil {
		logger.Log.Warn("Invalid TRUSTED_PROXIES, trusting none", "error", err)
		_ = r.SetTrustedProxies(nil)
	}

	rateLimiter := middleware.NewRateLimiter(
		middleware.DefaultRateLimitConfig(
			deps.Config.RateLimitMax,
			time.Duration(deps.Config.RateLimitWindowSeconds)*time.Second,
		),
		deps.RedisClient,
		deps.SecurityLogger,
	)

	// Global Middlewares
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery())
	r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	r.Use(middleware.CORSMiddleware(deps.Config.CORSAllowedOrigins))
	r.Use(middleware.SecurityHeadersMiddleware(deps.Config.IsProduction()))
	r.Use(middleware.NoCacheMiddleware())
	r.Use(middleware.ErrorHandler(deps.Reporter))
	r.Use(rateLimiter.Middleware())

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, http.StatusNotFound, apperror.CodeNotFound, "Route not found")
	})

	// Health Check
	r.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, deps.HealthUC.Check(c.Request.Context()))
	})

	// Swagger
	if !deps.Config.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	jobs := r.Group("/job")
	jobs.Use(middleware.BodyLimit(deps.Config.MaxUploadBytes))
	if deps.Config.CSRFEnabled {
		jobs.Use(middleware.CSRFMiddleware(deps.Config.IsProduction(), deps.SecurityLogger))
	}

	NewListingHandler(&r.RouterGroup, jobs, deps.ListingUC)
	NewApplicationHandler(jobs, deps.ApplicationUC)

	return r
}
