package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string // "development" or "production"
	// Greenhouse job board
	GHJobsAPIKey    string
	GHJobsBoard     string
	PaginationLimit int // Upper bound on concurrent per-job detail fetches
	// Upstream HTTP client
	UpstreamTimeout time.Duration
	UpstreamMaxRPS  int
	// Listings cache (0 = never expires)
	CacheTTL time.Duration
	// Error tracking
	SentryDSN string
	// Redis (optional, backs the rate limiter)
	RedisURL      string
	RedisPassword string
	// Rate Limiting Configuration
	RateLimitWindowSeconds int
	RateLimitMax           int
	// Boundary middleware
	CORSAllowedOrigins []string
	TrustedProxies     []string
	CSRFEnabled        bool
	MaxUploadBytes     int64
}

func LoadConfig() (*Config, error) {
	// .env is only present in local development
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "3000"),
		Environment: normalizeEnvironment(getEnv("APP_ENV", getEnv("NODE_ENV", "development"))),
		// Trailing slash would produce "board//123" on detail calls
		GHJobsAPIKey:    getEnv("GH_JOBS_API_KEY", ""),
		GHJobsBoard:     strings.TrimRight(getEnv("GH_JOBS_BOARD", ""), "/"),
		PaginationLimit: getEnvInt("PAGINATION_LIMIT", 50),
		UpstreamTimeout: time.Duration(getEnvInt("UPSTREAM_TIMEOUT_SECONDS", 30)) * time.Second,
		UpstreamMaxRPS:  getEnvInt("UPSTREAM_MAX_RPS", 10),
		CacheTTL:        time.Duration(getEnvInt("CACHE_TTL_SECONDS", 0)) * time.Second,
		SentryDSN:       getEnv("SENTRY_DSN", ""),
		RedisURL:        getEnv("REDIS_URL", getEnv("UPSTASH_REDIS_URL", "")),
		RedisPassword:   getEnv("REDIS_PASSWORD", getEnv("UPSTASH_REDIS_PASSWORD", "")),
		// 100 requests per 15 minutes per client IP
		RateLimitWindowSeconds: getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 900),
		RateLimitMax:           getEnvInt("RATE_LIMIT_MAX", 100),
		CORSAllowedOrigins:     getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		TrustedProxies:         getEnvList("TRUSTED_PROXIES", nil),
		CSRFEnabled:            getEnvBool("CSRF_ENABLED", true),
		MaxUploadBytes:         int64(getEnvInt("MAX_UPLOAD_MB", 10)) << 20,
	}

	if cfg.GHJobsBoard == "" {
		log.Println("WARNING: GH_JOBS_BOARD is missing. Listing requests will fail.")
	}
	if cfg.GHJobsAPIKey == "" {
		log.Println("WARNING: GH_JOBS_API_KEY is missing. Application submissions will be rejected upstream.")
	}
	if cfg.RedisURL == "" {
		log.Println("WARNING: REDIS_URL not configured. Rate limiting will use in-memory fallback.")
	}

	return cfg, nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func normalizeEnvironment(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "release":
		return "production"
	default:
		return "development"
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt returns an integer environment variable or fallback if not set/invalid
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool returns a boolean environment variable or fallback if not set/invalid
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// getEnvList splits a comma separated variable, dropping empty items
func getEnvList(key string, fallback []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
