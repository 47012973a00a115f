package usecase

import (
	"context"

	"github.com/pauldariye/greenhouse-proxy-server/internal/domain"
	"github.com/pauldariye/greenhouse-proxy-server/pkg/redis"

	goredis "github.com/redis/go-redis/v9"
)

type HealthUsecase interface {
	Check(ctx context.Context) map[string]interface{}
}

type healthUsecase struct {
	cache       domain.ListingCache
	redisClient *goredis.Client
}

// NewHealthUsecase reports cache size and, when configured, Redis reachability.
func NewHealthUsecase(cache domain.ListingCache, redisClient *goredis.Client) HealthUsecase {
	return &healthUsecase{cache: cache, redisClient: redisClient}
}

func (u *healthUsecase) Check(ctx context.Context) map[string]interface{} {
	redisStatus := "disabled"
	if u.redisClient != nil {
		redisStatus = "up"
		if err := redis.HealthCheck(ctx, u.redisClient); err != nil {
			redisStatus = "down"
		}
	}
	return map[string]interface{}{
		"ok":            true,
		"cache_entries": u.cache.Len(),
		"redis":         redisStatus,
	}
}
