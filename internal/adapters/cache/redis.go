package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/domain"
)

// Connect accepts either a redis:// URL or a bare host:port and pings the
// server before returning.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	var client *redis.Client
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, parseErr := redis.ParseURL(redisURL)
		if parseErr != nil {
			return nil, fmt.Errorf("parse redis url: %w", parseErr)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: redisURL})
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

type RedisModelCache struct {
	client *redis.Client
	prefix string
}

func NewRedisModelCache(client *redis.Client) *RedisModelCache {
	return &RedisModelCache{client: client, prefix: "engagement:model:active:"}
}

type cachedVersion struct {
	ModelName   string             `json:"model_name"`
	Version     string             `json:"version"`
	Weights     map[string]float64 `json:"weights"`
	Performance domain.Performance `json:"performance"`
	CreatedAt   time.Time          `json:"created_at"`
}

func (c *RedisModelCache) PutActive(ctx context.Context, version domain.ModelVersion, ttl time.Duration) error {
	raw, err := json.Marshal(cachedVersion{
		ModelName:   version.ModelName,
		Version:     version.Version,
		Weights:     version.Weights.ToMap(),
		Performance: version.Performance,
		CreatedAt:   version.CreatedAt,
	})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+version.ModelName, raw, ttl).Err()
}

// GetActive returns nil, nil on a miss.
func (c *RedisModelCache) GetActive(ctx context.Context, modelName string) (*domain.ModelVersion, error) {
	raw, err := c.client.Get(ctx, c.prefix+modelName).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var cached cachedVersion
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, fmt.Errorf("decode cached model %s: %w", modelName, err)
	}
	weights := domain.WeightVectorFromMap(cached.Weights)
	if err := weights.Validate(); err != nil {
		return nil, fmt.Errorf("cached model %s: %w", modelName, err)
	}
	return &domain.ModelVersion{
		ModelName:   cached.ModelName,
		Version:     cached.Version,
		Weights:     weights,
		Performance: cached.Performance,
		Active:      true,
		CreatedAt:   cached.CreatedAt,
	}, nil
}
