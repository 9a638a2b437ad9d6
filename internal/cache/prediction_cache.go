// Package cache keeps an expiring copy of the latest prediction per player in
// Redis. The cache is best-effort: Redis failures are logged and reported as
// a miss, never returned to the caller.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hoopsdata/prediction-service/internal/models"
)

const (
	KeyPrefix  = "prediction:"
	DefaultTTL = time.Hour

	scanBatch = 100
)

var (
	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prediction_cache_lookups_total",
		Help: "Prediction cache lookups by result (hit, miss)",
	}, []string{"result"})

	cacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prediction_cache_errors_total",
		Help: "Redis errors swallowed by the prediction cache",
	}, []string{"op"})
)

// RedisClient is the subset of the Redis client used by the cache.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

type PredictionCache struct {
	client RedisClient
	ttl    time.Duration
	logger *zap.SugaredLogger
}

func New(client RedisClient, ttl time.Duration, logger *zap.Logger) *PredictionCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PredictionCache{client: client, ttl: ttl, logger: logger.Sugar()}
}

// Key returns the cache key for a player. Lookups are case-insensitive.
func Key(playerName string) string {
	return KeyPrefix + strings.ToLower(strings.TrimSpace(playerName))
}

func (c *PredictionCache) Get(ctx context.Context, playerName string) (*models.PredictionRecord, bool) {
	data, err := c.client.Get(ctx, Key(playerName)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			cacheErrors.WithLabelValues("get").Inc()
			c.logger.Warnw("Cache read failed", "player", playerName, "error", err)
		}
		cacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	var rec models.PredictionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		cacheErrors.WithLabelValues("decode").Inc()
		c.logger.Warnw("Discarding undecodable cache entry", "player", playerName, "error", err)
		cacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	cacheLookups.WithLabelValues("hit").Inc()
	return &rec, true
}

func (c *PredictionCache) Set(ctx context.Context, playerName string, rec *models.PredictionRecord) {
	c.SetWithTTL(ctx, playerName, rec, c.ttl)
}

// SetWithTTL overwrites any existing entry and resets its expiry.
func (c *PredictionCache) SetWithTTL(ctx context.Context, playerName string, rec *models.PredictionRecord, ttl time.Duration) {
	data, err := json.Marshal(rec)
	if err != nil {
		c.logger.Errorw("Failed to encode prediction for cache", "player", playerName, "error", err)
		return
	}
	if err := c.client.Set(ctx, Key(playerName), data, ttl).Err(); err != nil {
		cacheErrors.WithLabelValues("set").Inc()
		c.logger.Warnw("Cache write failed", "player", playerName, "error", err)
	}
}

func (c *PredictionCache) Delete(ctx context.Context, playerName string) {
	if err := c.client.Del(ctx, Key(playerName)).Err(); err != nil {
		cacheErrors.WithLabelValues("delete").Inc()
		c.logger.Warnw("Cache delete failed", "player", playerName, "error", err)
	}
}

// InvalidateAll removes every key under the prediction namespace and returns
// how many were deleted. Keys outside the namespace are untouched. The scan
// completes before any delete, since deleting mid-iteration can make the
// cursor skip keys.
func (c *PredictionCache) InvalidateAll(ctx context.Context) int {
	var (
		cursor uint64
		keys   []string
	)
	for {
		page, next, err := c.client.Scan(ctx, cursor, KeyPrefix+"*", scanBatch).Result()
		if err != nil {
			cacheErrors.WithLabelValues("scan").Inc()
			c.logger.Warnw("Cache scan failed", "error", err, "found", len(keys))
			break
		}
		keys = append(keys, page...)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	cleared := 0
	for start := 0; start < len(keys); start += scanBatch {
		end := start + scanBatch
		if end > len(keys) {
			end = len(keys)
		}
		n, err := c.client.Del(ctx, keys[start:end]...).Result()
		if err != nil {
			cacheErrors.WithLabelValues("delete").Inc()
			c.logger.Warnw("Cache batch delete failed", "error", err, "batch", end-start)
			continue
		}
		cleared += int(n)
	}
	c.logger.Infow("Invalidated prediction cache", "cleared", cleared)
	return cleared
}

func (c *PredictionCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
