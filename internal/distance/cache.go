package distance

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tripsched/internal/metrics"
	"tripsched/internal/model"
)

// RedisCache memoizes matrices of the wrapped source. Cache failures never fail a lookup.
type RedisCache struct {
	Next Source
	RDB  *redis.Client
	TTL  time.Duration
	Log  *zap.Logger
}

func NewRedisCache(next Source, rdb *redis.Client, ttl time.Duration, log *zap.Logger) *RedisCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisCache{Next: next, RDB: rdb, TTL: ttl, Log: log}
}

func (c *RedisCache) Name() string { return c.Next.Name() }

func (c *RedisCache) Distances(ctx context.Context, origins, destinations []model.Location) (Matrix, error) {
	key := cacheKey(c.Next.Name(), origins, destinations)
	if raw, err := c.RDB.Get(ctx, key).Bytes(); err == nil {
		var m Matrix
		if json.Unmarshal(raw, &m) == nil && m.Validate(len(origins), len(destinations)) == nil {
			metrics.DistanceRequests.WithLabelValues(c.Name(), "cache_hit").Inc()
			return m, nil
		}
	} else if err != redis.Nil {
		c.Log.Warn("distance cache read failed", zap.Error(err))
	}
	m, err := c.Next.Distances(ctx, origins, destinations)
	if err != nil {
		return m, err
	}
	if data, err := json.Marshal(m); err == nil {
		if err := c.RDB.Set(ctx, key, data, c.TTL).Err(); err != nil {
			c.Log.Warn("distance cache write failed", zap.Error(err))
		}
	}
	return m, nil
}

func cacheKey(source string, origins, destinations []model.Location) string {
	b, _ := json.Marshal([2][]wireStop{toWire(origins), toWire(destinations)})
	sum := sha256.Sum256(b)
	return "distmx:" + source + ":" + hex.EncodeToString(sum[:16])
}
