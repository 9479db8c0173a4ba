package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	domain "github.com/shashank-materialplus/order-api/internal/entity"
	"github.com/shashank-materialplus/order-api/internal/usecase"
)

// RedisStatusCache is a write-through cache of order status, updated on
// every status change and consulted by the cheap status endpoint. The
// entry carries the owner so a hit needs no database round trip.
type RedisStatusCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStatusCache(rdb *redis.Client, ttl time.Duration) *RedisStatusCache {
	return &RedisStatusCache{rdb: rdb, ttl: ttl}
}

func (c *RedisStatusCache) SetStatus(ctx context.Context, orderID, userID string, status domain.Status) error {
	body, err := json.Marshal(usecase.StatusEntry{UserID: userID, Status: status})
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, "order:status:"+orderID, body, c.ttl).Err()
}

func (c *RedisStatusCache) GetStatus(ctx context.Context, orderID string) (usecase.StatusEntry, bool, error) {
	val, err := c.rdb.Get(ctx, "order:status:"+orderID).Bytes()
	if errors.Is(err, redis.Nil) {
		return usecase.StatusEntry{}, false, nil
	}
	if err != nil {
		return usecase.StatusEntry{}, false, err
	}
	var entry usecase.StatusEntry
	if err := json.Unmarshal(val, &entry); err != nil {
		// Stale value from an older format; treat as a miss.
		return usecase.StatusEntry{}, false, nil
	}
	return entry, true, nil
}

var _ usecase.StatusCache = (*RedisStatusCache)(nil)
