package questionbank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 10 * time.Minute

// Cache keeps generated banks in Redis so repeated requests skip the generator.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ BankCache = (*Cache)(nil)

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// CacheKey is the Redis key for a normalized request.
func CacheKey(req Request) string {
	return strings.Join([]string{
		"questionbank",
		req.Topic,
		string(req.Difficulty),
		fmt.Sprint(req.Count),
		fmt.Sprint(req.TimeLimitSeconds),
		req.Seed,
	}, ":")
}

func (c *Cache) Get(ctx context.Context, req Request) (*Bank, error) {
	data, err := c.client.Get(ctx, CacheKey(req)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var bank Bank
	if err := json.Unmarshal(data, &bank); err != nil {
		return nil, err
	}
	return &bank, nil
}

func (c *Cache) Set(ctx context.Context, req Request, bank Bank) error {
	data, err := json.Marshal(bank)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, CacheKey(req), data, c.ttl).Err()
}
