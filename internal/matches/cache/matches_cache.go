package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache guarda o feed de partidas já decodificado no Redis, com TTL.
// O feed muda poucas vezes por dia; o read-through evita bater no object
// storage a cada página carregada.
type Cache struct {
	R   *redis.Client
	TTL time.Duration
}

func New(r *redis.Client, ttl time.Duration) *Cache { return &Cache{R: r, TTL: ttl} }

const feedKey = "matches:feed"

func (c *Cache) GetFeed(ctx context.Context, dst any) (bool, error) {
	b, err := c.R.Get(ctx, feedKey).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, dst)
}

func (c *Cache) SetFeed(ctx context.Context, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, feedKey, b, c.TTL).Err()
}
