package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// AlertRecord is the highest threshold already alerted for an opportunity hash.
type AlertRecord struct {
	MarketID  string          `json:"market_id"`
	Threshold decimal.Decimal `json:"threshold"`
	Edge      decimal.Decimal `json:"edge"`
	AlertedAt time.Time       `json:"alerted_at"`
}

// AlertCache remembers alerted hashes so each threshold level fires once.
type AlertCache interface {
	Get(ctx context.Context, hash string) (*AlertRecord, bool, error)
	Set(ctx context.Context, hash string, record AlertRecord) error
	Close() error
}

type redisAlertCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisAlertCache wraps client. Hashes embed a time bucket, so entries
// only need to outlive it by a margin; ttl defaults to one hour.
func NewRedisAlertCache(client *redis.Client, ttl time.Duration, prefix string) AlertCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if prefix == "" {
		prefix = "arb_alert"
	}
	return &redisAlertCache{client: client, ttl: ttl, prefix: prefix}
}

func (c *redisAlertCache) key(hash string) string {
	return fmt.Sprintf("%s:%s", c.prefix, hash)
}

func (c *redisAlertCache) Get(ctx context.Context, hash string) (*AlertRecord, bool, error) {
	if c == nil || c.client == nil {
		return nil, false, nil
	}
	raw, err := c.client.Get(ctx, c.key(hash)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var record AlertRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, false, err
	}
	return &record, true, nil
}

func (c *redisAlertCache) Set(ctx context.Context, hash string, record AlertRecord) error {
	if c == nil || c.client == nil {
		return nil
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(hash), payload, c.ttl).Err()
}

func (c *redisAlertCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
