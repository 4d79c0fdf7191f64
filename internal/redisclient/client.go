package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "order-analytics"

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client and verifies the connection
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func dashboardKey(version int64, filterKey string) string {
	return fmt.Sprintf("%s:dashboard:v%d:%s", keyPrefix, version, filterKey)
}

// GetDashboard returns the cached payload, or ok=false on a miss
func (c *Client) GetDashboard(ctx context.Context, version int64, filterKey string) ([]byte, bool, error) {
	data, err := c.rdb.Get(ctx, dashboardKey(version, filterKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// SetDashboard caches a payload for one dataset version and filter
func (c *Client) SetDashboard(ctx context.Context, version int64, filterKey string, payload []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, dashboardKey(version, filterKey), payload, ttl).Err()
}

// InvalidateDashboards removes every cached payload of a dataset version
func (c *Client) InvalidateDashboards(ctx context.Context, version int64) error {
	pattern := fmt.Sprintf("%s:dashboard:v%d:*", keyPrefix, version)

	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}
