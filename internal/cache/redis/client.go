package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rfp-agent/backend/internal/remote"
	"github.com/rfp-agent/backend/pkg/logger"
)

type Client struct {
	client *redis.Client
}

func NewClient(host string, port int, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.Ping(ctx).Result()
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// SetResource stores a fetched resource under key. A zero ttl keeps it
// until invalidated.
func (c *Client) SetResource(ctx context.Context, key string, res *remote.Resource, ttl time.Duration) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal resource: %w", err)
	}

	err = c.client.Set(ctx, key, data, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set resource cache: %w", err)
	}

	logger.Debug("Resource cached", zap.String("key", key), zap.Duration("ttl", ttl))
	return nil
}

func (c *Client) GetResource(ctx context.Context, key string) (*remote.Resource, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get resource cache: %w", err)
	}

	var res remote.Resource
	err = json.Unmarshal(data, &res)
	if err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal resource: %w", err)
	}

	logger.Debug("Resource cache hit", zap.String("key", key))
	return &res, true, nil
}

// InvalidateResources drops every cached resource and reports how many keys
// were removed.
func (c *Client) InvalidateResources(ctx context.Context) (int, error) {
	removed := 0
	iter := c.client.Scan(ctx, 0, remote.CacheKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		err := c.client.Del(ctx, iter.Val()).Err()
		if err != nil {
			logger.Warn("Failed to delete cache key", zap.String("key", iter.Val()), zap.Error(err))
			continue
		}
		removed++
	}

	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("failed to iterate cache keys: %w", err)
	}

	logger.Info("Resource cache invalidated", zap.Int("removed", removed))
	return removed, nil
}
