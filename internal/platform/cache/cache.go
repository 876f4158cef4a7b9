// Package cache provides the Redis client that carries the progress event
// stream.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps a Redis client.
type Cache struct {
	Client *redis.Client
}

// ParseURL validates a Redis connection URL.
func ParseURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, fmt.Errorf("cache URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid cache URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	return opts, nil
}

// New creates a client and pings the server.
func New(ctx context.Context, url string) (*Cache, error) {
	opts, err := ParseURL(url)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging cache: %w", err)
	}

	return &Cache{Client: client}, nil
}

// AppendStream adds one entry to stream and returns its Redis ID. When
// maxLen is positive the stream is trimmed to roughly that many entries.
func (c *Cache) AppendStream(ctx context.Context, stream string, maxLen int64, values map[string]any) (string, error) {
	if c == nil || c.Client == nil {
		return "", fmt.Errorf("cache client is nil")
	}
	if stream == "" {
		return "", fmt.Errorf("stream name is empty")
	}
	if len(values) == 0 {
		return "", fmt.Errorf("stream entry has no fields")
	}

	args := &redis.XAddArgs{Stream: stream, Values: values}
	if maxLen > 0 {
		args.MaxLen = maxLen
		args.Approx = true
	}
	id, err := c.Client.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("appending to stream %s: %w", stream, err)
	}
	return id, nil
}

// Close shuts down the client.
func (c *Cache) Close() error {
	return c.Client.Close()
}

// HealthCheck verifies the connection is alive.
func (c *Cache) HealthCheck(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}
