package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront-service/internal/models"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
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

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// GetLocation returns the cached geolocation for an IP, if present.
func (c *Client) GetLocation(ctx context.Context, ip string) (*models.Location, bool, error) {
	val, err := c.rdb.Get(ctx, locationKey(ip)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var loc models.Location
	if err := json.Unmarshal([]byte(val), &loc); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached location: %w", err)
	}
	return &loc, true, nil
}

// SetLocation caches a geolocation result for an IP with a TTL.
func (c *Client) SetLocation(ctx context.Context, ip string, loc *models.Location, ttl time.Duration) error {
	data, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("failed to encode location: %w", err)
	}
	return c.rdb.Set(ctx, locationKey(ip), data, ttl).Err()
}

func locationKey(ip string) string {
	return fmt.Sprintf("location:%s", ip)
}
