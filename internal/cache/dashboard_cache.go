package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/municipal-it/helpdesk/internal/config"
)

const keyPrefix = "helpdesk:dashboard:"

// DashboardCache keeps computed dashboard aggregates in Redis for a short TTL.
// A nil or zero-TTL cache misses on every read and ignores writes.
type DashboardCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// Connect dials Redis. An unreachable server is logged, not fatal: reads then
// miss and dashboards are computed from Postgres.
func Connect(cfg config.RedisConfig, logger *zap.Logger) *DashboardCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.Duration("dashboard_ttl", cfg.DashboardTTL()))
	}

	return New(client, cfg.DashboardTTL(), logger)
}

// New wraps an existing client.
func New(client *redis.Client, ttl time.Duration, logger *zap.Logger) *DashboardCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardCache{client: client, ttl: ttl, logger: logger}
}

// Load decodes the entry under key into dest and reports whether it was found.
func (c *DashboardCache) Load(ctx context.Context, key string, dest any) (bool, error) {
	if !c.enabled() {
		return false, nil
	}
	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := unmarshal(data, dest); err != nil {
		// A payload from an older build is treated as a miss.
		c.logger.Debug("discarding undecodable dashboard entry", zap.String("key", key), zap.Error(err))
		return false, nil
	}
	return true, nil
}

// Store saves value under key for the configured TTL.
func (c *DashboardCache) Store(ctx context.Context, key string, value any) error {
	if !c.enabled() {
		return nil
	}
	data, err := marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, keyPrefix+key, data, c.ttl).Err()
}

// Invalidate drops every dashboard entry.
func (c *DashboardCache) Invalidate(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	var keys []string
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// Ping verifies Redis connectivity.
func (c *DashboardCache) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("redis client not configured")
	}
	return c.client.Ping(ctx).Err()
}

// Close closes the client.
func (c *DashboardCache) Close() {
	if c != nil && c.client != nil {
		_ = c.client.Close()
	}
}

func (c *DashboardCache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}
