package redis

import (
	"context"
	"time"

	"github.com/Laincy/reconnected-se/pkg/errors"
	"github.com/Laincy/reconnected-se/pkg/logger"
	"github.com/redis/go-redis/v9"
)

type client struct {
	logger  logger.Interface
	config  *Config
	cmdable redis.Cmdable
	closeFn func() error
}

// NewClient creates a new Redis client with the provided logger and configuration.
func NewClient(logger logger.Interface, config *Config) Client {
	return &client{
		logger: logger,
		config: config,
	}
}

func (c *client) Connect(ctx context.Context) error {
	if c.config == nil {
		return errors.NewErrorDetails("Redis config is nil", string(errors.RedisConfigError), "connect")
	}
	if len(c.config.Addrs) == 0 {
		return errors.NewErrorDetails("Redis addresses are empty", string(errors.RedisConfigError), "connect")
	}
	if c.config.Mode != Standalone && c.config.Mode != Cluster {
		return errors.NewErrorDetails("Invalid Redis mode", string(errors.RedisConfigError), "connect")
	}

	switch c.config.Mode {
	case Cluster:
		cc := redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:           c.config.Addrs,
			Password:        c.config.Password,
			DialTimeout:     c.config.ConnectTimeout,
			PoolSize:        c.config.PoolSize,
			ConnMaxLifetime: c.config.ConnMaxLifetime,
			ConnMaxIdleTime: c.config.ConnMaxIdleTime,
			MaxRetries:      c.config.MaxRetries,
		})
		c.cmdable = cc
		c.closeFn = cc.Close
	default:
		sc := redis.NewClient(&redis.Options{
			Addr:            c.config.Addrs[0],
			Password:        c.config.Password,
			DB:              c.config.DB,
			DialTimeout:     c.config.ConnectTimeout,
			PoolSize:        c.config.PoolSize,
			ConnMaxLifetime: c.config.ConnMaxLifetime,
			ConnMaxIdleTime: c.config.ConnMaxIdleTime,
			MaxRetries:      c.config.MaxRetries,
		})
		c.cmdable = sc
		c.closeFn = sc.Close
	}

	if err := c.cmdable.Ping(ctx).Err(); err != nil {
		return errors.NewErrorDetails(err.Error(), string(errors.RedisConnectionError), "connect")
	}

	c.logger.Info("Connected to Redis", logger.Field{Key: "addrs", Value: c.config.Addrs})
	return nil
}

func (c *client) Close() error {
	if c.closeFn == nil {
		return nil
	}
	return c.closeFn()
}

func (c *client) Ping(ctx context.Context) error {
	return c.cmdable.Ping(ctx).Err()
}

func (c *client) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.cmdable.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.NewErrorDetails(err.Error(), string(errors.RedisGetError), key)
	}
	return val, true, nil
}

func (c *client) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := c.cmdable.Set(ctx, key, value, ttl).Err(); err != nil {
		return errors.NewErrorDetails(err.Error(), string(errors.RedisSetError), key)
	}
	return nil
}

func (c *client) Del(ctx context.Context, keys ...string) error {
	if err := c.cmdable.Del(ctx, keys...).Err(); err != nil {
		return errors.NewErrorDetails(err.Error(), string(errors.RedisDelError), "del")
	}
	return nil
}
