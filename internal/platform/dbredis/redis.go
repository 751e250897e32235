// Package dbredis wraps a go-redis client, adapted from the teacher's
// common/mredis/redis.go.
package dbredis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/barazo-forum/barazo-api/internal/platform/ctxlog"
)

// Connection is a hub for the Redis client used by the session/token
// authority and the account-filter cache.
type Connection struct {
	DSN    string
	Logger ctxlog.Logger

	client    *redis.Client
	Connected bool
}

// Connect parses the DSN and pings the server.
func (c *Connection) Connect(ctx context.Context) error {
	c.logger().Info("connecting to redis...")

	opts, err := redis.ParseURL(c.DSN)
	if err != nil {
		return fmt.Errorf("parse redis dsn: %w", err)
	}

	client := redis.NewClient(opts)

	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	c.client = client
	c.Connected = true

	c.logger().Info("connected to redis")

	return nil
}

// Client returns the underlying *redis.Client, connecting lazily.
func (c *Connection) Client(ctx context.Context) (*redis.Client, error) {
	if c.client == nil {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return c.client, nil
}

func (c *Connection) logger() ctxlog.Logger {
	if c.Logger != nil {
		return c.Logger
	}

	return ctxlog.NoneLogger{}
}
