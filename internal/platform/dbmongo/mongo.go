// Package dbmongo wraps a mongo-driver client, adapted from the teacher's
// common/mmongo/mongo.go.
package dbmongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/barazo-forum/barazo-api/internal/platform/ctxlog"
)

// Connection is a hub for the Mongo client backing BehavioralFlag documents
// and the moderation-action audit log.
type Connection struct {
	DSN      string
	Database string
	Logger   ctxlog.Logger

	client    *mongo.Client
	Connected bool
}

// Connect dials mongo and pings it.
func (c *Connection) Connect(ctx context.Context) error {
	c.logger().Info("connecting to mongodb...")

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(c.DSN))
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}

	c.client = client
	c.Connected = true

	c.logger().Info("connected to mongodb")

	return nil
}

// Database returns the configured database handle, connecting lazily.
func (c *Connection) DB(ctx context.Context) (*mongo.Database, error) {
	if c.client == nil {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return c.client.Database(c.Database), nil
}

func (c *Connection) logger() ctxlog.Logger {
	if c.Logger != nil {
		return c.Logger
	}

	return ctxlog.NoneLogger{}
}
