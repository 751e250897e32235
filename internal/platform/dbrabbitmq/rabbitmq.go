// Package dbrabbitmq wraps an AMQP connection/channel pair, adapted from the
// teacher's common/mrabbitmq/rabbitmq.go but upgraded from the teacher's
// legacy streadway/amqp to github.com/rabbitmq/amqp091-go, the maintained
// fork the root go.mod actually requires.
package dbrabbitmq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/barazo-forum/barazo-api/internal/platform/ctxlog"
)

const accountFilterInvalidationExchange = "account_filter.invalidation"

// Connection is a hub for the AMQP connection used to fan out
// account-filter cache-invalidation events across service instances.
type Connection struct {
	DSN    string
	Logger ctxlog.Logger

	conn      *amqp.Connection
	channel   *amqp.Channel
	Connected bool
}

// Connect dials the broker, opens a channel, and declares the
// invalidation fan-out exchange.
func (c *Connection) Connect(_ context.Context) error {
	c.logger().Info("connecting to rabbitmq...")

	conn, err := amqp.Dial(c.DSN)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(accountFilterInvalidationExchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare invalidation exchange: %w", err)
	}

	c.conn = conn
	c.channel = ch
	c.Connected = true

	c.logger().Info("connected to rabbitmq")

	return nil
}

// Channel returns the underlying AMQP channel, connecting lazily.
func (c *Connection) Channel(ctx context.Context) (*amqp.Channel, error) {
	if !c.Connected {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return c.channel, nil
}

// PublishInvalidation fans out a cache-key invalidation notice to every
// connected service instance's anonymous queue bound to the exchange.
func (c *Connection) PublishInvalidation(ctx context.Context, cacheKey string) error {
	ch, err := c.Channel(ctx)
	if err != nil {
		return err
	}

	return ch.PublishWithContext(ctx, accountFilterInvalidationExchange, "", false, false, amqp.Publishing{
		ContentType: "text/plain",
		Body:        []byte(cacheKey),
	})
}

// SubscribeInvalidations declares an anonymous, exclusive queue bound to the
// invalidation fanout exchange and starts consuming it, mirroring the
// teacher's MultiQueueConsumer.handlerXQueue registration shape scaled down
// to this service's single queue. The returned channel's deliveries carry
// the invalidated cache key as their body; it closes when ctx is done or the
// channel is lost.
func (c *Connection) SubscribeInvalidations(ctx context.Context) (<-chan string, error) {
	ch, err := c.Channel(ctx)
	if err != nil {
		return nil, err
	}

	queue, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, fmt.Errorf("declare invalidation queue: %w", err)
	}

	if err := ch.QueueBind(queue.Name, "", accountFilterInvalidationExchange, false, nil); err != nil {
		return nil, fmt.Errorf("bind invalidation queue: %w", err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx, queue.Name, "", true, true, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume invalidation queue: %w", err)
	}

	keys := make(chan string)

	go func() {
		defer close(keys)

		for {
			select {
			case <-ctx.Done():
				return
			case d, open := <-deliveries:
				if !open {
					return
				}

				select {
				case keys <- string(d.Body):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return keys, nil
}

// Close tears down the channel and connection.
func (c *Connection) Close() error {
	if c.channel != nil {
		_ = c.channel.Close()
	}

	if c.conn != nil {
		return c.conn.Close()
	}

	return nil
}

func (c *Connection) logger() ctxlog.Logger {
	if c.Logger != nil {
		return c.Logger
	}

	return ctxlog.NoneLogger{}
}
