package mq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const heartbeat = 10 * time.Second

// Connection wraps RabbitMQ connection
type Connection struct {
	conn   *amqp.Connection
	logger *zap.Logger
}

// NewConnection dials RabbitMQ and closes the connection when the app stops.
// The connection name shows up in the management UI.
func NewConnection(lc fx.Lifecycle, logger *zap.Logger, url, name string) (*Connection, error) {
	logger.Info("attempting to connect to RabbitMQ...", zap.String("connection_name", name))

	props := amqp.NewConnectionProperties()
	props.SetClientConnectionName(name)

	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat:  heartbeat,
		Locale:     "en_US",
		Properties: props,
	})
	if err != nil {
		logger.Error("rabbitmq connection failed", zap.Error(err))
		return nil, fmt.Errorf("cannot connect to RabbitMQ (check that the broker is running and RABBITMQ_URL is correct): %w", err)
	}

	mqConn := &Connection{conn: conn, logger: logger}
	go mqConn.watchClose()

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("rabbitmq connection established successfully")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return mqConn.Close()
		},
	})

	return mqConn, nil
}

// watchClose logs broker-initiated closes; a graceful Close yields nil
func (c *Connection) watchClose() {
	closed := c.conn.NotifyClose(make(chan *amqp.Error, 1))
	if amqpErr, ok := <-closed; ok && amqpErr != nil {
		c.logger.Error("rabbitmq connection closed by broker",
			zap.Int("code", amqpErr.Code),
			zap.String("reason", amqpErr.Reason),
			zap.Bool("recoverable", amqpErr.Recover),
		)
	}
}

// Channel creates a new RabbitMQ channel
func (c *Connection) Channel() (*amqp.Channel, error) {
	return c.conn.Channel()
}

// IsClosed reports whether the underlying connection is gone
func (c *Connection) IsClosed() bool {
	return c.conn.IsClosed()
}

// Close closes the connection if it is still open
func (c *Connection) Close() error {
	if c.conn.IsClosed() {
		return nil
	}
	if err := c.conn.Close(); err != nil {
		c.logger.Error("failed to close rabbitmq connection", zap.Error(err))
		return err
	}
	c.logger.Info("rabbitmq connection closed")
	return nil
}
