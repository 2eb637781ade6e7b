package mq

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// MessageHandler is a function that processes a message
type MessageHandler func(ctx context.Context, body []byte) error

// Consumer handles message consumption from RabbitMQ
type Consumer struct {
	conn             *Connection
	channel          *amqp.Channel
	queue            string
	prefetchCount    int
	handleTimeout    time.Duration
	logger           *zap.Logger
	messageProcessor MessageHandler
	done             chan struct{}
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	Connection       *Connection
	Queue            string
	DLQQueue         string
	Exchange         string
	RoutingKey       string
	PrefetchCount    int
	HandleTimeout    time.Duration
	Logger           *zap.Logger
	MessageProcessor MessageHandler
}

// NewConsumer opens a channel and declares the ingest topology
func NewConsumer(cfg ConsumerConfig) (*Consumer, error) {
	ch, err := cfg.Connection.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	if err := ch.Qos(cfg.PrefetchCount, 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	if err := declareTopology(ch, cfg); err != nil {
		ch.Close()
		return nil, err
	}

	return &Consumer{
		conn:             cfg.Connection,
		channel:          ch,
		queue:            cfg.Queue,
		prefetchCount:    cfg.PrefetchCount,
		handleTimeout:    cfg.HandleTimeout,
		logger:           cfg.Logger,
		messageProcessor: cfg.MessageProcessor,
		done:             make(chan struct{}),
	}, nil
}

// declareTopology declares the exchange, the ingest queue dead-lettering
// into the DLQ, the DLQ itself and the binding
func declareTopology(ch *amqp.Channel, cfg ConsumerConfig) error {
	if err := declareExchange(ch, cfg.Exchange); err != nil {
		return err
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": cfg.DLQQueue,
	}
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, args); err != nil {
		// a precondition failure closes the channel, so there is no fallback declare
		return fmt.Errorf("failed to declare queue %s: %w", cfg.Queue, err)
	}

	if _, err := ch.QueueDeclare(cfg.DLQQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLQ %s: %w", cfg.DLQQueue, err)
	}

	if err := ch.QueueBind(cfg.Queue, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}
	return nil
}

// Start starts consuming messages until ctx is cancelled or the broker
// closes the delivery channel
func (c *Consumer) Start(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		c.queue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("consumer started",
		zap.String("queue", c.queue),
		zap.Int("prefetch", c.prefetchCount),
	)

	go func() {
		defer close(c.done)
		for {
			select {
			case <-ctx.Done():
				c.logger.Info("consumer context cancelled, stopping")
				return
			case msg, ok := <-msgs:
				if !ok {
					c.logger.Warn("message channel closed")
					return
				}
				c.processMessage(ctx, msg)
			}
		}
	}()

	return nil
}

// shouldRequeue reports whether a failed message was cut short by the consumer
// stopping. A per-message timeout is not a shutdown and still dead-letters.
func shouldRequeue(consumerCtx context.Context, err error) bool {
	return consumerCtx.Err() != nil || errors.Is(err, context.Canceled)
}

func (c *Consumer) processMessage(ctx context.Context, msg amqp.Delivery) {
	c.logger.Info("received message from queue",
		zap.String("queue", c.queue),
		zap.String("routing_key", msg.RoutingKey),
		zap.String("correlation_id", msg.CorrelationId),
		zap.Bool("redelivered", msg.Redelivered),
		zap.Int("body_size", len(msg.Body)),
	)

	handleCtx := ctx
	if c.handleTimeout > 0 {
		var cancel context.CancelFunc
		handleCtx, cancel = context.WithTimeout(ctx, c.handleTimeout)
		defer cancel()
	}

	if err := c.messageProcessor(handleCtx, msg.Body); err != nil {
		c.logger.Error("failed to process message",
			zap.Error(err),
			zap.String("routing_key", msg.RoutingKey),
		)

		// shutdown mid-message goes back to the queue, anything else to the DLQ
		requeue := shouldRequeue(ctx, err)
		if requeue {
			c.logger.Warn("requeueing message interrupted by shutdown",
				zap.String("correlation_id", msg.CorrelationId),
			)
		}
		if nackErr := msg.Nack(false, requeue); nackErr != nil {
			c.logger.Error("failed to NACK message", zap.Error(nackErr))
		}
		return
	}

	if ackErr := msg.Ack(false); ackErr != nil {
		c.logger.Error("failed to ACK message", zap.Error(ackErr))
		return
	}
	c.logger.Debug("message processed and acknowledged",
		zap.String("routing_key", msg.RoutingKey),
	)
}

// Done is closed once the delivery loop has exited
func (c *Consumer) Done() <-chan struct{} {
	return c.done
}

// Close closes the consumer channel
func (c *Consumer) Close() error {
	if c.channel != nil {
		return c.channel.Close()
	}
	return nil
}
