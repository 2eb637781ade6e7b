package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher handles message publishing to RabbitMQ
type Publisher struct {
	conn     *Connection
	mu       sync.Mutex
	channel  *amqp.Channel
	exchange string
	logger   *zap.Logger
}

// NewPublisher creates a new RabbitMQ publisher
func NewPublisher(conn *Connection, exchange string, logger *zap.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	if err := declareExchange(ch, exchange); err != nil {
		ch.Close()
		return nil, err
	}

	return &Publisher{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		logger:   logger,
	}, nil
}

// PublishAnomaly publishes a single anomaly event
func (p *Publisher) PublishAnomaly(ctx context.Context, event AnomalyEvent, routingKey string) error {
	if err := p.publish(ctx, routingKey, event.RequestID, event); err != nil {
		return err
	}

	p.logger.Debug("published anomaly event",
		zap.String("routing_key", routingKey),
		zap.String("run_id", event.RunID),
		zap.String("kind", event.Kind),
	)
	return nil
}

// PublishRunSummary publishes the per-batch summary
func (p *Publisher) PublishRunSummary(ctx context.Context, event RunSummaryEvent, routingKey string) error {
	if err := p.publish(ctx, routingKey, event.RequestID, event); err != nil {
		return err
	}

	p.logger.Debug("published run summary",
		zap.String("routing_key", routingKey),
		zap.String("run_id", event.RunID),
		zap.Int("anomaly_count", event.AnomalyCount),
	)
	return nil
}

func (p *Publisher) publish(ctx context.Context, routingKey, correlationID string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// amqp channels are not safe for concurrent publishes
	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: correlationID,
			Body:          body,
			DeliveryMode:  amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Close closes the publisher channel
func (p *Publisher) Close() error {
	if p.channel != nil {
		return p.channel.Close()
	}
	return nil
}

func declareExchange(ch *amqp.Channel, exchange string) error {
	err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return nil
}
