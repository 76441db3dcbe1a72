package milestones

import (
	"context"
	"errors"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/yungbote/earnedvalue-backend/internal/platform/logger"
)

type ConsumerConfig struct {
	URL      string
	Queue    string
	Prefetch int
}

// Consumer reads component.milestones.changed from a durable queue bound to
// the events exchange. Rejected messages go to the dead-letter exchange.
type Consumer struct {
	log     *logger.Logger
	cfg     ConsumerConfig
	conn    *amqp.Connection
	channel *amqp.Channel
	handler *Handler
}

func NewConsumer(baseLog *logger.Logger, cfg ConsumerConfig, handler *Handler) (*Consumer, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("milestones consumer: missing MQ url")
	}
	if handler == nil {
		return nil, errors.New("milestones consumer: handler not set")
	}
	if cfg.Queue == "" {
		cfg.Queue = RoutingKey + ".q"
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 16
	}
	log := baseLog.With("component", "MilestonesConsumer", "queue", cfg.Queue)

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := declareTopology(ch, cfg.Queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to set prefetch: %w", err)
	}

	log.Info("consumer initialized", "routing_key", RoutingKey, "exchange", ExchangeName)
	return &Consumer{log: log, cfg: cfg, conn: conn, channel: ch, handler: handler}, nil
}

func declareTopology(ch *amqp.Channel, queue string) error {
	if err := ch.ExchangeDeclare(ExchangeName, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	if err := ch.ExchangeDeclare(DLQExchangeName, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dead-letter exchange: %w", err)
	}
	dlq, err := ch.QueueDeclare(RoutingKey+".dlq", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare dead-letter queue: %w", err)
	}
	if err := ch.QueueBind(dlq.Name, RoutingKey, DLQExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind dead-letter queue: %w", err)
	}
	q, err := ch.QueueDeclare(queue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange": DLQExchangeName,
	})
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, RoutingKey, ExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}
	return nil
}

// Run consumes until ctx is cancelled or the broker closes the channel.
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.channel.ConsumeWithContext(ctx, c.cfg.Queue, "earnedvalue", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}
	c.log.Info("consumer started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("milestones consumer: delivery channel closed")
			}
			c.process(ctx, d)
		}
	}
}

// process guarantees every delivery is acked or nacked, even if the handler panics.
func (c *Consumer) process(ctx context.Context, d amqp.Delivery) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("handler panic recovered", "panic", r, "delivery_tag", d.DeliveryTag)
			if err := d.Nack(false, false); err != nil {
				c.log.Error("failed to nack message after panic", "error", err)
			}
		}
	}()

	var err error
	switch c.handler.Handle(ctx, d.Body) {
	case OutcomeAck, OutcomeDuplicate:
		err = d.Ack(false)
	case OutcomeRequeue:
		// a message the broker already redelivered once goes to the DLQ instead of looping
		err = d.Nack(false, !d.Redelivered)
	default:
		err = d.Nack(false, false)
	}
	if err != nil {
		c.log.Error("failed to settle message", "delivery_tag", d.DeliveryTag, "error", err)
	}
}

func (c *Consumer) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}
