package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MacJediWizard/modlicense/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// DefaultTokensIssuedQueue is the queue token issuance events are published to.
const DefaultTokensIssuedQueue = "license.tokens_issued"

// AMQPConfig configures the message queue sink.
type AMQPConfig struct {
	URL   string
	Queue string
}

// AMQPPublisher publishes token issuance events to a durable RabbitMQ queue.
// Each publish dials its own connection.
type AMQPPublisher struct {
	config AMQPConfig
	logger zerolog.Logger
}

// NewAMQPPublisher creates a publisher. The broker is not contacted until the first event.
func NewAMQPPublisher(cfg AMQPConfig, logger zerolog.Logger) (*AMQPPublisher, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("amqp URL is required")
	}
	if cfg.Queue == "" {
		cfg.Queue = DefaultTokensIssuedQueue
	}
	return &AMQPPublisher{
		config: cfg,
		logger: logger.With().Str("component", "amqp_publisher").Str("queue", cfg.Queue).Logger(),
	}, nil
}

// Name identifies the sink in logs.
func (p *AMQPPublisher) Name() string { return "amqp" }

// NotifyTokensIssued publishes the event as a persistent JSON message.
func (p *AMQPPublisher) NotifyTokensIssued(ctx context.Context, event models.TokensIssuedEvent) error {
	pub, err := newEventPublishing(event)
	if err != nil {
		return err
	}

	conn, err := amqp.DialConfig(p.config.URL, amqp.Config{
		Dial: amqp.DefaultDial(5 * time.Second),
	})
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open amqp channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		p.config.Queue, // name
		true,           // durable
		false,          // autoDelete
		false,          // exclusive
		false,          // noWait
		nil,            // args
	); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.PublishWithContext(ctx,
		"",             // default exchange
		p.config.Queue, // routing key = queue name
		false,          // mandatory
		false,          // immediate
		pub,
	); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	p.logger.Debug().Str("owner_id", event.OwnerID).Msg("tokens issued event published")
	return nil
}

func newEventPublishing(event models.TokensIssuedEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.IssuedAt.UTC(),
		Type:         "tokens_issued",
		Body:         body,
	}, nil
}
