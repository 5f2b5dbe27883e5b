package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/spec-kit/helpdesk/internal/config"
)

// Channel is the subset of *amqp.Channel used for publishing.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes notifications to a RabbitMQ exchange for
// downstream consumers such as chat integrations.
type AMQPPublisher struct {
	ch         Channel
	conn       *amqp.Connection
	exchange   string
	routingKey string
}

// NewAMQPPublisher wraps an open channel.
func NewAMQPPublisher(ch Channel, exchange, routingKey string) *AMQPPublisher {
	return &AMQPPublisher{ch: ch, exchange: exchange, routingKey: routingKey}
}

// DialAMQP connects to the broker and declares a durable topic exchange.
func DialAMQP(cfg config.AMQPConfig) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp declare exchange %s: %w", cfg.Exchange, err)
	}
	p := NewAMQPPublisher(ch, cfg.Exchange, cfg.RoutingKey)
	p.conn = conn
	return p, nil
}

func (p *AMQPPublisher) Name() string { return "amqp" }

type amqpEnvelope struct {
	Kind    string `json:"kind"`
	ToEmail string `json:"toEmail"`
	ToName  string `json:"toName"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Data    any    `json:"data,omitempty"`
}

func (p *AMQPPublisher) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(amqpEnvelope{
		Kind:    msg.Kind,
		ToEmail: msg.ToEmail,
		ToName:  msg.ToName,
		Subject: msg.Subject,
		Body:    msg.Body,
		Data:    msg.Data,
	})
	if err != nil {
		return fmt.Errorf("amqp encode: %w", err)
	}
	key := p.routingKey
	if msg.Kind != "" {
		key = p.routingKey + "." + msg.Kind
	}
	err = p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Type:         msg.Kind,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}

// Close releases the channel and, when owned, the connection.
func (p *AMQPPublisher) Close() error {
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
