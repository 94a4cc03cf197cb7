package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bharathbs2003/cinehack/shared/config"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// ExchangeName is the topic exchange every pipeline step binds to.
	ExchangeName = "job_exchange"
	exchangeType = "topic"

	publishTimeout = 5 * time.Second
)

// RoutingKey returns the routing key for a pipeline step.
func RoutingKey(step string) string {
	return "job." + step
}

// Connection wraps the RabbitMQ connection.
type Connection struct {
	*amqp.Connection
}

// NewConnection dials the broker configured in cfg.
func NewConnection(cfg config.RabbitMQConfig) (*Connection, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return &Connection{conn}, nil
}

// Close closes the RabbitMQ connection.
func (c *Connection) Close() error {
	return c.Connection.Close()
}

// DeclareExchange declares the pipeline exchange on the given channel. Both
// publishers and consumers declare it, so either side may start first.
func DeclareExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		ExchangeName,
		exchangeType,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
}

// Publisher publishes step messages to the pipeline exchange.
type Publisher struct {
	conn *Connection
}

// NewPublisher creates a publisher over an established connection.
func NewPublisher(conn *Connection) *Publisher {
	return &Publisher{conn: conn}
}

// Publish marshals message as JSON and publishes it persistently under the
// given routing key. A fresh channel is opened per call.
func (p *Publisher) Publish(ctx context.Context, routingKey string, message interface{}) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := DeclareExchange(ch); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	}
	if err := ch.PublishWithContext(ctx, ExchangeName, routingKey, false, false, publishing); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", routingKey, err)
	}
	return nil
}

// Conn returns the underlying connection.
func (p *Publisher) Conn() *Connection {
	return p.conn
}
