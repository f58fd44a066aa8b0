package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"fixturegen/internal/signalk"
	"fixturegen/internal/telemetry"
)

// Routing keys used when publishing.
const (
	RecordRoutingKey = "observation"
	FleetRoutingKey  = "fleet"
)

const amqpPublishTimeout = 5 * time.Second

type amqpPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPWriter publishes records and fleet documents as JSON messages to an
// exchange.
type AMQPWriter struct {
	conn     *amqp.Connection
	channel  amqpPublisher
	exchange string
	runID    string
}

// NewAMQPWriter dials url and declares a durable fanout exchange.
func NewAMQPWriter(log *slog.Logger, url, exchange, runID string) (*AMQPWriter, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	log.Info("amqp connected", "exchange", exchange)
	return &AMQPWriter{conn: conn, channel: ch, exchange: exchange, runID: runID}, nil
}

// Write publishes a single record.
func (w *AMQPWriter) Write(row telemetry.Record) error {
	return w.publish(RecordRoutingKey, row)
}

// WriteLine publishes an encoded record line as the message body.
func (w *AMQPWriter) WriteLine(line []byte) error {
	return w.send(RecordRoutingKey, append([]byte(nil), line...))
}

// WriteFleet publishes a fleet document.
func (w *AMQPWriter) WriteFleet(doc *signalk.Document) error {
	return w.publish(FleetRoutingKey, doc)
}

func (w *AMQPWriter) publish(key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return w.send(key, body)
}

func (w *AMQPWriter) send(key string, body []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), amqpPublishTimeout)
	defer cancel()
	err := w.channel.PublishWithContext(ctx, w.exchange, key, false, false, amqp.Publishing{
		ContentType: "application/json",
		AppId:       "fixturegen",
		Headers:     amqp.Table{"run_id": w.runID},
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Close closes the channel and connection.
func (w *AMQPWriter) Close() error {
	if c, ok := w.channel.(*amqp.Channel); ok {
		c.Close()
	}
	if w.conn != nil {
		return w.conn.Close()
	}
	return nil
}
