package messaging

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/AAlperA/PriceTrack/internal/metrics"
)

// Publisher delivers collector payloads to the scrapers exchange.
//
// Construction connects eagerly; when the broker is unreachable the publisher
// stays usable but inert, and every Publish logs and returns without error.
// Callers should check Ready before driving a whole scrape through it.
type Publisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher connects to the broker and opens a channel. A failed connection
// is logged, not returned: the resulting publisher is a no-op.
func NewPublisher(cfg Config) *Publisher {
	p := &Publisher{}

	conn, err := Dial(cfg)
	if err != nil {
		log.Printf("(✗) RabbitMQ connection failed: %v", err)
		return p
	}

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("(✗) RabbitMQ channel open failed: %v", err)
		conn.Close()
		return p
	}

	p.conn = conn
	p.ch = ch
	return p
}

// Ready reports whether the publisher holds a live channel.
func (p *Publisher) Ready() bool {
	return p.ch != nil
}

// Publish serializes data as JSON and sends it under "{market}.{topic}",
// marked persistent. Callers must not assume delivery succeeded: a missing
// channel or a broker error is logged and swallowed.
func (p *Publisher) Publish(ctx context.Context, market, topic string, data any) {
	if p.ch == nil {
		log.Printf("(✗) No channel to publish %s.%s", market, topic)
		return
	}

	body, err := json.Marshal(data)
	if err != nil {
		log.Printf("(✗) Marshal failed for %s.%s: %v", market, topic, err)
		return
	}

	key := RoutingKey(market, topic)
	err = p.ch.PublishWithContext(ctx, ExchangeName, key, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    uuid.NewString(),
		Body:         body,
	})
	if err != nil {
		log.Printf("(✗) Publish failed for %s: %v", key, err)
		return
	}

	metrics.PublishedTotal.WithLabelValues(market, topic).Inc()
	log.Printf("(✓) Published to %s (%d bytes)", key, len(body))
}

// Close releases the channel and connection if they were ever opened.
func (p *Publisher) Close() {
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil && !p.conn.IsClosed() {
		p.conn.Close()
		log.Println("(✓) RabbitMQ connection closed")
	}
}
