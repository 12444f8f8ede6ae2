package messaging

import (
	"context"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/AAlperA/PriceTrack/internal/metrics"
)

// retryHeader carries how many times a delivery has been retried. Retried
// messages are republished with the header bumped rather than nacked, so the
// budget survives broker round-trips.
const retryHeader = "x-retries"

// Handler processes one delivery. The raw JSON body is handed over as-is;
// a returned error sends the delivery through the retry path.
type Handler func(ctx context.Context, market, topic string, body []byte) error

// republisher is the publishing slice of *amqp.Channel the retry path needs.
type republisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Consumer drains every configured market/topic queue sequentially.
//
// The channel runs with a prefetch of one unacknowledged delivery, so
// processing is strictly serial: ordering per queue is preserved and at most
// one message is lost-in-flight on a crash. Acknowledgment is manual and
// happens only after the handler reports its side effects durable.
type Consumer struct {
	cfg        Config
	markets    []string
	maxRetries int
}

// NewConsumer configures a consumer for the given market allow-list.
// maxRetries bounds how often a failing delivery is retried before it is
// routed to the dead-letter queue.
func NewConsumer(cfg Config, markets []string, maxRetries int) *Consumer {
	return &Consumer{cfg: cfg, markets: markets, maxRetries: maxRetries}
}

// Start connects, declares the topology, and blocks consuming until the
// context is cancelled or the broker connection dies. The connection is
// released however the loop exits.
func (c *Consumer) Start(ctx context.Context, handler Handler) error {
	conn, err := Dial(c.cfg)
	if err != nil {
		log.Printf("(✗) RabbitMQ connection failed: %v", err)
		return err
	}
	defer func() {
		if !conn.IsClosed() {
			conn.Close()
			log.Println("(✓) RabbitMQ connection closed")
		}
	}()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set prefetch: %w", err)
	}
	if err := DeclareTopology(ch, c.markets); err != nil {
		return err
	}

	deliveries := make(chan amqp.Delivery)
	done := make(chan struct{})
	defer close(done)
	for _, market := range c.markets {
		for _, topic := range Topics {
			queue := QueueName(market, topic)
			msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
			if err != nil {
				return fmt.Errorf("consume %s: %w", queue, err)
			}
			go forward(msgs, deliveries, done)
			log.Printf("(✓) Consuming from %s", queue)
		}
	}

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case amqpErr := <-closed:
			if amqpErr != nil {
				log.Printf("(✗) Consuming failed because of: %v", amqpErr)
				return amqpErr
			}
			return nil
		case d := <-deliveries:
			c.handle(ctx, ch, d, handler)
		}
	}
}

// forward pumps one queue's deliveries into the shared channel until the
// source closes or done is closed, so Start leaves no goroutine behind.
func forward(msgs <-chan amqp.Delivery, out chan<- amqp.Delivery, done <-chan struct{}) {
	for d := range msgs {
		select {
		case out <- d:
		case <-done:
			return
		}
	}
}

func (c *Consumer) handle(ctx context.Context, ch republisher, d amqp.Delivery, handler Handler) {
	market, topic, err := ParseRoutingKey(d.RoutingKey)
	if err != nil {
		// A poison routing key must not block the queue.
		log.Printf("(?) Invalid routing_key: %s", d.RoutingKey)
		metrics.MessagesTotal.WithLabelValues("", "", "malformed").Inc()
		d.Ack(false)
		return
	}

	if err := handler(ctx, market, topic, d.Body); err != nil {
		log.Printf("(✗) Handling %s failed: %v", d.RoutingKey, err)
		metrics.MessagesTotal.WithLabelValues(market, topic, "error").Inc()
		c.retry(ctx, ch, d)
		return
	}

	metrics.MessagesTotal.WithLabelValues(market, topic, "ok").Inc()
	d.Ack(false)
}

// retry republishes the delivery with its retry header bumped, or routes it
// to the dead-letter exchange once the budget is spent. The original is acked
// in either case so the queue keeps moving.
func (c *Consumer) retry(ctx context.Context, ch republisher, d amqp.Delivery) {
	retries := retryCount(d.Headers)

	exchange := ExchangeName
	headers := amqp.Table{retryHeader: retries + 1}
	if retries >= c.maxRetries {
		exchange = DeadLetterExchange
		headers = d.Headers
	}

	err := ch.PublishWithContext(ctx, exchange, d.RoutingKey, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  d.ContentType,
		MessageId:    d.MessageId,
		Headers:      headers,
		Body:         d.Body,
	})
	if err != nil {
		// Could not move the message anywhere; put it back on the queue.
		log.Printf("(✗) Requeue publish failed for %s: %v", d.RoutingKey, err)
		d.Nack(false, true)
		return
	}

	if exchange == DeadLetterExchange {
		log.Printf("(✗) Gave up on %s after %d retries, dead-lettered", d.RoutingKey, retries)
		metrics.DeadLetteredTotal.WithLabelValues(d.RoutingKey).Inc()
	}
	d.Ack(false)
}

// retryCount reads the retry header, tolerating the integer widths the wire
// protocol may hand back.
func retryCount(headers amqp.Table) int {
	switch v := headers[retryHeader].(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	default:
		return 0
	}
}
