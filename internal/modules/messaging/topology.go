package messaging

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DeadLetterQueue collects deliveries that exhausted their retry budget.
const DeadLetterQueue = "scrapers_dead_queue"

// DeclareTopology declares the exchange, the per-market durable queues and
// their bindings, and the dead-letter sink. Every declaration is idempotent,
// so it is safe to run on each consumer startup.
func DeclareTopology(ch *amqp.Channel, markets []string) error {
	if err := ch.ExchangeDeclare(ExchangeName, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", ExchangeName, err)
	}
	if err := ch.ExchangeDeclare(DeadLetterExchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", DeadLetterExchange, err)
	}

	// One sink for every dead-lettered routing key.
	if _, err := ch.QueueDeclare(DeadLetterQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", DeadLetterQueue, err)
	}
	if err := ch.QueueBind(DeadLetterQueue, "#", DeadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", DeadLetterQueue, err)
	}

	for _, market := range markets {
		for _, topic := range Topics {
			queue := QueueName(market, topic)
			if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
				return fmt.Errorf("declare queue %s: %w", queue, err)
			}
			if err := ch.QueueBind(queue, RoutingKey(market, topic), ExchangeName, false, nil); err != nil {
				return fmt.Errorf("bind queue %s: %w", queue, err)
			}
		}
	}
	return nil
}
