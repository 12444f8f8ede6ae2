package messaging

import (
	"fmt"
	"strings"
)

// TopicProduct and TopicPrice are the only two topics a collector may publish.
const (
	TopicProduct = "product"
	TopicPrice   = "price"
)

// Topics lists the fixed topic labels in queue-declaration order.
var Topics = []string{TopicProduct, TopicPrice}

// RoutingKey builds the "{market}.{topic}" key a message is published under.
func RoutingKey(market, topic string) string {
	return market + "." + topic
}

// QueueName builds the durable queue name bound for a market/topic pair.
func QueueName(market, topic string) string {
	return fmt.Sprintf("%s_%s_queue", market, topic)
}

// ParseRoutingKey splits a routing key back into its market and topic.
// Keys without exactly one separator are malformed.
func ParseRoutingKey(key string) (market, topic string, err error) {
	parts := strings.Split(key, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed routing key %q", key)
	}
	return parts[0], parts[1], nil
}
