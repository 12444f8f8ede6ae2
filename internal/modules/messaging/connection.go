package messaging

import (
	"fmt"
	"os"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ExchangeName is the topic exchange every collector publishes into.
const ExchangeName = "scrapers"

// DeadLetterExchange receives deliveries that exhausted their retry budget.
const DeadLetterExchange = "scrapers.dlx"

// Config holds the broker connection parameters.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
}

// ConfigFromEnv reads the broker parameters from the environment.
func ConfigFromEnv() Config {
	return Config{
		Host:     os.Getenv("RMQ_HOST"),
		Port:     os.Getenv("RMQ_PORT"),
		User:     os.Getenv("RMQ_USER"),
		Password: os.Getenv("RMQ_PASSWORD"),
	}
}

// URL renders the config as an AMQP connection URL.
func (c Config) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", c.User, c.Password, c.Host, c.Port)
}

// Dial opens a broker connection. The caller owns the connection and must
// close it when the pipeline run is over.
func Dial(cfg Config) (*amqp.Connection, error) {
	conn, err := amqp.Dial(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	return conn, nil
}

// ParseMarkets splits the comma-separated market allow-list, trimming
// whitespace and skipping empty entries.
func ParseMarkets(raw string) []string {
	var markets []string
	for _, m := range strings.Split(raw, ",") {
		m = strings.TrimSpace(m)
		if m != "" {
			markets = append(markets, m)
		}
	}
	return markets
}
