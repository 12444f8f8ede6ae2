package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PublishedTotal counts messages handed to the broker per routing key pair.
	PublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricetrack_published_total",
			Help: "Total number of messages published to the scrapers exchange.",
		},
		[]string{"market", "topic"},
	)

	// MessagesTotal counts consumed deliveries by outcome (ok, error, malformed).
	MessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricetrack_messages_total",
			Help: "Total number of deliveries handled by the consumer.",
		},
		[]string{"market", "topic", "outcome"},
	)

	// PricesDroppedTotal counts price records excluded because no product
	// matched their (product_name, market) pair.
	PricesDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricetrack_prices_dropped_total",
			Help: "Total number of price records dropped for lack of a matching product.",
		},
		[]string{"market"},
	)

	// DeadLetteredTotal counts deliveries that exhausted their retry budget.
	DeadLetteredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricetrack_dead_lettered_total",
			Help: "Total number of deliveries routed to the dead-letter queue.",
		},
		[]string{"routing_key"},
	)
)

func init() {
	prometheus.MustRegister(PublishedTotal)
	prometheus.MustRegister(MessagesTotal)
	prometheus.MustRegister(PricesDroppedTotal)
	prometheus.MustRegister(DeadLetteredTotal)
}

// Handler returns the HTTP handler exporting the registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
