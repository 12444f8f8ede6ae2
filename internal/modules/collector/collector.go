package collector

import (
	"context"
	"fmt"
	"os"
)

// EmitFunc receives one (market, topic, payload) triple from a running scrape.
// The payload is either a single record or a list of records; both shapes are
// accepted downstream. Returning an error aborts the scrape.
type EmitFunc func(market, topic string, payload any) error

// Collector is a site-specific data source. A scrape is lazy, finite, and
// restartable per invocation; the collector owns its own termination policy
// and transient resources.
type Collector interface {
	Name() string
	Scrape(ctx context.Context, emit EmitFunc) error
}

// New builds the named collector from its environment configuration.
func New(name string) (Collector, error) {
	switch name {
	case "a101":
		return NewA101(os.Getenv("A101_API_URL")), nil
	case "migros":
		return NewMigros(os.Getenv("MIGROS_CATEGORIES_URL"), os.Getenv("MIGROS_API_URL")), nil
	case "getir":
		return NewGetir(os.Getenv("GETIR_URL")), nil
	default:
		return nil, fmt.Errorf("unknown collector %q", name)
	}
}
