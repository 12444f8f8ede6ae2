package catalog

import (
	"context"
	"fmt"
	"log"

	"github.com/AAlperA/PriceTrack/internal/metrics"
)

// Ingestor turns inbound market/topic messages into catalog writes. It is the
// handler the consumer dispatches every delivery to; a nil return means the
// message's effects are committed and the delivery may be acknowledged.
type Ingestor struct {
	repo Repository
}

// NewIngestor creates an ingestor writing through the given repository.
func NewIngestor(repo Repository) *Ingestor {
	return &Ingestor{repo: repo}
}

// ProcessMessage processes one delivery. The payload may be a single record
// or a homogeneous list; both shapes are normalized here. Unknown topics are
// logged and succeed as no-ops so they are not retried forever.
func (s *Ingestor) ProcessMessage(ctx context.Context, market, topic string, body []byte) error {
	switch topic {
	case "product":
		records, err := normalizeBatch[ProductRecord](body)
		if err != nil {
			return fmt.Errorf("decode product payload: %w", err)
		}
		if len(records) == 0 {
			return nil
		}
		if err := s.repo.UpsertProducts(ctx, records); err != nil {
			return err
		}
		log.Printf("(✓) 📦 %d product(s) upserted from %s", len(records), market)
		return nil

	case "price":
		records, err := normalizeBatch[PriceRecord](body)
		if err != nil {
			return fmt.Errorf("decode price payload: %w", err)
		}
		for i := range records {
			records[i].Normalize()
		}
		inserted, err := s.repo.InsertPrices(ctx, records)
		if err != nil {
			return err
		}
		if dropped := len(records) - inserted; dropped > 0 {
			metrics.PricesDroppedTotal.WithLabelValues(market).Add(float64(dropped))
		}
		log.Printf("(✓) 💸 %d of %d price(s) inserted from %s", inserted, len(records), market)
		return nil

	default:
		log.Printf("(?) Unknown topic: %s", topic)
		return nil
	}
}
