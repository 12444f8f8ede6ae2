package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/AAlperA/PriceTrack/internal/metrics"
	"github.com/AAlperA/PriceTrack/internal/modules/catalog"
	"github.com/AAlperA/PriceTrack/internal/modules/messaging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("(?) No .env file found, using system environment")
	}

	db, err := sql.Open("postgres", os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatalf("(✗) Consumers cannot be started without a database connection: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("(✗) Consumers cannot be started without a database connection: %v", err)
	}
	log.Println("(✓) Connected to PostgreSQL database")

	markets := messaging.ParseMarkets(os.Getenv("MARKETS"))
	if len(markets) == 0 {
		log.Fatal("(✗) MARKETS is empty, nothing to consume")
	}

	maxRetries := 5
	if raw := os.Getenv("CONSUMER_MAX_RETRIES"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			maxRetries = n
		}
	}

	if port := os.Getenv("METRICS_PORT"); port != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			if err := http.ListenAndServe(":"+port, mux); err != nil {
				log.Printf("(✗) Metrics server failed: %v", err)
			}
		}()
	}

	ingestor := catalog.NewIngestor(catalog.NewPostgresRepository(db))
	consumer := messaging.NewConsumer(messaging.ConfigFromEnv(), markets, maxRetries)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := consumer.Start(ctx, ingestor.ProcessMessage); err != nil && ctx.Err() == nil {
		log.Fatalf("(✗) Consumer exited: %v", err)
	}
}
