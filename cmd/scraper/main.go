package main

import (
	"context"
	"flag"
	"log"

	"github.com/joho/godotenv"

	"github.com/AAlperA/PriceTrack/internal/modules/collector"
	"github.com/AAlperA/PriceTrack/internal/modules/messaging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("(?) No .env file found, using system environment")
	}

	name := flag.String("collector", "migros", "collector to run")
	flag.Parse()

	runner, err := collector.New(*name)
	if err != nil {
		log.Fatalf("(✗) %v", err)
	}

	publisher := messaging.NewPublisher(messaging.ConfigFromEnv())
	defer publisher.Close()

	if !publisher.Ready() {
		log.Println("(✗) RabbitMQ connection failed")
		return
	}

	ctx := context.Background()
	err = runner.Scrape(ctx, func(market, topic string, payload any) error {
		publisher.Publish(ctx, market, topic, payload)
		return nil
	})
	if err != nil {
		log.Printf("(✗) Scrape failed for %s: %v", runner.Name(), err)
	}
}
