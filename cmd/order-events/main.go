package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"marketplace-api/internal/cache"
	"marketplace-api/internal/config"
	"marketplace-api/internal/events"

	"github.com/joho/godotenv"
)

// order-events consumes order events and drops cached catalog listings
// whenever checkout or cancellation moved stock.
func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[order-events] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	if len(cfg.KafkaBrokers) == 0 {
		logger.Fatalf("KAFKA_BROKERS is required")
	}
	if cfg.RedisAddr == "" {
		logger.Fatalf("REDIS_ADDR is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb, err := cache.NewClient(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Fatalf("connect redis: %v", err)
	}
	defer rdb.Close()
	catalog := cache.NewCatalog(rdb, cfg.CatalogCacheTTL, logger)

	consumer := events.NewConsumer(cfg.KafkaBrokers, cfg.ConsumerGroup, cfg.OrderEventsTopic, 4, logger)
	handler := events.InvalidateCatalog(catalog, cfg.ConsumerGroup, logger)

	consumerErr := make(chan error, 1)
	go func() {
		logger.Printf("consumer started: group=%s topic=%s", cfg.ConsumerGroup, cfg.OrderEventsTopic)
		consumerErr <- consumer.Start(ctx, handler)
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
		cancel()
		<-consumerErr
	case err := <-consumerErr:
		if err != nil {
			logger.Printf("consumer exit: %v", err)
		}
	}
	logger.Printf("consumer stopped")
}
