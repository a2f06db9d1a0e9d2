package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/solidstone/mediascan/internal/autosync"
	"github.com/solidstone/mediascan/internal/config"
	"github.com/solidstone/mediascan/internal/version"
)

func main() {
	log.Printf("[autosync] %s starting", version.String())
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[autosync] config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services := []autosync.Service{
		autosync.NewSimkl(cfg.SimklClientID),
	}

	consumer, err := autosync.NewConsumer(cfg.RabbitURL, services)
	if err != nil {
		log.Fatalf("[autosync] %v", err)
	}
	defer consumer.Close()

	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("[autosync] %v", err)
	}
	log.Printf("[autosync] stopped")
}
