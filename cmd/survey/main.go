package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"annotation-survey/config"
	"annotation-survey/internal/api/console"
	"annotation-survey/internal/container"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := container.NewClient(ctx, cfg)

	c := console.New(client.Survey, client.Sync, os.Stdout, cfg.DataDir)
	if err := c.Run(ctx, os.Stdin); err != nil {
		log.Fatalf("Console error: %v", err)
	}
}
