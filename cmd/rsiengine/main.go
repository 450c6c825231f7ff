package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"rsi-engine/config"
	"rsi-engine/internal/logger"
	"rsi-engine/internal/rsiengine"
)

func main() {
	cfg := config.Load()
	slogger := logger.Init("rsiengine", logger.ParseLevel(cfg.LogLevel))

	svc, err := rsiengine.New(cfg, slogger)
	if err != nil {
		log.Fatalf("[rsiengine] init failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := svc.Run(ctx); err != nil {
		log.Fatalf("[rsiengine] fatal: %v", err)
	}
}
