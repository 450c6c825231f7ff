package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"rsi-engine/config"
	"rsi-engine/internal/gateway"
	"rsi-engine/internal/logger"
)

func main() {
	cfg := config.Load()
	slogger := logger.Init("gateway", logger.ParseLevel(cfg.LogLevel))

	svc, err := gateway.New(cfg, slogger)
	if err != nil {
		log.Fatalf("[gateway] init failed: %v", err)
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
		log.Fatalf("[gateway] fatal: %v", err)
	}
}
