// Package rsiengine wires configuration, transport, metrics and the RSI
// pipeline into one long-running service.
package rsiengine

import (
	"context"
	"log/slog"
	"time"

	"rsi-engine/config"
	"rsi-engine/internal/breaker"
	"rsi-engine/internal/indicator"
	"rsi-engine/internal/metrics"
	"rsi-engine/internal/model"
	"rsi-engine/internal/pipeline"
	"rsi-engine/internal/transport"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	breakerThreshold = 5
	breakerCooldown  = 10 * time.Second
	livenessInterval = 10 * time.Second
)

// Service is the top-level orchestrator for the RSI engine.
type Service struct {
	cfg *config.Config
	log *slog.Logger

	source   transport.Source
	sink     model.MessageSink
	pipeline *pipeline.Pipeline
	prom     *metrics.Metrics
	health   *metrics.HealthStatus
	http     *metrics.Server // nil when METRICS_ADDR is empty
}

// New connects to the configured broker and builds the pipeline. Metrics
// are registered on the Prometheus default registry.
func New(cfg *config.Config, log *slog.Logger) (*Service, error) {
	return newService(cfg, log, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

func newService(cfg *config.Config, log *slog.Logger, reg prometheus.Registerer, gatherer prometheus.Gatherer) (*Service, error) {
	svc := &Service{
		cfg:    cfg,
		log:    log,
		prom:   metrics.NewMetrics(reg),
		health: metrics.NewHealthStatus("rsiengine"),
	}

	cb := breaker.New(breakerThreshold, breakerCooldown)
	cb.OnStateChange = func(from, to breaker.State) {
		svc.prom.SinkCircuitBreakerState.Set(float64(to))
		if to == breaker.Open {
			svc.prom.SinkCircuitBreakerTrips.Inc()
		}
		log.Warn("sink circuit breaker", slog.String("from", from.String()), slog.String("to", to.String()))
	}

	opts := transport.Options{
		Kind:        cfg.Transport,
		Brokers:     cfg.Brokers,
		Password:    cfg.RedisPassword,
		Topic:       cfg.TradeTopic,
		Group:       cfg.ConsumerGroup,
		Consumer:    cfg.ConsumerName,
		SendTimeout: cfg.SendTimeout,
		Breaker:     cb,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	svc.source, err = transport.OpenSource(ctx, opts)
	if err != nil {
		return nil, err
	}
	sink, err := transport.OpenSink(ctx, opts)
	if err != nil {
		svc.source.Close()
		return nil, err
	}
	svc.sink = sink

	svc.pipeline, err = pipeline.New(pipeline.Config{
		Source:   svc.source,
		Sink:     sink,
		Registry: indicator.NewRegistry(cfg.TrackedTokens),
		OutTopic: cfg.RSITopic,
		Logger:   log,
		Metrics:  svc.prom,
		Health:   svc.health,
	})
	if err != nil {
		sink.Close()
		svc.source.Close()
		return nil, err
	}

	if cfg.MetricsAddr != "" {
		svc.http = metrics.NewServer(cfg.MetricsAddr, svc.health, gatherer)
	}
	return svc, nil
}

// Run starts all subsystems and blocks until ctx is cancelled.
func (svc *Service) Run(ctx context.Context) error {
	cfg := svc.cfg

	svc.health.CheckTransport(ctx, svc.source.Ping)
	svc.health.StartLivenessChecker(ctx, svc.source.Ping, livenessInterval)
	if svc.http != nil {
		svc.http.Start()
	}

	svc.log.Info("rsi engine started",
		slog.String("transport", cfg.Transport),
		slog.Any("brokers", cfg.Brokers),
		slog.String("in_topic", cfg.TradeTopic),
		slog.String("out_topic", cfg.RSITopic),
		slog.String("group", cfg.ConsumerGroup),
		slog.String("consumer", cfg.ConsumerName),
		slog.Any("tracked", cfg.TrackedTokens),
		slog.Int("window", indicator.WindowCapacity),
		slog.Int("min_samples", indicator.MinSamples),
	)

	err := svc.pipeline.Run(ctx)
	svc.shutdown()
	return err
}

// shutdown closes connections in reverse order of creation.
func (svc *Service) shutdown() {
	svc.log.Info("shutting down")

	if svc.http != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		svc.http.Stop(stopCtx)
	}

	if err := svc.sink.Close(); err != nil {
		svc.log.Warn("sink close", slog.Any("err", err))
	}
	if err := svc.source.Close(); err != nil {
		svc.log.Warn("source close", slog.Any("err", err))
	}

	svc.log.Info("shutdown complete")
}
