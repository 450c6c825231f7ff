// Package pipeline drives the consume -> filter -> update -> compute -> emit
// loop for the RSI stage.
//
// One goroutine owns the Pipeline and its Registry. Messages are handled
// strictly in delivery order and no failure stops the loop; it exits only
// when its context is cancelled.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rsi-engine/internal/codec"
	"rsi-engine/internal/indicator"
	"rsi-engine/internal/logger"
	"rsi-engine/internal/metrics"
	"rsi-engine/internal/model"

	"github.com/prometheus/client_golang/prometheus"
)

// Config wires a Pipeline to its collaborators.
type Config struct {
	Source   model.MessageSource
	Sink     model.MessageSink
	Registry *indicator.Registry
	OutTopic string

	Logger  *slog.Logger          // defaults to slog.Default()
	Metrics *metrics.Metrics      // defaults to collectors on a private registry
	Health  *metrics.HealthStatus // optional
}

// Pipeline is the single-worker RSI stage.
type Pipeline struct {
	src      model.MessageSource
	sink     model.MessageSink
	registry *indicator.Registry
	outTopic string

	log    *slog.Logger
	prom   *metrics.Metrics
	health *metrics.HealthStatus
}

// New creates a Pipeline. Source, Sink and Registry are required.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Source == nil || cfg.Sink == nil || cfg.Registry == nil {
		return nil, errors.New("pipeline: source, sink and registry are required")
	}
	if cfg.OutTopic == "" {
		return nil, errors.New("pipeline: outbound topic is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewMetrics(prometheus.NewRegistry())
	}
	return &Pipeline{
		src:      cfg.Source,
		sink:     cfg.Sink,
		registry: cfg.Registry,
		outTopic: cfg.OutTopic,
		log:      cfg.Logger,
		prom:     cfg.Metrics,
		health:   cfg.Health,
	}, nil
}

// Registry returns the pipeline-owned registry. Not safe to use while Run
// is active on another goroutine.
func (p *Pipeline) Registry() *indicator.Registry { return p.registry }

// Run consumes messages until ctx is cancelled. Receive errors are logged
// and the loop continues; the transport is expected to reconnect itself.
func (p *Pipeline) Run(ctx context.Context) error {
	p.log.Info("listening for trade data", slog.String("out_topic", p.outTopic))
	for {
		msg, err := p.src.Next(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			p.prom.ReceiveErrors.Inc()
			p.log.Error("transport receive failed", slog.String("reason", "receive_error"), slog.Any("err", err))
			continue
		}

		p.Handle(ctx, msg)

		if err := p.src.Commit(ctx, msg); err != nil && ctx.Err() == nil {
			p.log.Warn("commit failed", slog.String("msg_id", msg.ID), slog.Any("err", err))
		}
	}
}

// Handle processes one inbound message and reports its outcome.
func (p *Pipeline) Handle(ctx context.Context, msg model.Message) Outcome {
	ctx = logger.WithTraceID(ctx, logger.GenerateTraceID(msg.Topic, msg.ID))
	p.prom.MessagesTotal.Inc()
	if p.health != nil {
		p.health.SetLastMessageTime(time.Now())
	}

	outcome, err := p.handle(ctx, msg)
	p.prom.OutcomesTotal.WithLabelValues(outcome.String()).Inc()
	if outcome.Failed() {
		attrs := append([]any{
			slog.String("reason", outcome.String()),
			slog.String("msg_id", msg.ID),
			slog.Any("err", err),
		}, logger.LogWithTrace(ctx)...)
		p.log.Error("message dropped", attrs...)
	}
	return outcome
}

func (p *Pipeline) handle(ctx context.Context, msg model.Message) (Outcome, error) {
	trade, err := codec.DecodeTrade(msg.Payload)
	switch {
	case errors.Is(err, codec.ErrEmptyPayload):
		return OutcomeEmptyPayload, err
	case errors.Is(err, codec.ErrNotText):
		return OutcomeNotText, err
	case err != nil:
		return OutcomeParseError, err
	}

	if !p.registry.Tracked(trade.TokenAddress) {
		return OutcomeFiltered, nil
	}

	start := time.Now()
	engine := p.registry.GetOrCreate(trade.TokenAddress)
	rsi, ok := engine.Record(trade.PriceInSol)
	p.prom.IndicatorComputeDur.Observe(time.Since(start).Seconds())
	p.prom.TrackedInstruments.Set(float64(p.registry.Len()))
	if p.health != nil {
		p.health.SetInstruments(p.registry.Len())
	}
	if !ok {
		return OutcomeGated, nil
	}

	ev := model.NewIndicatorEvent(trade, rsi)
	payload, err := codec.EncodeIndicator(ev)
	if err != nil {
		return OutcomeEncodeError, err
	}

	sendStart := time.Now()
	err = p.sink.Send(ctx, p.outTopic, ev.Key(), payload)
	p.prom.SendDur.Observe(time.Since(sendStart).Seconds())
	if err != nil {
		return OutcomeSendError, fmt.Errorf("send %s: %w", ev.TokenAddress, err)
	}

	p.prom.IndicatorsTotal.Inc()
	p.log.Debug("rsi emitted",
		slog.String("token", ev.TokenAddress),
		slog.String("price", fmt.Sprintf("%.6f", ev.Price)),
		slog.String("rsi", fmt.Sprintf("%.2f", ev.RSI)),
	)
	return OutcomeEmitted, nil
}
