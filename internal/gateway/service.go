package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"rsi-engine/config"
	"rsi-engine/internal/metrics"
	"rsi-engine/internal/store/sqlite"
	"rsi-engine/internal/transport"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// Service consumes the RSI topic and serves dashboard clients.
type Service struct {
	cfg *config.Config
	log *slog.Logger

	hub     *Hub
	source  transport.Source
	history *sqlite.History // nil when archiving is disabled
	srv     *http.Server
}

// New connects to the broker and opens the history archive. An empty
// SQLitePath disables the archive; an archive that fails to open is
// logged and skipped.
func New(cfg *config.Config, log *slog.Logger) (*Service, error) {
	return newService(cfg, log, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

func newService(cfg *config.Config, log *slog.Logger, reg prometheus.Registerer, gatherer prometheus.Gatherer) (*Service, error) {
	svc := &Service{cfg: cfg, log: log}

	var archive Archive
	if cfg.SQLitePath != "" {
		h, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			log.Warn("history archive disabled", slog.Any("err", err))
		} else {
			svc.history = h
			archive = h
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	src, err := transport.OpenSource(ctx, transport.Options{
		Kind:     cfg.Transport,
		Brokers:  cfg.Brokers,
		Password: cfg.RedisPassword,
		Topic:    cfg.RSITopic,
		Group:    cfg.GatewayGroup,
		Consumer: cfg.ConsumerName,
	})
	if err != nil {
		if svc.history != nil {
			svc.history.Close()
		}
		return nil, err
	}
	svc.source = src

	svc.hub = NewHub(archive, metrics.NewGatewayMetrics(reg), log)

	mux := http.NewServeMux()
	RegisterRoutes(mux, svc.hub, cfg.HistoryLimit)
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	svc.srv = &http.Server{Addr: cfg.GatewayAddr, Handler: mux}

	return svc, nil
}

// Hub returns the service's hub.
func (svc *Service) Hub() *Hub { return svc.hub }

// Run serves HTTP and consumes events until ctx is cancelled or the HTTP
// server fails.
func (svc *Service) Run(ctx context.Context) error {
	svc.log.Info("gateway started",
		slog.String("addr", svc.cfg.GatewayAddr),
		slog.String("topic", svc.cfg.RSITopic),
		slog.String("group", svc.cfg.GatewayGroup),
		slog.Bool("history", svc.history != nil),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return svc.hub.Consume(gctx, svc.source)
	})

	g.Go(func() error {
		if err := svc.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return svc.srv.Shutdown(shutCtx)
	})

	err := g.Wait()
	svc.shutdown()
	return err
}

func (svc *Service) shutdown() {
	if err := svc.source.Close(); err != nil {
		svc.log.Warn("source close", slog.Any("err", err))
	}
	if svc.history != nil {
		svc.history.Close()
	}
	svc.log.Info("gateway shutdown complete")
}
