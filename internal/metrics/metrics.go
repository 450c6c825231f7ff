package metrics

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics for the RSI engine.
type Metrics struct {
	// Pipeline
	MessagesTotal       prometheus.Counter
	OutcomesTotal       *prometheus.CounterVec // labels: outcome
	ReceiveErrors       prometheus.Counter
	IndicatorsTotal     prometheus.Counter
	IndicatorComputeDur prometheus.Histogram
	SendDur             prometheus.Histogram
	TrackedInstruments  prometheus.Gauge

	// Transport circuit breaker
	SinkCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	SinkCircuitBreakerTrips prometheus.Counter
}

// NewMetrics creates the engine collectors and registers them on reg.
// Pass prometheus.DefaultRegisterer in production, a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MessagesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rsiengine_messages_total",
			Help: "Total inbound trade messages received",
		}),
		OutcomesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rsiengine_outcomes_total",
			Help: "Per-message pipeline outcomes (emitted, gated, filtered, error kinds)",
		}, []string{"outcome"}),
		ReceiveErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rsiengine_receive_errors_total",
			Help: "Transport receive failures",
		}),
		IndicatorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rsiengine_indicators_total",
			Help: "Total RSI events delivered to the outbound transport",
		}),
		IndicatorComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rsiengine_indicator_compute_duration_seconds",
			Help:    "Window update + RSI compute latency per trade",
			Buckets: []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001},
		}),
		SendDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rsiengine_send_duration_seconds",
			Help:    "Outbound transport send latency",
			Buckets: prometheus.DefBuckets,
		}),
		TrackedInstruments: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rsiengine_tracked_instruments",
			Help: "Instruments with a live price window",
		}),

		SinkCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rsiengine_sink_circuit_breaker_state",
			Help: "Outbound circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		SinkCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rsiengine_sink_circuit_breaker_trips_total",
			Help: "Times the outbound circuit breaker tripped open",
		}),
	}

	reg.MustRegister(
		m.MessagesTotal,
		m.OutcomesTotal,
		m.ReceiveErrors,
		m.IndicatorsTotal,
		m.IndicatorComputeDur,
		m.SendDur,
		m.TrackedInstruments,
		m.SinkCircuitBreakerState,
		m.SinkCircuitBreakerTrips,
	)

	return m
}

// GatewayMetrics holds the Prometheus metrics for the dashboard gateway.
type GatewayMetrics struct {
	Clients    prometheus.Gauge
	DropsTotal prometheus.Counter
	Events     prometheus.Counter
}

// NewGatewayMetrics creates the gateway collectors and registers them on reg.
func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	m := &GatewayMetrics{
		Clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rsigateway_ws_clients",
			Help: "Connected WebSocket clients",
		}),
		DropsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rsigateway_ws_drops_total",
			Help: "Updates dropped for slow WebSocket clients",
		}),
		Events: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rsigateway_events_total",
			Help: "RSI events consumed by the gateway",
		}),
	}

	reg.MustRegister(m.Clients, m.DropsTotal, m.Events)
	return m
}

// HealthStatus represents the service health.
type HealthStatus struct {
	mu sync.RWMutex

	Service            string    `json:"service"`
	TransportConnected bool      `json:"transport_connected"`
	TransportLatencyMs float64   `json:"transport_latency_ms"`
	LastMessageTime    time.Time `json:"last_message_time"`
	Instruments        int       `json:"instruments"`
	LastCheckAt        time.Time `json:"last_check_at"`
	StartedAt          time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus(service string) *HealthStatus {
	return &HealthStatus{
		Service:   service,
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetLastMessageTime(t time.Time) {
	h.mu.Lock()
	h.LastMessageTime = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetInstruments(n int) {
	h.mu.Lock()
	h.Instruments = n
	h.mu.Unlock()
}

// CheckTransport runs ping and records latency + connectivity.
func (h *HealthStatus) CheckTransport(ctx context.Context, ping func(context.Context) error) {
	start := time.Now()
	err := ping(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.TransportConnected = err == nil
	h.TransportLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic transport checks until ctx is done.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, ping func(context.Context) error, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				h.CheckTransport(probeCtx, ping)
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK
	if !h.TransportConnected {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}

	msgAge := ""
	if !h.LastMessageTime.IsZero() {
		msgAge = time.Since(h.LastMessageTime).Round(time.Millisecond).String()
	}

	status := struct {
		Status             string  `json:"status"`
		Service            string  `json:"service"`
		Uptime             string  `json:"uptime"`
		TransportConnected bool    `json:"transport_connected"`
		TransportLatencyMs float64 `json:"transport_latency_ms"`
		LastMessageTime    string  `json:"last_message_time"`
		MessageAge         string  `json:"message_age"`
		Instruments        int     `json:"instruments"`
		LastCheckAt        string  `json:"last_check_at"`
	}{
		Status:             overallStatus,
		Service:            h.Service,
		Uptime:             time.Since(h.StartedAt).Round(time.Second).String(),
		TransportConnected: h.TransportConnected,
		TransportLatencyMs: h.TransportLatencyMs,
		LastMessageTime:    h.LastMessageTime.Format(time.RFC3339),
		MessageAge:         msgAge,
		Instruments:        h.Instruments,
		LastCheckAt:        h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates a metrics and health server backed by gatherer.
func NewServer(addr string, health *HealthStatus, gatherer prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/healthz", health)

	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Handler returns the server's mux, for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
