// Package gateway fans emitted RSI events out to dashboard clients over
// WebSocket and serves the latest and archived values over REST.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"

	"rsi-engine/internal/codec"
	"rsi-engine/internal/metrics"
	"rsi-engine/internal/model"
)

// clientBuffer is the per-client outbound queue depth.
const clientBuffer = 256

// Archive stores emitted events for the history endpoint.
type Archive interface {
	Append(ctx context.Context, ev model.IndicatorEvent) error
	Recent(ctx context.Context, token string, limit int) ([]model.IndicatorEvent, error)
}

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub tracks connected clients and the latest event per instrument.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	latest  map[string]model.IndicatorEvent

	archive Archive // optional
	prom    *metrics.GatewayMetrics
	log     *slog.Logger
}

// NewHub creates a Hub. archive may be nil.
func NewHub(archive Archive, prom *metrics.GatewayMetrics, log *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		latest:  make(map[string]model.IndicatorEvent),
		archive: archive,
		prom:    prom,
		log:     log,
	}
}

// Consume reads indicator events from src until ctx is cancelled.
// Malformed records are logged and skipped.
func (h *Hub) Consume(ctx context.Context, src model.MessageSource) error {
	for {
		msg, err := src.Next(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			h.log.Error("transport receive failed", slog.Any("err", err))
			continue
		}

		ev, err := codec.DecodeIndicator(msg.Payload)
		if err != nil {
			h.log.Warn("skipping malformed indicator event", slog.String("msg_id", msg.ID), slog.Any("err", err))
		} else {
			h.Publish(ctx, ev)
		}

		if err := src.Commit(ctx, msg); err != nil && ctx.Err() == nil {
			h.log.Warn("commit failed", slog.String("msg_id", msg.ID), slog.Any("err", err))
		}
	}
}

// Publish archives ev, records it as the latest value for its instrument,
// and broadcasts it to every client.
func (h *Hub) Publish(ctx context.Context, ev model.IndicatorEvent) {
	if h.archive != nil {
		if err := h.archive.Append(ctx, ev); err != nil {
			h.log.Warn("history append failed", slog.String("token", ev.TokenAddress), slog.Any("err", err))
		}
	}

	h.mu.Lock()
	h.latest[ev.TokenAddress] = ev
	h.mu.Unlock()
	h.prom.Events.Inc()

	buf, err := json.Marshal(envelope{Type: "update", Data: ev})
	if err != nil {
		h.log.Error("update encode failed", slog.Any("err", err))
		return
	}
	h.broadcast(buf)
}

// broadcast never blocks: a client whose buffer is full misses buf.
func (h *Hub) broadcast(buf []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- buf:
		default:
			h.prom.DropsTotal.Inc()
		}
	}
}

// Latest returns the latest event per instrument, sorted by instrument.
func (h *Hub) Latest() []model.IndicatorEvent {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latestLocked()
}

func (h *Hub) latestLocked() []model.IndicatorEvent {
	out := make([]model.IndicatorEvent, 0, len(h.latest))
	for _, ev := range h.latest {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TokenAddress < out[j].TokenAddress })
	return out
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// register adds c with the initial snapshot queued ahead of any update.
func (h *Hub) register(c *Client) {
	h.mu.Lock()
	initial, err := json.Marshal(envelope{Type: "initial", Data: h.latestLocked()})
	if err != nil {
		initial = []byte(`{"type":"initial","data":[]}`)
	}
	c.send <- initial
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()

	if err != nil {
		h.log.Error("initial encode failed", slog.Any("err", err))
	}
	h.prom.Clients.Set(float64(n))
	h.log.Info("ws client connected", slog.Int("clients", n))
}

// unregister removes c and closes its queue. Safe to call twice.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	n := len(h.clients)
	h.mu.Unlock()

	h.prom.Clients.Set(float64(n))
	h.log.Info("ws client disconnected", slog.Int("clients", n))
}
