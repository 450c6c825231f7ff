package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
)

// maxHistoryLimit bounds the rows a single /api/history request may ask for.
const maxHistoryLimit = 1000

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// RegisterRoutes registers all HTTP routes on mux. historyLimit is the
// default row count for /api/history.
func RegisterRoutes(mux *http.ServeMux, hub *Hub, historyLimit int) {
	serveWS := func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.log.Warn("ws upgrade failed", slog.Any("err", err))
			return
		}
		newClient(hub, conn).serve()
	}
	mux.HandleFunc("/ws", serveWS)

	// Dashboards may also connect on the bare host (ws://host:port).
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" || !websocket.IsWebSocketUpgrade(r) {
			http.NotFound(w, r)
			return
		}
		serveWS(w, r)
	})

	// REST: latest value per instrument
	mux.HandleFunc("/api/data", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		writeJSON(w, http.StatusOK, hub.Latest())
	})

	// REST: archived values for one instrument, oldest first
	mux.HandleFunc("/api/history", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		if hub.archive == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "history disabled"})
			return
		}
		token := r.URL.Query().Get("token")
		if token == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "token is required"})
			return
		}
		limit := historyLimit
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
				return
			}
			limit = n
		}
		if limit > maxHistoryLimit {
			limit = maxHistoryLimit
		}

		events, err := hub.archive.Recent(r.Context(), token, limit)
		if err != nil {
			hub.log.Error("history query failed", slog.String("token", token), slog.Any("err", err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, events)
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
}
