package gateway

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// dashboard is served from a separate dev origin
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RunListFunc returns recent run records, newest first. The result is
// encoded to JSON as-is.
type RunListFunc func(limit int) (any, error)

// NewRouter builds the HTTP surface: the WebSocket endpoint plus a small
// read-only JSON API. runs may be nil when no journal is configured.
func NewRouter(hub *Hub, runs RunListFunc, started time.Time) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[gateway] ws upgrade failed: %v", err)
			return
		}
		hub.HandleConn(conn)
	})

	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"uptime":    time.Since(started).Round(time.Second).String(),
			"wsClients": hub.ClientCount(),
		})
	})

	mux.HandleFunc("/api/v1/result", func(w http.ResponseWriter, r *http.Request) {
		latest := hub.Latest()
		if latest == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no run completed yet"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(latest)
	})

	mux.HandleFunc("/api/v1/runs", func(w http.ResponseWriter, r *http.Request) {
		if runs == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "journal disabled"})
			return
		}
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
				limit = n
			}
		}
		out, err := runs(limit)
		if err != nil {
			log.Printf("[gateway] list runs: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "journal read failed"})
			return
		}
		writeJSON(w, http.StatusOK, out)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
