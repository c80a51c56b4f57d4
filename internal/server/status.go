package server

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Healthz returns 200 OK while the node is running.
func (n *Node) Healthz(w http.ResponseWriter, _ *http.Request) {
	if !n.Running() {
		http.Error(w, "stopped", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		n.logger.Warn("failed to write healthz response", zap.Error(err))
	}
}

type infoResponse struct {
	Label       string    `json:"label"`
	Peers       []string  `json:"peers"`
	SeenEntries int       `json:"seen_entries"`
	Running     bool      `json:"running"`
	Uptime      float64   `json:"uptime_seconds"`
	Now         time.Time `json:"now"`
}

// Info writes a JSON summary of the node state.
func (n *Node) Info(w http.ResponseWriter, _ *http.Request) {
	data, err := json.Marshal(infoResponse{
		Label:       n.label,
		Peers:       n.Peers(),
		SeenEntries: n.SeenCount(),
		Running:     n.Running(),
		Uptime:      n.metrics.Uptime().Seconds(),
		Now:         n.now(),
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(data); err != nil {
		n.logger.Warn("failed to write info response", zap.Error(err))
	}
}

// StatusMux mounts /healthz, /info and /metrics for this node.
func (n *Node) StatusMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/healthz", n.metrics.Instrument("healthz", http.HandlerFunc(n.Healthz)))
	mux.Handle("/info", n.metrics.Instrument("info", http.HandlerFunc(n.Info)))
	mux.Handle("/metrics", n.metrics.Handler())
	return mux
}
