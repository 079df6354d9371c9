package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Alerts    int    `json:"activeAlerts"`
}

// handleHealth reports the monitoring rollup (C3): healthy, warning or
// critical, plus the count of currently unresolved alerts.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "critical"
	alerts := 0
	if s.collector != nil {
		status = s.collector.Rollup()
		alerts = len(s.collector.ActiveAlerts())
	}

	statusCode := http.StatusOK
	if status == "critical" {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, healthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Alerts:    alerts,
	})
}

// handleMetricsSnapshot returns the latest monitoring ring entry as JSON,
// distinct from the unauthenticated Prometheus exposition mounted on the
// process's metrics port.
func (s *Server) handleMetricsSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.collector == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "monitoring collector not initialized"})
		return
	}
	writeJSON(w, http.StatusOK, s.collector.Latest())
}

// handleEvents streams session lifecycle events as Server-Sent Events
// until the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.broker == nil {
		http.Error(w, "event broker not initialized", http.StatusServiceUnavailable)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	sub := s.broker.Subscribe()
	defer s.broker.Unsubscribe(sub)

	for {
		select {
		case event, ok := <-sub:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
