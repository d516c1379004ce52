package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/geometeo/weather-client/internal/observability"
	"github.com/geometeo/weather-client/internal/rtt"
)

// newDebugRouter exposes the session's observability surface: Prometheus
// metrics, a liveness probe, and the adaptive timeout estimator snapshot.
func newDebugRouter(estimator *rtt.Estimator, cachePing func() error) *mux.Router {
	router := mux.NewRouter()
	router.Handle("/metrics", observability.MetricsHandler()).Methods("GET")

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{"session": "healthy"}
		status := http.StatusOK
		if cachePing != nil {
			if err := cachePing(); err != nil {
				checks["cache"] = "unhealthy"
				status = http.StatusServiceUnavailable
			} else {
				checks["cache"] = "healthy"
			}
		}
		writeJSON(w, status, map[string]interface{}{
			"checks":    checks,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}).Methods("GET")

	router.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		if estimator == nil {
			writeJSON(w, http.StatusOK, map[string]string{"adaptive_timeout": "disabled"})
			return
		}
		snap := estimator.Snapshot()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"srtt":     snap.SRTT,
			"rttvar":   snap.RTTVar,
			"timeout":  snap.Timeout.Seconds(),
			"idle_sec": snap.Idle.Seconds(),
		})
	}).Methods("GET")

	return router
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
