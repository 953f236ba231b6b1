package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loanflow_api_requests_total",
			Help: "Total number of backend API requests issued",
		},
		[]string{"operation", "outcome"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "loanflow_api_request_duration_seconds",
			Help: "Duration of backend API requests in seconds",
		},
		[]string{"operation"},
	)

	FlowTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loanflow_flow_transitions_total",
			Help: "Total number of flow state transitions",
		},
		[]string{"flow", "to"},
	)
)

// Serve exposes /metrics on addr. Runs until the listener fails; callers
// start it in a goroutine when metrics are enabled.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
