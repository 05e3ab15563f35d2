// Package metrics holds the prometheus collectors shared by the registry,
// the execution engine and the call router.
package metrics

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var metricsNamespace = "sqlbridge"

// Outcome labels for CallsCounter.
const (
	OutcomeSuccess        = "success"
	OutcomeError          = "error"
	OutcomeNotImplemented = "not_implemented"
)

// Collection groups the collectors exported by sqlbridge.
type Collection struct {
	OpenSessions      prometheus.Gauge
	SessionsOpened    prometheus.Counter
	CallsCounter      *prometheus.CounterVec
	StatementDuration *prometheus.HistogramVec
	BatchOperations   *prometheus.CounterVec
}

// Metrics is the process-wide collection, registered with the default registerer.
var Metrics = Collection{
	OpenSessions: promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "open_sessions",
		Help:      "Number of database sessions currently registered.",
	}),
	SessionsOpened: promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "sessions_opened_total",
		Help:      "Number of sessions created, excluding single-instance reopens.",
	}),
	CallsCounter: promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "method_calls_total",
			Help:      "Number of handled method calls by method and outcome.",
		},
		[]string{"method", "outcome"},
	),
	StatementDuration: promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "statement_duration_seconds",
			Help:      "Time spent executing a single SQL statement, connection setup included.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method"},
	),
	BatchOperations: promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "batch_operations_total",
			Help:      "Number of batch operations processed by outcome.",
		},
		[]string{"outcome"},
	),
}

// Handler serves the default registry in the prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// StartServer serves /metrics on addr in a new goroutine. Stop it with
// Shutdown or Close on the returned server.
func StartServer(addr string, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil {
			if errors.Is(err, http.ErrServerClosed) {
				logger.Debug("metrics server closed")
			} else {
				logger.Error("metrics server failed", "addr", addr, "error", err)
			}
		}
	}()
	return server
}
