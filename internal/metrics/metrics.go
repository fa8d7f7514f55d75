// Package metrics exposes the admin HTTP surface: Prometheus counters and
// gauges for connected clients, command throughput, and pause state, plus
// a /healthz liveness endpoint. Grounded on the teacher's cmd/cc-backend
// server.go (mux.NewRouter + http.Server with fixed read/write timeouts).
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry wraps the prometheus collectors the rest of the server updates
// and satisfies worker.Metrics.
type Registry struct {
	clientsConnected prometheus.Gauge
	operationsTotal  *prometheus.CounterVec
	pauseActive      prometheus.Gauge

	server *http.Server
}

// New constructs a Registry with its own prometheus.Registerer, so tests
// can build more than one instance without colliding on the default
// global registry. accepting is polled by /healthz on every request; it
// is a plain callback (rather than an *internal/supervisor.Supervisor
// field) so this package never depends on the concurrency core.
func New(accepting func() bool) *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		clientsConnected: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "treedb_clients_connected",
			Help: "Number of client connections currently enrolled.",
		}),
		operationsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "treedb_operations_total",
			Help: "Total number of protocol commands interpreted, by operation.",
		}, []string{"op"}),
		pauseActive: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "treedb_pause_active",
			Help: "1 while the pause gate is stopped, 0 while clients are running.",
		}),
	}

	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if accepting != nil && !accepting() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("draining\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	r.server = &http.Server{
		ReadTimeout:  20 * time.Second,
		WriteTimeout: 20 * time.Second,
		Handler:      router,
	}

	return r
}

// ClientConnected implements worker.Metrics.
func (r *Registry) ClientConnected() { r.clientsConnected.Inc() }

// ClientDisconnected implements worker.Metrics.
func (r *Registry) ClientDisconnected() { r.clientsConnected.Dec() }

// RecordOp implements worker.Metrics.
func (r *Registry) RecordOp(op string) { r.operationsTotal.WithLabelValues(op).Inc() }

// SetPauseActive reflects the pause gate's current state, called by the
// operator console around its s/g commands.
func (r *Registry) SetPauseActive(active bool) {
	if active {
		r.pauseActive.Set(1)
	} else {
		r.pauseActive.Set(0)
	}
}

// Serve starts the admin HTTP server on addr and blocks until it exits.
// It returns nil once Shutdown has closed the server.
func (r *Registry) Serve(addr string) error {
	r.server.Addr = addr
	if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the admin HTTP server.
func (r *Registry) Shutdown(ctx context.Context) error {
	return r.server.Shutdown(ctx)
}
