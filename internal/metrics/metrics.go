package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline collectors.
type Metrics struct {
	registry        *prometheus.Registry
	candidates      *prometheus.CounterVec
	batches         *prometheus.CounterVec
	events          *prometheus.CounterVec
	activeDownloads prometheus.GaugeFunc
}

// New registers collectors on a fresh registry. activeDownloads is read on
// every scrape; it may be nil.
func New(activeDownloads func() int64) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		candidates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leakscanner",
			Name:      "candidates_total",
			Help:      "Candidates by source and final state.",
		}, []string{"source", "state"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leakscanner",
			Name:      "batches_total",
			Help:      "Batch passes by source and outcome.",
		}, []string{"source", "outcome"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leakscanner",
			Name:      "events_total",
			Help:      "Emitted events by source and severity.",
		}, []string{"source", "severity"}),
	}
	reg.MustRegister(m.candidates, m.batches, m.events)
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if activeDownloads != nil {
		m.activeDownloads = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "leakscanner",
			Name:      "active_downloads",
			Help:      "Full downloads currently in flight.",
		}, func() float64 { return float64(activeDownloads()) })
		reg.MustRegister(m.activeDownloads)
	}
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Candidate counts a candidate reaching state.
func (m *Metrics) Candidate(source, state string) {
	if m == nil {
		return
	}
	m.candidates.WithLabelValues(source, state).Inc()
}

// Batch counts a finished pass.
func (m *Metrics) Batch(source, outcome string) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(source, outcome).Inc()
}

// Event counts an emitted event. Unscored events use "none".
func (m *Metrics) Event(source, severity string) {
	if m == nil {
		return
	}
	if severity == "" {
		severity = "none"
	}
	m.events.WithLabelValues(source, severity).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve listens on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		if logger != nil {
			logger.Info("metrics listening", "addr", addr)
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics shutdown: %w", err)
		}
		return nil
	}
}
