// Package metrics exposes Prometheus collectors for the async primitives.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics holds the collectors on a private registry. It implements
// async.Observer.
type Metrics struct {
	registry *prometheus.Registry

	pollTicks    *prometheus.CounterVec
	pollFailures *prometheus.CounterVec
	stale        *prometheus.CounterVec
	mutations    *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		pollTicks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scrapedeck_poll_ticks_total",
				Help: "Total number of applied fetches, labeled by source.",
			},
			[]string{"poller"},
		),
		pollFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scrapedeck_poll_failures_total",
				Help: "Total number of failed fetches, labeled by source.",
			},
			[]string{"poller"},
		),
		stale: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scrapedeck_stale_responses_total",
				Help: "Total number of responses dropped as stale, labeled by source.",
			},
			[]string{"poller"},
		),
		mutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scrapedeck_mutations_total",
				Help: "Total number of write calls, labeled by mutation and result.",
			},
			[]string{"mutation", "result"},
		),
	}
}

// ObserveFetch counts an applied fetch.
func (m *Metrics) ObserveFetch(name string, err error) {
	m.pollTicks.WithLabelValues(label(name)).Inc()
	if err != nil {
		m.pollFailures.WithLabelValues(label(name)).Inc()
	}
}

// ObserveStale counts a dropped response.
func (m *Metrics) ObserveStale(name string) {
	m.stale.WithLabelValues(label(name)).Inc()
}

// ObserveMutation counts a write.
func (m *Metrics) ObserveMutation(name string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.mutations.WithLabelValues(label(name), result).Inc()
}

// Handler returns an http.Handler exposing the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics shutdown: %w", err)
		}
		return nil
	}
}

func label(name string) string {
	if name == "" {
		return "unnamed"
	}
	return name
}
