// Package metrics exposes ram-sentinel's tick/warn/kill counters as
// Prometheus gauges and counters, served via an optional --metrics-addr
// HTTP endpoint.
//
// Grounded on other_examples' node_exporter pressure collector (the
// prometheus/client_golang Desc/registration idiom) — an ambient-stack
// component the distilled specification doesn't name but the teacher's
// domain (systems sampling) and the rest of the retrieval pack both
// support; see DESIGN.md.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles the metrics ram-sentinel's main loop and kill engine
// update. Its fields are plain Prometheus collectors; cmd/ram-sentinel
// keeps a nil *Registry when --metrics-addr is not set and checks for nil
// before each update.
type Registry struct {
	reg *prometheus.Registry

	Ticks          prometheus.Counter
	Warns          *prometheus.CounterVec
	KillsTriggered *prometheus.CounterVec
	KillsExecuted  *prometheus.CounterVec
	RSSFreed       prometheus.Counter
	LastPSI        prometheus.Gauge
}

// New constructs a fresh registry with all ram-sentinel metrics
// registered under it.
func New() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Registry{
		reg: reg,
		Ticks: factory.NewCounter(prometheus.CounterOpts{
			Name: "ram_sentinel_ticks_total",
			Help: "Total number of sampler check() invocations.",
		}),
		Warns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ram_sentinel_warns_total",
			Help: "Total number of warn-tier events emitted, by trigger.",
		}, []string{"trigger"}),
		KillsTriggered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ram_sentinel_kills_triggered_total",
			Help: "Total number of kill verdicts raised by the decision engine, by trigger.",
		}, []string{"trigger"}),
		KillsExecuted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ram_sentinel_kills_executed_total",
			Help: "Total number of processes actually terminated, by the signal that terminated them.",
		}, []string{"strategy"}),
		RSSFreed: factory.NewCounter(prometheus.CounterOpts{
			Name: "ram_sentinel_rss_freed_bytes_total",
			Help: "Cumulative RSS bytes freed by terminated victims.",
		}),
		LastPSI: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ram_sentinel_last_psi_pressure_percent",
			Help: "Most recently computed PSI memory pressure percentage.",
		}),
	}
}

// Serve starts an HTTP server exposing /metrics on addr, returning once
// ctx is cancelled. Intended to be run in its own goroutine.
func Serve(ctx context.Context, addr string, reg *Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg.reg, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics: serve %s: %w", addr, err)
	}
}
