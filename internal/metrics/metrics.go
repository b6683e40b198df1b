// Public domain.

// Package metrics exposes Prometheus collectors for the polling loops.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/saft-obs/saftlog/internal/errs"
)

// Collector bundles the loop metrics of one program.
type Collector struct {
	gatherer prometheus.Gatherer
	program  string

	Cycles        *prometheus.CounterVec
	CycleErrors   *prometheus.CounterVec
	CycleDuration *prometheus.HistogramVec
	Targets       prometheus.Gauge
	Files         prometheus.Gauge
	Stacked       prometheus.Gauge
}

// New registers the collectors against reg, defaulting to the global
// registry when reg is nil.  Registering twice against the same registry
// reuses the existing collectors.
func New(reg prometheus.Registerer, program string) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	c := &Collector{gatherer: gatherer, program: program}
	var err error

	if c.Cycles, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "saft_cycles_total",
		Help: "Completed polling cycles.",
	}, []string{"program"})); err != nil {
		return nil, err
	}
	if c.CycleErrors, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "saft_cycle_errors_total",
		Help: "Errors met during polling cycles, by kind (data, io, config, tool).",
	}, []string{"program", "kind"})); err != nil {
		return nil, err
	}
	if c.CycleDuration, err = registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "saft_cycle_duration_seconds",
		Help:    "Time spent in one polling cycle, excluding the sleep.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"program"})); err != nil {
		return nil, err
	}
	if c.Targets, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "saft_targets",
		Help: "Targets in the latest nightly snapshot.",
	})); err != nil {
		return nil, err
	}
	if c.Files, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "saft_files",
		Help: "Files currently known in the watched directory.",
	})); err != nil {
		return nil, err
	}
	if c.Stacked, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "saft_stacked_frames",
		Help: "Frames accumulated in the live stack.",
	})); err != nil {
		return nil, err
	}
	return c, nil
}

// ObserveCycle records one finished cycle.
func (c *Collector) ObserveCycle(d time.Duration) {
	c.Cycles.WithLabelValues(c.program).Inc()
	c.CycleDuration.WithLabelValues(c.program).Observe(d.Seconds())
}

// CountError records err under its kind.
func (c *Collector) CountError(err error) {
	c.CycleErrors.WithLabelValues(c.program, Kind(err)).Inc()
}

// Kind is the metric label for err.
func Kind(err error) string {
	switch {
	case errors.Is(err, errs.ErrData):
		return "data"
	case errors.Is(err, errs.ErrIO):
		return "io"
	case errors.Is(err, errs.ErrConfig):
		return "config"
	case errors.Is(err, errs.ErrTool):
		return "tool"
	}
	return "other"
}

// Handler serves the registry this collector was registered against.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.  An empty addr does
// nothing.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errs.IO("metrics.Serve", addr, err)
	}
	return nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("counter already registered with incompatible type: %w", err)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("histogram already registered with incompatible type: %w", err)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, g prometheus.Gauge) (prometheus.Gauge, error) {
	if err := reg.Register(g); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("gauge already registered with incompatible type: %w", err)
		}
		return nil, err
	}
	return g, nil
}
