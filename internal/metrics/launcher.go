// Package metrics keeps Prometheus metrics about the supervised backend.
//
// Metrics are fed synchronously from the event bus and written to a
// node_exporter textfile on exit; the launcher itself listens on no port.
package metrics

import (
	"fmt"

	"github.com/balsim/btransfer-desktop/internal/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "btransfer"

// OutcomeReady labels a start attempt that reached the ready state.
const OutcomeReady = "ready"

var states = []string{"idle", "starting", "ready", "failed", "stopping", "stopped"}

// Recorder owns a registry with the launcher metrics.
type Recorder struct {
	registry *prometheus.Registry

	starts        *prometheus.CounterVec
	startup       prometheus.Histogram
	state         *prometheus.GaugeVec
	outputLines   *prometheus.CounterVec
	healthChecks  *prometheus.CounterVec
	healthLatency prometheus.Histogram
	shutdowns     *prometheus.CounterVec
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	r := &Recorder{
		registry: reg,
		starts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "starts_total",
			Help:      "Backend start attempts by outcome (ready or error code)",
		}, []string{"outcome"}),
		startup: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "startup_seconds",
			Help:      "Time from spawn to the readiness marker",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 6, 8, 10},
		}),
		state: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "state",
			Help:      "Current supervisor state (1 for the active state)",
		}, []string{"state"}),
		outputLines: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "output_lines_total",
			Help:      "Lines printed by the backend",
		}, []string{"source"}),
		healthChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "checks_total",
			Help:      "Server Status checks by reported status",
		}, []string{"status"}),
		healthLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "check_seconds",
			Help:      "Duration of Server Status checks",
			Buckets:   prometheus.DefBuckets,
		}),
		shutdowns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shutdowns_total",
			Help:      "Shutdown requests by reason",
		}, []string{"reason"}),
	}

	r.setState("idle")
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Attach feeds the recorder from bus. Events are recorded before Publish
// returns, so a textfile written right after the last event includes it.
// The returned function detaches the recorder.
func (r *Recorder) Attach(bus *events.Bus) func() {
	return bus.Observe(r.observe)
}

func (r *Recorder) observe(ev events.Event) {
	switch e := ev.(type) {
	case events.ServerStateChangedEvent:
		r.onStateChanged(e)
	case events.ServerOutputEvent:
		r.onOutput(e)
	case events.HealthCheckedEvent:
		r.onHealthChecked(e)
	case events.ShutdownRequestedEvent:
		r.onShutdown(e)
	}
}

func (r *Recorder) onStateChanged(e events.ServerStateChangedEvent) {
	r.setState(e.To)

	switch e.To {
	case "ready":
		r.starts.WithLabelValues(OutcomeReady).Inc()
		r.startup.Observe(e.StartupSeconds)
	case "failed":
		outcome := e.ErrorCode
		if outcome == "" {
			outcome = "unknown"
		}
		r.starts.WithLabelValues(outcome).Inc()
	}
}

func (r *Recorder) onOutput(e events.ServerOutputEvent) {
	r.outputLines.WithLabelValues(e.Source).Inc()
}

func (r *Recorder) onHealthChecked(e events.HealthCheckedEvent) {
	status := e.Status
	if e.Error != "" {
		status = "unreachable"
	}
	r.healthChecks.WithLabelValues(status).Inc()
	r.healthLatency.Observe(e.Seconds)
}

func (r *Recorder) onShutdown(e events.ShutdownRequestedEvent) {
	r.shutdowns.WithLabelValues(e.Reason).Inc()
}

func (r *Recorder) setState(current string) {
	for _, s := range states {
		v := 0.0
		if s == current {
			v = 1
		}
		r.state.WithLabelValues(s).Set(v)
	}
}

// WriteTextfile writes all metrics to path in the text exposition format,
// atomically, for the node_exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
