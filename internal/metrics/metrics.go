package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/OldStager01/joyce/pkg/models"
)

// Metrics holds the counters of one run. It uses its own registry so the
// textfile only carries pipeline series.
type Metrics struct {
	registry *prometheus.Registry

	units          *prometheus.CounterVec
	phaseDuration  *prometheus.GaugeVec
	circuitState   *prometheus.GaugeVec
	lastRun        prometheus.Gauge
	lastRunSuccess prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		units: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "joyce_units_total",
			Help: "Units of work by phase and outcome.",
		}, []string{"phase", "status"}),
		phaseDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "joyce_phase_duration_seconds",
			Help: "Wall time spent in each phase of the last run.",
		}, []string{"phase"}),
		circuitState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "joyce_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
		}, []string{"name"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "joyce_last_run_timestamp_seconds",
			Help: "Unix time the last run finished.",
		}),
		lastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "joyce_last_run_success",
			Help: "1 if the last run completed without a contract violation.",
		}),
	}

	m.registry.MustRegister(m.units, m.phaseDuration, m.circuitState, m.lastRun, m.lastRunSuccess)
	return m
}

func (m *Metrics) ObserveUnit(phase string, result models.UnitResult) {
	m.units.WithLabelValues(phase, string(result.Status)).Inc()
}

func (m *Metrics) ObservePhase(phase string, d time.Duration) {
	m.phaseDuration.WithLabelValues(phase).Set(d.Seconds())
}

func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.circuitState.WithLabelValues(name).Set(float64(state))
}

func (m *Metrics) RunFinished(at time.Time, success bool) {
	m.lastRun.Set(float64(at.Unix()))
	if success {
		m.lastRunSuccess.Set(1)
	} else {
		m.lastRunSuccess.Set(0)
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the metrics for the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
