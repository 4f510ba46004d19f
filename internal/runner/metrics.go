package runner

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records per-run gauges for the Prometheus textfile-collector
// pattern: a batch process writes its final values to a file that a
// node exporter scrapes.
type Metrics struct {
	registry *prometheus.Registry

	records       prometheus.Gauge
	newBusinesses *prometheus.GaugeVec
	ledgerSize    prometheus.Gauge
	duration      prometheus.Gauge
	lastRun       prometheus.Gauge
}

// NewMetrics creates and registers the run metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fbpulse_run_records",
			Help: "Tracked-sector records observed in the last run.",
		}),
		newBusinesses: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fbpulse_run_new_businesses",
			Help: "Newly observed business identifiers in the last run.",
		}, []string{"sector"}),
		ledgerSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fbpulse_ledger_ids",
			Help: "Total identifiers recorded in the ledger after the run.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fbpulse_run_duration_seconds",
			Help: "Wall-clock duration of the last run.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fbpulse_last_run_timestamp_seconds",
			Help: "Unix timestamp of the last completed run.",
		}),
	}

	m.registry.MustRegister(m.records, m.newBusinesses, m.ledgerSize, m.duration, m.lastRun)

	return m
}

// WriteTextfile dumps the registry in the Prometheus text exposition
// format, atomically, for a textfile collector to pick up.
func (m *Metrics) WriteTextfile(path string) error {
	err := prometheus.WriteToTextfile(path, m.registry)
	if err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}

	return nil
}
