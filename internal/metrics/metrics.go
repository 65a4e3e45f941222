package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Gauges holds the watch-mode Prometheus metrics. Values are replaced
// wholesale on every poll cycle.
type Gauges struct {
	MigrationsTotal      prometheus.Gauge
	MigrationsCompleted  prometheus.Gauge
	MigrationsInProgress prometheus.Gauge
	MigrationsPending    prometheus.Gauge
	MigrationsFailed     prometheus.Gauge
}

// NewGauges creates and registers the watch gauges with the given
// registry.
func NewGauges(reg prometheus.Registerer) *Gauges {
	g := &Gauges{
		MigrationsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vmtree_migration_datavolumes_total",
			Help: "Number of migration-labeled DataVolumes observed in the last poll.",
		}),
		MigrationsCompleted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vmtree_migration_datavolumes_completed",
			Help: "Number of migration DataVolumes in Succeeded or Bound phase.",
		}),
		MigrationsInProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vmtree_migration_datavolumes_in_progress",
			Help: "Number of migration DataVolumes importing, cloning or running.",
		}),
		MigrationsPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vmtree_migration_datavolumes_pending",
			Help: "Number of migration DataVolumes pending or waiting for first consumer.",
		}),
		MigrationsFailed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vmtree_migration_datavolumes_failed",
			Help: "Number of migration DataVolumes in Failed phase.",
		}),
	}

	reg.MustRegister(
		g.MigrationsTotal,
		g.MigrationsCompleted,
		g.MigrationsInProgress,
		g.MigrationsPending,
		g.MigrationsFailed,
	)

	return g
}
