// Package metrics exposes optional Prometheus instrumentation for a
// running region: tick duration, active vehicle count, and lock-manager
// queue depth. None of this sits on the per-tick hot path's allocation
// budget beyond the label-free counters/gauges themselves — the host
// registers a Collector with its own registry and calls Observe* around
// its own Region.Step loop.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/railwright/amhs-core/internal/lockmgr"
)

// Collector holds the Prometheus instruments for one simulation region.
type Collector struct {
	TickDuration   prometheus.Histogram
	ActiveVehicles prometheus.Gauge
	QueueDepth     *prometheus.GaugeVec
	GrantedCount   *prometheus.GaugeVec
}

// NewCollector builds a Collector with the given namespace (typically the
// fab or region name) so multiple regions can register distinct metric
// families under one process.
func NewCollector(namespace string) *Collector {
	return &Collector{
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sim",
			Name:      "tick_duration_seconds",
			Help:      "Wall-clock duration of one Region.Step call.",
			Buckets:   prometheus.DefBuckets,
		}),
		ActiveVehicles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sim",
			Name:      "active_vehicles",
			Help:      "Number of vehicles with moving_status == MOVING.",
		}),
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "lockmgr",
			Name:      "queue_depth",
			Help:      "Pending (non-granted) requests per merge node.",
		}, []string{"node"}),
		GrantedCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "lockmgr",
			Name:      "granted_count",
			Help:      "Vehicles currently holding a merge node's lock.",
		}, []string{"node"}),
	}
}

// Register adds every instrument to reg.
func (c *Collector) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{c.TickDuration, c.ActiveVehicles, c.QueueDepth, c.GrantedCount}
	for _, coll := range collectors {
		if err := reg.Register(coll); err != nil {
			return err
		}
	}
	return nil
}

// ObserveTick records one tick's duration in seconds.
func (c *Collector) ObserveTick(seconds float64) {
	c.TickDuration.Observe(seconds)
}

// SetActiveVehicles records the current moving-vehicle count.
func (c *Collector) SetActiveVehicles(n int) {
	c.ActiveVehicles.Set(float64(n))
}

// SampleLockManager refreshes the per-node queue depth and granted count
// gauges from locks's current state.
func (c *Collector) SampleLockManager(locks *lockmgr.Manager) {
	for _, node := range locks.MergeNodeNames() {
		c.QueueDepth.WithLabelValues(node).Set(float64(locks.QueueDepth(node)))
		c.GrantedCount.WithLabelValues(node).Set(float64(locks.GrantedCount(node)))
	}
}
