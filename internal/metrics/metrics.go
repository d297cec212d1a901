// Package metrics provides Prometheus metrics for the filesystem cache.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sync phases
const (
	PhaseContainers = "containers"
	PhaseObjects    = "objects"
)

// Result labels
const (
	ResultImported = "imported"
	ResultSkipped  = "skipped"
	ResultSuccess  = "success"
	ResultFailed   = "failed"
)

var (
	syncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restfs_sync_runs_total",
			Help: "Total number of connect population runs",
		},
		[]string{"result"},
	)

	syncRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "restfs_sync_run_duration_seconds",
			Help:    "Time to run both population phases",
			Buckets: prometheus.DefBuckets,
		},
	)

	syncItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restfs_sync_items_total",
			Help: "Remote items processed during population",
		},
		[]string{"phase", "result"},
	)

	persistTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restfs_persist_total",
			Help: "Object content updates sent to the remote",
		},
		[]string{"result"},
	)

	notifyBatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "restfs_notify_batches_total",
			Help: "Change batches delivered to subscribers",
		},
	)

	notifyChangesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "restfs_notify_changes_total",
			Help: "Change records delivered to subscribers",
		},
	)

	treeNodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "restfs_tree_nodes",
			Help: "Nodes held across every tree in the process, roots excluded",
		},
	)
)

// RecordSyncRun counts a finished population run
func RecordSyncRun(result string, d time.Duration) {
	syncRunsTotal.WithLabelValues(result).Inc()
	syncRunDuration.Observe(d.Seconds())
}

// RecordSyncItem counts one remote item handled in phase
func RecordSyncItem(phase, result string) {
	syncItemsTotal.WithLabelValues(phase, result).Inc()
}

// RecordPersist counts one update call
func RecordPersist(result string) {
	persistTotal.WithLabelValues(result).Inc()
}

// RecordBatch counts a delivered change batch of n records
func RecordBatch(n int) {
	notifyBatchesTotal.Inc()
	notifyChangesTotal.Add(float64(n))
}

// AddTreeNodes moves the tree size gauge by delta. Trees only ever report
// their own changes so several can share the gauge.
func AddTreeNodes(delta int) {
	treeNodes.Add(float64(delta))
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
