// Package metrics exposes Prometheus collectors for the harvest campaign.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	harvestTasksTotal    *prometheus.CounterVec
	harvestRetriesTotal  *prometheus.CounterVec
	harvestLedgerTotal   *prometheus.CounterVec
	harvestActiveWorkers prometheus.Gauge
	harvestTaskSeconds   *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		harvestTasksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvest_tasks_total",
				Help: "Work items finished, labeled by partition and outcome.",
			},
			[]string{"partition", "outcome"},
		)

		harvestRetriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvest_retries_total",
				Help: "Timeout retries performed, labeled by partition.",
			},
			[]string{"partition"},
		)

		harvestLedgerTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvest_ledger_appends_total",
				Help: "URLs recorded as permanently timed out, labeled by partition.",
			},
			[]string{"partition"},
		)

		harvestActiveWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "harvest_active_workers",
				Help: "Workers currently holding a browser session.",
			},
		)

		harvestTaskSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harvest_task_duration_seconds",
				Help:    "Wall time per work item including retries.",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			},
			[]string{"partition"},
		)
	})
}

// TaskFinished counts one finished work item.
func TaskFinished(partition, outcome string, elapsed time.Duration) {
	if harvestTasksTotal == nil {
		return
	}
	harvestTasksTotal.WithLabelValues(partition, outcome).Inc()
	harvestTaskSeconds.WithLabelValues(partition).Observe(elapsed.Seconds())
}

// RetryPerformed counts one timeout retry.
func RetryPerformed(partition string) {
	if harvestRetriesTotal == nil {
		return
	}
	harvestRetriesTotal.WithLabelValues(partition).Inc()
}

// LedgerAppend counts one permanent-timeout ledger entry.
func LedgerAppend(partition string) {
	if harvestLedgerTotal == nil {
		return
	}
	harvestLedgerTotal.WithLabelValues(partition).Inc()
}

// WorkerStarted increments the active worker gauge.
func WorkerStarted() {
	if harvestActiveWorkers != nil {
		harvestActiveWorkers.Inc()
	}
}

// WorkerStopped decrements the active worker gauge.
func WorkerStopped() {
	if harvestActiveWorkers != nil {
		harvestActiveWorkers.Dec()
	}
}
