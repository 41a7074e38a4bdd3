// Package metrics exposes pool and executor activity to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/utkarsh5026/recall/pool"
)

const namespace = "recall"

// PoolCollector reads a pool's counters at scrape time. It holds no state of
// its own, so registering it costs nothing on the task path.
type PoolCollector struct {
	pool *pool.Pool
	name string

	workers   *prometheus.Desc
	active    *prometheus.Desc
	largest   *prometheus.Desc
	queueLen  *prometheus.Desc
	submitted *prometheus.Desc
	completed *prometheus.Desc
	rejected  *prometheus.Desc
}

// NewPoolCollector describes p under the given pool label.
func NewPoolCollector(name string, p *pool.Pool) *PoolCollector {
	labels := prometheus.Labels{"pool": name}
	desc := func(metric, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "pool", metric), help, nil, labels)
	}

	return &PoolCollector{
		pool:      p,
		name:      name,
		workers:   desc("workers", "Current number of live workers."),
		active:    desc("active_workers", "Workers currently running a task."),
		largest:   desc("largest_workers", "Most workers ever live at once."),
		queueLen:  desc("queue_length", "Tasks waiting in the work queue."),
		submitted: desc("submitted_total", "Total number of tasks submitted to the pool."),
		completed: desc("completed_total", "Total number of tasks run by pool workers."),
		rejected:  desc("rejected_total", "Total number of tasks refused or dropped by the rejection policy."),
	}
}

// Describe implements prometheus.Collector.
func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.workers
	ch <- c.active
	ch <- c.largest
	ch <- c.queueLen
	ch <- c.submitted
	ch <- c.completed
	ch <- c.rejected
}

// Collect implements prometheus.Collector.
func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.pool.Stats()

	ch <- prometheus.MustNewConstMetric(c.workers, prometheus.GaugeValue, float64(s.PoolSize))
	ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, float64(s.Active))
	ch <- prometheus.MustNewConstMetric(c.largest, prometheus.GaugeValue, float64(s.Largest))
	ch <- prometheus.MustNewConstMetric(c.queueLen, prometheus.GaugeValue, float64(s.QueueLength))
	ch <- prometheus.MustNewConstMetric(c.submitted, prometheus.CounterValue, float64(s.Submitted))
	ch <- prometheus.MustNewConstMetric(c.completed, prometheus.CounterValue, float64(s.Completed))
	ch <- prometheus.MustNewConstMetric(c.rejected, prometheus.CounterValue, float64(s.Rejected))
}
