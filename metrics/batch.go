package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/utkarsh5026/recall/recall"
)

// BatchObserver records executor batches. Plug Observe into
// recall.WithOnBatchDone.
type BatchObserver struct {
	Batches  *prometheus.CounterVec
	Items    *prometheus.CounterVec
	Kept     prometheus.Counter
	Duration *prometheus.HistogramVec
}

// NewBatchObserver creates the batch metrics, labelled by who ran the batch
// ("caller" or "pool"). Register them with Register.
func NewBatchObserver(executor string) *BatchObserver {
	constLabels := prometheus.Labels{"executor": executor}
	return &BatchObserver{
		Batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "executor",
			Name:        "batches_total",
			Help:        "Total number of batches executed.",
			ConstLabels: constLabels,
		}, []string{"runner"}),
		Items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "executor",
			Name:        "items_total",
			Help:        "Total number of items processed.",
			ConstLabels: constLabels,
		}, []string{"runner"}),
		Kept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "executor",
			Name:        "kept_total",
			Help:        "Total number of results kept after filtering.",
			ConstLabels: constLabels,
		}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "executor",
			Name:        "batch_duration_seconds",
			Help:        "Time spent inside one batch body.",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"runner"}),
	}
}

// Register adds every metric to reg.
func (o *BatchObserver) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{o.Batches, o.Items, o.Kept, o.Duration} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Observe records one batch report.
func (o *BatchObserver) Observe(r recall.BatchReport) {
	runner := "pool"
	if r.Inline {
		runner = "caller"
	}

	o.Batches.WithLabelValues(runner).Inc()
	o.Items.WithLabelValues(runner).Add(float64(r.Size))
	o.Kept.Add(float64(r.Kept))
	o.Duration.WithLabelValues(runner).Observe(r.Elapsed.Seconds())
}
