package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/evsync/core/metrics"
)

// PromSink records dispatch outcomes in Prometheus metrics labelled by
// adapter.
type PromSink struct {
	outcomes     *prometheus.CounterVec
	items        *prometheus.CounterVec
	runtime      *prometheus.HistogramVec
	pending      *prometheus.GaugeVec
	notForwarded *prometheus.CounterVec
}

// NewPromSink registers outcome metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using cfg.PrometheusPort.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by a previous sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evsync_outcomes_total",
			Help: "Total number of synchronization outcomes",
		}, []string{"adapter", "path", "kind"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evsync_outcome_items_total",
			Help: "Total number of items carried by remote calls",
		}, []string{"adapter", "path"}),
		runtime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "evsync_outcome_runtime_seconds",
			Help:    "Runtime of remote calls as reported in acknowledgements",
			Buckets: prometheus.DefBuckets,
		}, []string{"adapter", "path"}),
		pending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "evsync_pending_entries",
			Help: "Pending entries per queue observed at service-check",
		}, []string{"adapter", "queue"}),
		notForwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evsync_cdr_not_forwarded_total",
			Help: "Charge detail records that were not forwarded and will not be retried",
		}, []string{"adapter"}),
	}
	var err error
	if s.outcomes, err = register(reg, s.outcomes); err != nil {
		return nil, err
	}
	if s.items, err = register(reg, s.items); err != nil {
		return nil, err
	}
	if s.runtime, err = register(reg, s.runtime); err != nil {
		return nil, err
	}
	if s.pending, err = register(reg, s.pending); err != nil {
		return nil, err
	}
	if s.notForwarded, err = register(reg, s.notForwarded); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordOutcome updates the outcome counters and the runtime histogram.
func (s *PromSink) RecordOutcome(o coremetrics.Outcome) error {
	path := string(o.Path)
	s.outcomes.WithLabelValues(o.AdapterID, path, o.Kind).Inc()
	s.items.WithLabelValues(o.AdapterID, path).Add(float64(o.Items))
	s.runtime.WithLabelValues(o.AdapterID, path).Observe(o.Runtime.Seconds())
	return nil
}

// RecordQueueDepth sets one gauge per queue.
func (s *PromSink) RecordQueueDepth(d coremetrics.QueueDepth) error {
	s.pending.WithLabelValues(d.AdapterID, "add").Set(float64(d.Add))
	s.pending.WithLabelValues(d.AdapterID, "update").Set(float64(d.Update))
	s.pending.WithLabelValues(d.AdapterID, "remove").Set(float64(d.Remove))
	s.pending.WithLabelValues(d.AdapterID, "status_fast").Set(float64(d.StatusFast))
	s.pending.WithLabelValues(d.AdapterID, "status_delayed").Set(float64(d.StatusDelayed))
	s.pending.WithLabelValues(d.AdapterID, "cdr").Set(float64(d.CDR))
	return nil
}

// RecordNotForwarded counts dropped charge detail records.
func (s *PromSink) RecordNotForwarded(n coremetrics.NotForwarded) error {
	s.notForwarded.WithLabelValues(n.AdapterID).Add(float64(n.Records))
	return nil
}
