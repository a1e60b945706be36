package syncengine

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	dispatchTotal    *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	contentionTotal  *prometheus.CounterVec
	faultsTotal      prometheus.Counter
	queueDepth       *prometheus.GaugeVec
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.HistogramVec, *prometheus.CounterVec, prometheus.Counter, *prometheus.GaugeVec) {
	total := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evsync_dispatch_total",
			Help: "Number of remote calls by dispatch path and outcome",
		},
		[]string{"path", "outcome"},
	)
	dur := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "evsync_dispatch_duration_seconds",
			Help:    "Duration of remote calls by dispatch path",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)
	cont := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evsync_timer_contention_total",
			Help: "Number of scheduled runs deferred because the previous run was still busy",
		},
		[]string{"timer"},
	)
	faults := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "evsync_faults_total",
			Help: "Number of unexpected failures reported to the fault sink",
		},
	)
	depth := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "evsync_queue_depth",
			Help: "Number of pending entries per queue",
		},
		[]string{"queue"},
	)
	return total, dur, cont, faults, depth
}

func init() {
	dispatchTotal, dispatchDuration, contentionTotal, faultsTotal, queueDepth = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers engine metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(dispatchTotal, dispatchDuration, contentionTotal, faultsTotal, queueDepth)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	dispatchTotal, dispatchDuration, contentionTotal, faultsTotal, queueDepth = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
