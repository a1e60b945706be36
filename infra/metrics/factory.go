package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/evsync/core/factory"
	coremetrics "github.com/kilianp07/evsync/core/metrics"
)

// init registers built-in outcome sinks.
func init() {
	_ = coremetrics.RegisterSink("nop", func(map[string]any) (coremetrics.OutcomeRecorder, error) {
		return coremetrics.NopSink{}, nil
	})

	_ = coremetrics.RegisterSink("prometheus", func(map[string]any) (coremetrics.OutcomeRecorder, error) {
		return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
	})

	_ = coremetrics.RegisterSink("influx", func(conf map[string]any) (coremetrics.OutcomeRecorder, error) {
		var c InfluxConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxSinkWithFallback(c), nil
	})
}

// NewSink builds the configured sinks and combines them. No configured sink
// yields a NopSink.
func NewSink(cfg coremetrics.Config) (*MultiSink, error) {
	sinks, err := coremetrics.NewSinks(cfg.Sinks)
	if err != nil {
		return nil, err
	}
	if len(sinks) == 0 {
		sinks = append(sinks, coremetrics.NopSink{})
	}
	return NewMultiSink(sinks...), nil
}
