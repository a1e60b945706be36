package metrics

import "github.com/kilianp07/evsync/core/factory"

// Config defines settings for outcome sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusPort exposes /metrics when non-empty, e.g. "9100".
	PrometheusPort string `json:"prometheus_port"`
}
