// Package metrics defines how dispatch outcomes of the synchronization
// engine are recorded. Sinks such as the Prometheus and InfluxDB recorders
// in infra/metrics implement OutcomeRecorder and are instantiated by name
// from configuration through the sink registry. RuntimeStats keeps a short
// window of dispatch runtimes for summaries.
package metrics
