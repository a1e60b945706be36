package metrics

import (
	"errors"
	"io"

	coremetrics "github.com/kilianp07/evsync/core/metrics"
)

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.OutcomeRecorder
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.OutcomeRecorder) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordOutcome forwards the outcome to all sinks, returning the first error encountered.
func (m *MultiSink) RecordOutcome(o coremetrics.Outcome) error {
	for _, s := range m.Sinks {
		if err := s.RecordOutcome(o); err != nil {
			return err
		}
	}
	return nil
}

// RecordQueueDepth forwards queue depths when supported by the sink.
func (m *MultiSink) RecordQueueDepth(d coremetrics.QueueDepth) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.QueueDepthRecorder); ok {
			if err := rec.RecordQueueDepth(d); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordNotForwarded forwards dropped CDR counts when supported by the sink.
func (m *MultiSink) RecordNotForwarded(n coremetrics.NotForwarded) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.NotForwardedRecorder); ok {
			if err := rec.RecordNotForwarded(n); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes every sink holding resources.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.Sinks {
		if c, ok := s.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
