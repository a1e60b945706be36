package syncengine

import (
	"context"

	"github.com/kilianp07/evsync/core/logger"
	"github.com/kilianp07/evsync/core/metrics"
	"github.com/kilianp07/evsync/core/model"
	"github.com/kilianp07/evsync/core/monitoring"
	"github.com/kilianp07/evsync/core/remote"
	"github.com/kilianp07/evsync/internal/eventbus"
)

// StatusSource returns the current state of every EVSE known to the
// registry. It feeds the status-refresh trigger.
type StatusSource interface {
	Snapshot(ctx context.Context) ([]model.EVSE, error)
}

// StatusSourceFunc adapts a function to a StatusSource.
type StatusSourceFunc func(ctx context.Context) ([]model.EVSE, error)

func (f StatusSourceFunc) Snapshot(ctx context.Context) ([]model.EVSE, error) { return f(ctx) }

// Option customises an Engine.
type Option func(*Engine)

// WithMapper replaces the default entity mapper.
func WithMapper(m remote.EntityMapper) Option {
	return func(e *Engine) {
		if m != nil {
			e.mapper = m
		}
	}
}

// WithPolicy sets the inclusion policy. Everything is published by default.
func WithPolicy(p remote.InclusionPolicy) Option {
	return func(e *Engine) {
		if p != nil {
			e.policy = p
		}
	}
}

// WithStatusSource enables the status-refresh trigger.
func WithStatusSource(s StatusSource) Option {
	return func(e *Engine) { e.source = s }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithFaultSink sets the sink receiving unexpected failures.
func WithFaultSink(f monitoring.FaultSink) Option {
	return func(e *Engine) {
		if f != nil {
			e.faults = f
		}
	}
}

// WithBus publishes engine events on b.
func WithBus(b *eventbus.Bus[eventbus.Event]) Option {
	return func(e *Engine) { e.bus = b }
}

// WithRecorder records dispatch outcomes. Recorders that also implement
// metrics.QueueDepthRecorder receive queue depths on every service-check.
func WithRecorder(r metrics.OutcomeRecorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}
