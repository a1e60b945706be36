package metrics

import (
	"time"

	"github.com/kilianp07/evsync/core/events"
)

// Outcome describes a single remote call made by the engine.
type Outcome struct {
	AdapterID string
	Path      events.Path
	Kind      string
	Items     int
	Warnings  int
	Runtime   time.Duration
	Time      time.Time
}

// OutcomeRecorder records dispatch outcomes for observability purposes.
type OutcomeRecorder interface {
	RecordOutcome(o Outcome) error
}

// QueueDepth is a snapshot of the pending-change queues.
type QueueDepth struct {
	AdapterID     string
	Add           int
	Update        int
	Remove        int
	StatusFast    int
	StatusDelayed int
	CDR           int
	Time          time.Time
}

// QueueDepthRecorder is implemented by sinks able to record queue depths.
type QueueDepthRecorder interface {
	RecordQueueDepth(d QueueDepth) error
}

// NotForwarded counts charge detail records that were given up on.
type NotForwarded struct {
	AdapterID string
	Records   int
	Time      time.Time
}

// NotForwardedRecorder is implemented by sinks able to record dropped CDRs.
type NotForwardedRecorder interface {
	RecordNotForwarded(n NotForwarded) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordOutcome(Outcome) error           { return nil }
func (NopSink) RecordQueueDepth(QueueDepth) error     { return nil }
func (NopSink) RecordNotForwarded(NotForwarded) error { return nil }
