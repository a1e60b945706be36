package monitoring

import (
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/kilianp07/evsync/config"
	coremon "github.com/kilianp07/evsync/core/monitoring"
)

// NewSentryFaultSink initializes Sentry using the provided configuration and
// returns a FaultSink reporting to it. An empty DSN disables reporting.
func NewSentryFaultSink(cfg config.SentryConfig) (coremon.FaultSink, error) {
	if cfg.DSN == "" {
		return coremon.NopFaultSink{}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		TracesSampleRate: cfg.TracesSampleRate,
		Release:          cfg.Release,
	})
	if err != nil {
		return nil, err
	}
	return NewHubFaultSink(sentry.CurrentHub()), nil
}

// NewHubFaultSink reports faults through hub.
func NewHubFaultSink(hub *sentry.Hub) *SentryFaultSink {
	return &SentryFaultSink{hub: hub}
}

// SentryFaultSink captures faults as Sentry exceptions tagged with the
// adapter id.
type SentryFaultSink struct {
	hub *sentry.Hub
}

func (s *SentryFaultSink) Fault(at time.Time, adapterID string, err error) {
	if err == nil {
		return
	}
	s.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("adapter_id", adapterID)
		scope.SetLevel(sentry.LevelError)
		scope.SetContext("fault", sentry.Context{"at": at.UTC().Format(time.RFC3339Nano)})
		s.hub.CaptureException(err)
	})
}

// Flush waits for buffered events to be sent.
func (s *SentryFaultSink) Flush(timeout time.Duration) bool { return s.hub.Flush(timeout) }
