package metrics

import (
	"context"

	"github.com/kilianp07/evsync/core/events"
	coremetrics "github.com/kilianp07/evsync/core/metrics"
	"github.com/kilianp07/evsync/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records the CDRs the
// engine gave up on. It stops when the context is canceled or the bus is
// closed.
func StartEventCollector(ctx context.Context, bus *eventbus.Bus[eventbus.Event], sink coremetrics.NotForwardedRecorder) {
	if bus == nil || sink == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				e, ok := ev.(events.CDRRejectedEvent)
				if !ok || len(e.Records) == 0 {
					continue
				}
				_ = sink.RecordNotForwarded(coremetrics.NotForwarded{
					AdapterID: e.AdapterID,
					Records:   len(e.Records),
					Time:      e.Time,
				})
			}
		}
	}()
}
