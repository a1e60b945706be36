package events

import "time"

// ContentionEvent is emitted when a scheduled run is deferred because the
// previous run of the same timer, or a run sharing its lock, is still busy.
type ContentionEvent struct {
	AdapterID string
	Timer     string
	Time      time.Time
}
