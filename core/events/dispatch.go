package events

import (
	"time"

	"github.com/kilianp07/evsync/core/ack"
)

// Path names the dispatch path that produced an event.
type Path string

const (
	PathFullSet Path = "full_set"
	PathDelta   Path = "delta"
	PathStatus  Path = "status"
	PathRefresh Path = "refresh"
	PathCDR     Path = "cdr"
)

// DispatchEvent is published after every remote call of the engine.
type DispatchEvent struct {
	AdapterID string
	Path      Path
	Items     int
	Ack       ack.Acknowledgement
	Time      time.Time
}
