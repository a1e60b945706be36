package events

import (
	"time"

	"github.com/kilianp07/evsync/core/ack"
)

// CDRRejectedEvent lists charge detail records that did not reach the
// remote side and will not be retried.
type CDRRejectedEvent struct {
	AdapterID string
	Records   []ack.NotForwarded
	Time      time.Time
}
