// Package events defines the events the synchronization engine publishes on
// the event bus.
//
// Available event types:
//   - DispatchEvent: outcome of a data, status, refresh or CDR dispatch
//   - CDRRejectedEvent: charge detail records that were not forwarded
//   - ContentionEvent: a scheduled run skipped because another run was active
package events
