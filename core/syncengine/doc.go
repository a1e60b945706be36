// Package syncengine keeps a remote clearing house in sync with the local
// EVSE registry.
//
// Changes reported by the registry are queued in a pending.Store and shipped
// by three periodic triggers:
//
//   - service-check uploads static data (a full set on the first successful
//     upload, deltas afterwards) and charge detail records
//   - status-flush uploads the latest status of every changed EVSE
//   - status-refresh re-uploads the status of every known EVSE
//
// Each trigger owns a non-reentrant run slot. Flush and refresh additionally
// share a status semaphore so that they never hit the status endpoint at the
// same time. Callers may bypass the queues with Direct mode.
//
// Every public operation returns an ack.Acknowledgement. Errors are reserved
// for invalid arguments.
package syncengine
