package syncengine

import (
	"context"
	"fmt"

	"github.com/kilianp07/evsync/core/ack"
	"github.com/kilianp07/evsync/core/events"
	"github.com/kilianp07/evsync/core/model"
	"github.com/kilianp07/evsync/core/reconcile"
	"github.com/kilianp07/evsync/core/remote"
)

// FlushStatus uploads the latest status of every EVSE on the fast list.
// Updates of a transport failure are queued again.
func (e *Engine) FlushStatus(ctx context.Context) ack.Acknowledgement {
	if e.closed.Load() {
		return ack.OutOfService(0)
	}
	if e.cfg.DisablePushStatus {
		return ack.NoOperation()
	}
	if !e.flushSlot.TryLock() {
		e.contention(TimerStatusFlush)
		return ack.NoOperation()
	}
	defer e.flushSlot.Unlock()

	if err := e.acquireStatus(ctx); err != nil {
		e.contention(TimerStatusFlush)
		return ack.NoOperation()
	}
	defer e.status.Release(1)

	updates := e.store.DrainStatusFast()
	if len(updates) == 0 {
		return ack.NoOperation()
	}
	a, transport, sent := e.pushStatus(ctx, events.PathStatus, updates)
	if transport {
		e.store.RequeueStatus(sent)
	}
	return a
}

// RefreshStatus uploads the status of every EVSE reported by the status
// source. The tick is skipped when another status upload is running.
func (e *Engine) RefreshStatus(ctx context.Context) ack.Acknowledgement {
	if e.closed.Load() {
		return ack.OutOfService(0)
	}
	if !e.refreshEnabled() {
		return ack.NoOperation()
	}
	if !e.refreshSlot.TryLock() {
		e.contention(TimerStatusRefresh)
		return ack.NoOperation()
	}
	defer e.refreshSlot.Unlock()

	if !e.status.TryAcquire(1) {
		e.log.Debugw("status refresh skipped, status upload in progress", map[string]any{"adapter": e.cfg.AdapterID})
		contentionTotal.WithLabelValues(TimerStatusRefresh).Inc()
		e.publish(events.ContentionEvent{AdapterID: e.cfg.AdapterID, Timer: TimerStatusRefresh, Time: e.now()})
		return ack.NoOperation()
	}
	defer e.status.Release(1)

	var evses []model.EVSE
	sctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	err := e.guard(TimerStatusRefresh, func() error {
		var err error
		evses, err = e.source.Snapshot(sctx)
		return err
	})
	cancel()
	if err != nil {
		e.log.Errorf("status refresh: registry snapshot: %v", err)
		return ack.Failure(fmt.Sprintf("registry snapshot: %v", err), nil, 0)
	}

	updates := make([]model.EVSEStatusUpdate, 0, len(evses))
	for _, ev := range evses {
		if e.store.PendingAdd(ev.ID) {
			continue
		}
		updates = append(updates, model.EVSEStatusUpdate{EVSE: ev, Previous: ev.Status, New: ev.Status})
	}
	if len(updates) == 0 {
		return ack.NoOperation()
	}
	a, _, _ := e.pushStatus(ctx, events.PathRefresh, updates)
	return a
}

// pushStatusDirect sends updates inline, waiting for the status semaphore
// at most the request timeout.
func (e *Engine) pushStatusDirect(ctx context.Context, updates []model.EVSEStatusUpdate) ack.Acknowledgement {
	if err := e.acquireStatus(ctx); err != nil {
		return ack.Failure(fmt.Sprintf("status upload busy: %v", err), nil, 0)
	}
	defer e.status.Release(1)
	a, _, _ := e.pushStatus(ctx, events.PathStatus, updates)
	return a
}

func (e *Engine) acquireStatus(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()
	return e.status.Acquire(ctx, 1)
}

// pushStatus reconciles updates and uploads the result. It returns the
// acknowledgement, whether the failure was transport related, and the
// updates that were part of the payload.
func (e *Engine) pushStatus(ctx context.Context, path events.Path, updates []model.EVSEStatusUpdate) (ack.Acknowledgement, bool, []model.EVSEStatusUpdate) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()

	var (
		rec reconcile.Result
		res *remote.Result
	)
	start := e.now()
	err := e.guard(string(path), func() error {
		rec = reconcile.Latest(updates, e.mapper, e.policy)
		if len(rec.Statuses) == 0 {
			return nil
		}
		var err error
		res, err = e.client.PushStatus(ctx, rec.Statuses, e.cfg.StatusTTL)
		return err
	})
	e.logWarnings(path, rec.Warnings)
	if err == nil && len(rec.Statuses) == 0 {
		return ack.NoOperation().WithWarnings(rec.Warnings...), false, nil
	}
	a, transport := interpret(res, err, rec.Warnings, e.now().Sub(start))
	e.record(path, len(rec.Statuses), a)
	return a, transport, rec.Updates
}
