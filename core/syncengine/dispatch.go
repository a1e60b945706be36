package syncengine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/evsync/core/ack"
	"github.com/kilianp07/evsync/core/events"
	"github.com/kilianp07/evsync/core/metrics"
	"github.com/kilianp07/evsync/core/model"
	"github.com/kilianp07/evsync/core/monitoring"
	"github.com/kilianp07/evsync/core/pending"
	"github.com/kilianp07/evsync/core/remote"
)

// ServiceReport holds the outcomes of one service-check run.
type ServiceReport struct {
	Data ack.Acknowledgement
	CDRs ack.Acknowledgement
}

// ServiceCheck drains the data and CDR queues and uploads them. Status
// updates held back for EVSEs of this run are released to the status-flush
// trigger once the upload succeeded, and dropped when the remote side
// refused it. Items of a transport failure are queued again; items refused
// by the remote side are not.
func (e *Engine) ServiceCheck(ctx context.Context) ServiceReport {
	if e.closed.Load() {
		return ServiceReport{Data: ack.OutOfService(0), CDRs: ack.OutOfService(0)}
	}
	rep := ServiceReport{Data: ack.NoOperation(), CDRs: ack.NoOperation()}
	if !e.dataSlot.TryLock() {
		e.contention(TimerServiceCheck)
		return rep
	}
	defer e.dataSlot.Unlock()

	e.observeDepth()
	snap, ok := e.store.DrainAll()
	if !ok {
		return rep
	}

	handled := false
	data := pending.Snapshot{Add: snap.Add, Update: snap.Update, Remove: snap.Remove}
	if !data.Empty() {
		var transport bool
		rep.Data, transport = e.dispatchData(ctx, data, false)
		switch {
		case transport:
			data.Delayed = snap.Delayed
			e.store.Requeue(data)
			handled = true
		case len(data.Add) > 0 && rep.Data.Kind != ack.KindSuccess:
			// The remote side does not know these EVSEs.
			if len(snap.Delayed) > 0 {
				e.log.Warnw("held-back status updates dropped, initial upload not accepted", map[string]any{
					"adapter": e.cfg.AdapterID,
					"updates": len(snap.Delayed),
					"outcome": rep.Data.Kind.String(),
				})
			}
			handled = true
		}
	}
	if !handled && len(snap.Delayed) > 0 {
		e.store.RequeueStatus(snap.Delayed)
		e.statusFlush.arm(0)
	}
	if len(snap.CDRs) > 0 {
		rep.CDRs, _ = e.dispatchCDRs(ctx, snap.CDRs, true)
	}
	return rep
}

// dispatchData uploads static data. Until the first full set succeeded, and
// whenever full is set, the full-set operation is used; all other uploads
// are deltas. The second return value reports a transport failure.
func (e *Engine) dispatchData(ctx context.Context, snap pending.Snapshot, full bool) (ack.Acknowledgement, bool) {
	e.dataMu.Lock()
	defer e.dataMu.Unlock()

	full = full || !e.fullSetDone
	path := events.PathDelta
	if full {
		path = events.PathFullSet
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()

	var (
		res      *remote.Result
		warnings []string
		items    int
	)
	start := e.now()
	err := e.guard(string(path), func() error {
		var err error
		if full {
			var payload []remote.WireItem
			payload, warnings = e.fullSetItems(snap)
			if items = len(payload); items == 0 {
				return nil
			}
			res, err = e.client.PushFullSet(ctx, payload)
			return err
		}
		var payload []remote.DeltaItem
		payload, warnings = e.deltaItems(snap)
		if items = len(payload); items == 0 {
			return nil
		}
		res, err = e.client.PushDelta(ctx, payload)
		return err
	})
	e.logWarnings(path, warnings)
	if err == nil && items == 0 {
		return ack.NoOperation().WithWarnings(warnings...), false
	}

	a, transport := interpret(res, err, warnings, e.now().Sub(start))
	if a.Kind == ack.KindSuccess {
		e.dataRuns++
		if full {
			e.fullSetDone = true
		}
	}
	e.record(path, items, a)
	return a, transport
}

func (e *Engine) fullSetItems(snap pending.Snapshot) ([]remote.WireItem, []string) {
	var warnings []string
	removed := make(map[model.EVSEID]struct{}, len(snap.Remove))
	for _, ev := range snap.Remove {
		removed[ev.ID] = struct{}{}
	}
	if len(snap.Remove) > 0 {
		warnings = append(warnings, fmt.Sprintf("%d removals folded into the full set", len(snap.Remove)))
	}
	seen := make(map[remote.WireID]int)
	var out []remote.WireItem
	for _, ev := range append(append([]model.EVSE(nil), snap.Add...), snap.Update...) {
		if _, ok := removed[ev.ID]; ok {
			continue
		}
		item, ok, warn := e.wireItem(ev)
		if warn != "" {
			warnings = append(warnings, warn)
		}
		if !ok {
			continue
		}
		if i, dup := seen[item.ID]; dup {
			out[i] = item
			continue
		}
		seen[item.ID] = len(out)
		out = append(out, item)
	}
	return out, warnings
}

func (e *Engine) deltaItems(snap pending.Snapshot) ([]remote.DeltaItem, []string) {
	var warnings []string
	var out []remote.DeltaItem
	add := func(action remote.DeltaAction, evses []model.EVSE) {
		for _, ev := range evses {
			item, ok, warn := e.wireItem(ev)
			if warn != "" {
				warnings = append(warnings, warn)
			}
			if ok {
				out = append(out, remote.DeltaItem{Action: action, Item: item})
			}
		}
	}
	add(remote.ActionInsert, snap.Add)
	add(remote.ActionUpdate, snap.Update)
	add(remote.ActionDelete, snap.Remove)
	return out, warnings
}

// wireItem maps ev. Excluded EVSEs are skipped silently; mapping failures
// produce a warning.
func (e *Engine) wireItem(ev model.EVSE) (remote.WireItem, bool, string) {
	if !e.policy.Include(ev) {
		return remote.WireItem{}, false, ""
	}
	item, err := e.mapper.WireItem(ev)
	if err != nil {
		return remote.WireItem{}, false, fmt.Sprintf("evse %s skipped: %v", ev.ID, err)
	}
	if !e.policy.IncludeID(item.ID) {
		return remote.WireItem{}, false, ""
	}
	return item, true, ""
}

// dispatchCDRs forwards records. With requeue set, records of a transport
// failure go back to the queue; otherwise every record that did not reach
// the remote side is published as rejected.
func (e *Engine) dispatchCDRs(ctx context.Context, records []model.ChargeDetailRecord, requeue bool) (ack.Acknowledgement, bool) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()

	var res *remote.CDRResult
	start := e.now()
	err := e.guard(string(events.PathCDR), func() error {
		var err error
		res, err = e.client.PushCDRs(ctx, records)
		return err
	})
	rt := e.now().Sub(start)

	var (
		a         ack.Acknowledgement
		transport bool
	)
	switch {
	case err != nil || res == nil:
		reason := remote.ErrNoResponse.Error()
		if err != nil {
			reason = err.Error()
			transport = !isPanic(err)
		}
		a = ack.Failure(reason, nil, rt)
		a.NotForwarded = notForwarded(records, reason)
	case len(res.Rejected) > 0:
		nf := make([]ack.NotForwarded, 0, len(res.Rejected))
		for _, r := range res.Rejected {
			nf = append(nf, ack.NotForwarded{Record: r.Record, Reason: r.Reason})
		}
		desc := res.Description
		if desc == "" {
			desc = fmt.Sprintf("%d of %d records rejected", len(nf), len(records))
		}
		if len(nf) >= len(records) {
			a = ack.Failure(desc, nil, rt)
			a.NotForwarded = nf
		} else {
			a = ack.Partial(desc, nf, nil, rt)
		}
	case res.Code == remote.CodeOK:
		a = ack.Success(fmt.Sprintf("%d records forwarded", len(records)), rt)
	default:
		desc := describe(res.Description, res.Code)
		a = ack.Failure(desc, nil, rt)
		a.NotForwarded = notForwarded(records, desc)
	}

	if transport && requeue {
		e.store.RequeueCDRs(records)
	} else if len(a.NotForwarded) > 0 {
		e.publish(events.CDRRejectedEvent{AdapterID: e.cfg.AdapterID, Records: a.NotForwarded, Time: e.now()})
	}
	e.record(events.PathCDR, len(records), a)
	return a, transport
}

func notForwarded(records []model.ChargeDetailRecord, reason string) []ack.NotForwarded {
	out := make([]ack.NotForwarded, 0, len(records))
	for _, r := range records {
		out = append(out, ack.NotForwarded{Record: r, Reason: reason})
	}
	return out
}

// interpret converts a remote result into an acknowledgement. The second
// return value reports a transport failure, which callers may retry.
func interpret(res *remote.Result, err error, warnings []string, rt time.Duration) (ack.Acknowledgement, bool) {
	switch {
	case err != nil:
		if isPanic(err) {
			return ack.Failure(monitoring.RootCause(err).Error(), warnings, rt), false
		}
		return ack.Failure(err.Error(), warnings, rt), true
	case res == nil:
		return ack.Failure(remote.ErrNoResponse.Error(), warnings, rt), true
	case res.Code == remote.CodeOK:
		return ack.Success(describe(res.Description, res.Code), rt).WithWarnings(append(warnings, res.Warnings...)...), false
	default:
		return ack.Failure(describe(res.Description, res.Code), append(warnings, res.Warnings...), rt), false
	}
}

func describe(desc string, code remote.ResultCode) string {
	if desc != "" {
		return desc
	}
	return code.String()
}

func isPanic(err error) bool {
	var p *monitoring.PanicError
	return errors.As(err, &p)
}

// record updates the statistics of one remote call and publishes it.
func (e *Engine) record(path events.Path, items int, a ack.Acknowledgement) {
	e.runtimes.Observe(path, a.Runtime)
	dispatchTotal.WithLabelValues(string(path), a.Kind.String()).Inc()
	dispatchDuration.WithLabelValues(string(path)).Observe(a.Runtime.Seconds())

	e.runsMu.Lock()
	e.runs[path]++
	e.runsMu.Unlock()

	now := e.now()
	if err := e.recorder.RecordOutcome(metrics.Outcome{
		AdapterID: e.cfg.AdapterID,
		Path:      path,
		Kind:      a.Kind.String(),
		Items:     items,
		Warnings:  len(a.Warnings),
		Runtime:   a.Runtime,
		Time:      now,
	}); err != nil {
		e.log.Warnf("record outcome: %v", err)
	}
	e.publish(events.DispatchEvent{AdapterID: e.cfg.AdapterID, Path: path, Items: items, Ack: a, Time: now})

	switch a.Kind {
	case ack.KindSuccess:
		e.log.Infof("%s: %d items sent in %s", path, items, a.Runtime)
	case ack.KindPartial:
		e.log.Warnf("%s: partially accepted: %s", path, a.Description)
	default:
		e.log.Errorf("%s: %s", path, a.Description)
	}
}

func (e *Engine) logWarnings(path events.Path, warnings []string) {
	for _, w := range warnings {
		e.log.Warnw(w, map[string]any{"adapter": e.cfg.AdapterID, "path": string(path)})
	}
}

func (e *Engine) contention(timer string) {
	e.log.Warnw("run deferred, previous run still active", map[string]any{
		"adapter": e.cfg.AdapterID,
		"timer":   timer,
	})
	contentionTotal.WithLabelValues(timer).Inc()
	e.publish(events.ContentionEvent{AdapterID: e.cfg.AdapterID, Timer: timer, Time: e.now()})
}

func (e *Engine) publish(ev any) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}

func (e *Engine) observeDepth() {
	d := e.store.Len()
	queueDepth.WithLabelValues("add").Set(float64(d.Add))
	queueDepth.WithLabelValues("update").Set(float64(d.Update))
	queueDepth.WithLabelValues("remove").Set(float64(d.Remove))
	queueDepth.WithLabelValues("status_fast").Set(float64(d.StatusFast))
	queueDepth.WithLabelValues("status_delayed").Set(float64(d.StatusDelayed))
	queueDepth.WithLabelValues("cdr").Set(float64(d.CDRs))
	qr, ok := e.recorder.(metrics.QueueDepthRecorder)
	if !ok {
		return
	}
	if err := qr.RecordQueueDepth(metrics.QueueDepth{
		AdapterID:     e.cfg.AdapterID,
		Add:           d.Add,
		Update:        d.Update,
		Remove:        d.Remove,
		StatusFast:    d.StatusFast,
		StatusDelayed: d.StatusDelayed,
		CDR:           d.CDRs,
		Time:          e.now(),
	}); err != nil {
		e.log.Warnf("record queue depth: %v", err)
	}
}
