package syncengine

import (
	"context"
	"sync"
	"time"
)

// Timer names used in logs, events and metrics.
const (
	TimerServiceCheck  = "service-check"
	TimerStatusFlush   = "status-flush"
	TimerStatusRefresh = "status-refresh"
)

// trigger fires a callback periodically. Arm moves the next firing earlier;
// a pending deadline is never pushed back, so repeated arms coalesce into
// a single run.
type trigger struct {
	name  string
	every time.Duration
	now   func() time.Time

	mu       sync.Mutex
	deadline time.Time
	wake     chan struct{}
}

func newTrigger(name string, every time.Duration, now func() time.Time) *trigger {
	return &trigger{name: name, every: every, now: now, wake: make(chan struct{}, 1)}
}

// arm requests a run within d. The sooner of the pending deadline and now+d
// wins.
func (t *trigger) arm(d time.Duration) {
	at := t.now().Add(d)
	t.mu.Lock()
	if t.deadline.IsZero() || at.Before(t.deadline) {
		t.deadline = at
	}
	t.mu.Unlock()
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

func (t *trigger) next() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.deadline.Sub(t.now())
}

// rearm schedules the next periodic run, keeping an earlier deadline set by
// arm during the previous run.
func (t *trigger) rearm() {
	periodic := t.now().Add(t.every)
	t.mu.Lock()
	if t.deadline.IsZero() || periodic.Before(t.deadline) {
		t.deadline = periodic
	}
	t.mu.Unlock()
}

// run blocks until ctx is done, invoking fn at every deadline.
func (t *trigger) run(ctx context.Context, fn func(context.Context)) {
	t.mu.Lock()
	if t.deadline.IsZero() {
		t.deadline = t.now().Add(t.every)
	}
	t.mu.Unlock()

	timer := time.NewTimer(t.next())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.wake:
			timer.Reset(t.next())
		case <-timer.C:
			t.mu.Lock()
			t.deadline = time.Time{}
			t.mu.Unlock()
			fn(ctx)
			t.rearm()
			timer.Reset(t.next())
		}
	}
}
