package syncengine

import (
	"github.com/kilianp07/evsync/core/monitoring"
)

// guard runs fn and converts a panic into an error. Panics are reported to
// the fault sink with their root cause.
func (e *Engine) guard(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			perr := &monitoring.PanicError{Value: r}
			e.fault(op, perr)
			err = perr
		}
	}()
	return fn()
}

// recoverTimer keeps a trigger alive when a callback panics outside of a
// guarded remote call.
func (e *Engine) recoverTimer(timer string) {
	if r := recover(); r != nil {
		e.fault(timer, &monitoring.PanicError{Value: r})
	}
}

func (e *Engine) fault(op string, err error) {
	cause := monitoring.RootCause(err)
	e.log.Errorf("%s: unexpected failure: %v", op, cause)
	faultsTotal.Inc()
	e.faults.Fault(e.now(), e.cfg.AdapterID, cause)
}
