// Package monitoring defines how the synchronization engine reports
// unexpected failures to its host.
package monitoring

import (
	"errors"
	"fmt"
	"time"
)

// FaultSink receives failures that escaped a scheduled run. Implementations
// must not block for long: they are called from timer goroutines.
type FaultSink interface {
	Fault(at time.Time, adapterID string, err error)
}

// FaultFunc adapts a function to a FaultSink.
type FaultFunc func(at time.Time, adapterID string, err error)

func (f FaultFunc) Fault(at time.Time, adapterID string, err error) { f(at, adapterID, err) }

// NopFaultSink drops every fault.
type NopFaultSink struct{}

func (NopFaultSink) Fault(time.Time, string, error) {}

// MultiFaultSink forwards faults to every sink.
type MultiFaultSink []FaultSink

func (m MultiFaultSink) Fault(at time.Time, adapterID string, err error) {
	for _, s := range m {
		if s != nil {
			s.Fault(at, adapterID, err)
		}
	}
}

// PanicError wraps a value recovered from a panic.
type PanicError struct {
	Value any
}

func (p *PanicError) Error() string { return fmt.Sprintf("panic: %v", p.Value) }

// Unwrap exposes the panic value when it is an error.
func (p *PanicError) Unwrap() error {
	if err, ok := p.Value.(error); ok {
		return err
	}
	return nil
}

// RootCause follows the Unwrap chain of err down to the innermost error.
// Joined errors are followed through their first element.
func RootCause(err error) error {
	for err != nil {
		var next error
		switch e := err.(type) {
		case interface{ Unwrap() []error }:
			if errs := e.Unwrap(); len(errs) > 0 {
				next = errs[0]
			}
		default:
			next = errors.Unwrap(err)
		}
		if next == nil {
			return err
		}
		err = next
	}
	return nil
}
