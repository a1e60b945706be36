// Package ack defines the outcome values returned by every synchronization
// operation of the adapter.
package ack

import (
	"time"

	"github.com/kilianp07/evsync/core/model"
)

// Kind enumerates the possible outcomes of a synchronization operation.
type Kind int

const (
	KindNoOperation Kind = iota
	KindSuccess
	KindPartial
	KindFailure
	KindEnqueued
	KindOutOfService
)

// String returns a human-readable representation of the outcome kind.
func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindPartial:
		return "partial"
	case KindFailure:
		return "failure"
	case KindEnqueued:
		return "enqueued"
	case KindOutOfService:
		return "out_of_service"
	default:
		return "no_operation"
	}
}

// NotForwarded is a charge detail record that did not reach the remote side.
type NotForwarded struct {
	Record model.ChargeDetailRecord
	Reason string
}

// Acknowledgement is the uniform result of a synchronization operation.
type Acknowledgement struct {
	Kind        Kind
	Description string
	Warnings    []string
	Runtime     time.Duration
	// NotForwarded lists the charge detail records rejected or not sent.
	// Only CDR operations fill it.
	NotForwarded []NotForwarded
}

// Success reports a fully accepted operation.
func Success(description string, runtime time.Duration) Acknowledgement {
	return Acknowledgement{Kind: KindSuccess, Description: description, Runtime: runtime}
}

// Partial reports an operation where part of the payload was rejected.
func Partial(description string, notForwarded []NotForwarded, warnings []string, runtime time.Duration) Acknowledgement {
	return Acknowledgement{
		Kind:         KindPartial,
		Description:  description,
		Warnings:     warnings,
		Runtime:      runtime,
		NotForwarded: notForwarded,
	}
}

// Failure reports an operation that was not accepted.
func Failure(description string, warnings []string, runtime time.Duration) Acknowledgement {
	return Acknowledgement{Kind: KindFailure, Description: description, Warnings: warnings, Runtime: runtime}
}

// Enqueued reports that the payload was queued for a later transmission.
func Enqueued() Acknowledgement { return Acknowledgement{Kind: KindEnqueued} }

// NoOperation reports that nothing had to be sent.
func NoOperation() Acknowledgement { return Acknowledgement{Kind: KindNoOperation} }

// OutOfService reports that the adapter does not accept work anymore.
func OutOfService(runtime time.Duration) Acknowledgement {
	return Acknowledgement{Kind: KindOutOfService, Runtime: runtime}
}

// OK reports whether the outcome should be considered successful by the
// caller. Enqueued and no-op outcomes count as successful.
func (a Acknowledgement) OK() bool {
	switch a.Kind {
	case KindSuccess, KindEnqueued, KindNoOperation:
		return true
	default:
		return false
	}
}

// WithWarnings returns a copy of a with the warnings appended.
func (a Acknowledgement) WithWarnings(w ...string) Acknowledgement {
	if len(w) == 0 {
		return a
	}
	a.Warnings = append(append([]string(nil), a.Warnings...), w...)
	return a
}
