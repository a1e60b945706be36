package model

import (
	"fmt"
	"strings"
	"time"
)

// StatusType defines the operational state of an EVSE.
type StatusType int

const (
	StatusUnknown StatusType = iota
	StatusAvailable
	StatusReserved
	StatusCharging
	StatusBlocked
	StatusOutOfService
	StatusPlanned
)

// String returns a human-readable representation of the status type.
func (t StatusType) String() string {
	switch t {
	case StatusAvailable:
		return "Available"
	case StatusReserved:
		return "Reserved"
	case StatusCharging:
		return "Charging"
	case StatusBlocked:
		return "Blocked"
	case StatusOutOfService:
		return "OutOfService"
	case StatusPlanned:
		return "Planned"
	default:
		return "Unknown"
	}
}

// ParseStatusType converts the textual form produced by String back into a
// StatusType. Matching is case-insensitive.
func ParseStatusType(s string) (StatusType, error) {
	for t := StatusUnknown; t <= StatusPlanned; t++ {
		if strings.EqualFold(t.String(), s) {
			return t, nil
		}
	}
	return StatusUnknown, fmt.Errorf("unknown status %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t StatusType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *StatusType) UnmarshalText(b []byte) error {
	v, err := ParseStatusType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// EVSEStatus is a timestamped status value.
type EVSEStatus struct {
	Type      StatusType `json:"type"`
	Timestamp time.Time  `json:"timestamp"`
}

// EVSEStatusUpdate describes a status transition reported by the registry.
// Values are immutable once created; several may be pending for the same
// EVSE and only the one with the latest New.Timestamp matters.
type EVSEStatusUpdate struct {
	EVSE     EVSE       `json:"evse"`
	Previous EVSEStatus `json:"previous"`
	New      EVSEStatus `json:"new"`
}

// ID returns the identity of the EVSE the update refers to.
func (u EVSEStatusUpdate) ID() EVSEID { return u.EVSE.ID }
