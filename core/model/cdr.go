package model

import (
	"fmt"
	"time"
)

// ChargeDetailRecord summarises a closed charging session. Records are never
// mutated after they are enqueued: they are either sent or reported as not
// forwarded.
type ChargeDetailRecord struct {
	SessionID string    `json:"session_id"`
	EVSEID    EVSEID    `json:"evse_id"`
	AuthToken string    `json:"auth_token,omitempty"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	EnergyKWh float64   `json:"energy_kwh"`
	Cost      float64   `json:"cost,omitempty"`
	Currency  string    `json:"currency,omitempty"`
}

// Duration returns the length of the session.
func (r ChargeDetailRecord) Duration() time.Duration { return r.End.Sub(r.Start) }

// Validate checks the fields required to forward the record.
func (r ChargeDetailRecord) Validate() error {
	if r.SessionID == "" {
		return fmt.Errorf("cdr: empty session id")
	}
	if err := r.EVSEID.Validate(); err != nil {
		return fmt.Errorf("cdr %s: %w", r.SessionID, err)
	}
	if !r.End.IsZero() && r.End.Before(r.Start) {
		return fmt.Errorf("cdr %s: end before start", r.SessionID)
	}
	return nil
}
