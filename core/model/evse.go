package model

import (
	"fmt"
	"strings"
)

// EVSEID identifies a single charging point across the registry and the
// remote clearing house.
type EVSEID string

// String returns the identifier as plain text.
func (id EVSEID) String() string { return string(id) }

// Validate reports whether the identifier can be used as a queue key.
func (id EVSEID) Validate() error {
	s := strings.TrimSpace(string(id))
	if s == "" {
		return fmt.Errorf("empty evse id")
	}
	if s != string(id) {
		return fmt.Errorf("evse id %q has surrounding whitespace", string(id))
	}
	return nil
}

// ConnectorType describes the plug available on an EVSE.
type ConnectorType string

const (
	ConnectorType2   ConnectorType = "IEC_62196_T2"
	ConnectorCCS     ConnectorType = "IEC_62196_T2_COMBO"
	ConnectorCHAdeMO ConnectorType = "CHADEMO"
	ConnectorSchuko  ConnectorType = "DOMESTIC_F"
)

// Connector is a physical outlet of an EVSE.
type Connector struct {
	Type       ConnectorType `json:"type"`
	MaxPowerKW float64       `json:"max_power_kw"`
}

// EVSE represents a charging point owned by the upstream registry. The
// adapter only keeps transient copies while they are queued.
type EVSE struct {
	ID          EVSEID      `json:"id"`
	StationID   string      `json:"station_id,omitempty"`
	PoolID      string      `json:"pool_id,omitempty"`
	OperatorID  string      `json:"operator_id,omitempty"`
	Description string      `json:"description,omitempty"`
	MaxPowerKW  float64     `json:"max_power_kw,omitempty"`
	Connectors  []Connector `json:"connectors,omitempty"`
	// Status is the last status known by the registry. It is only used by
	// the full status refresh.
	Status EVSEStatus `json:"status"`
}
