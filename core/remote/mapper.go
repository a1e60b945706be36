package remote

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kilianp07/evsync/core/model"
)

// EntityMapper translates registry EVSEs into their wire form. Mappers must
// be free of side effects so they can be swapped in tests.
type EntityMapper interface {
	WireID(e model.EVSE) (WireID, error)
	WireItem(e model.EVSE) (WireItem, error)
}

// InclusionPolicy decides which EVSEs are published to the remote side.
type InclusionPolicy interface {
	Include(e model.EVSE) bool
	IncludeID(id WireID) bool
}

// PolicyFuncs adapts plain functions to an InclusionPolicy. A nil function
// includes everything.
type PolicyFuncs struct {
	EVSE func(model.EVSE) bool
	ID   func(WireID) bool
}

func (p PolicyFuncs) Include(e model.EVSE) bool {
	if p.EVSE == nil {
		return true
	}
	return p.EVSE(e)
}

func (p PolicyFuncs) IncludeID(id WireID) bool {
	if p.ID == nil {
		return true
	}
	return p.ID(id)
}

// IncludeAll publishes every EVSE.
var IncludeAll InclusionPolicy = PolicyFuncs{}

var wireIDPattern = regexp.MustCompile(`^[A-Z]{2}\*?[A-Z0-9]{3}\*?E[A-Z0-9*]{1,31}$`)

// DefaultMapper maps EVSE identities onto the international EVSE id format
// (e.g. "DE*ABC*E1234"). If OperatorPrefix is set, ids without a country
// and operator part are prefixed with it.
type DefaultMapper struct {
	OperatorPrefix string
}

// WireID returns the normalised wire identity of e.
func (m DefaultMapper) WireID(e model.EVSE) (WireID, error) {
	if err := e.ID.Validate(); err != nil {
		return "", err
	}
	id := strings.ToUpper(string(e.ID))
	if m.OperatorPrefix != "" && !strings.Contains(id, "*") {
		prefix := strings.TrimSuffix(strings.ToUpper(m.OperatorPrefix), "*") + "*"
		if !strings.HasPrefix(id, "E") {
			prefix += "E"
		}
		id = prefix + id
	}
	if !wireIDPattern.MatchString(id) {
		return "", fmt.Errorf("evse id %q is not a valid wire id", e.ID)
	}
	return WireID(id), nil
}

// WireItem maps the static data of e.
func (m DefaultMapper) WireItem(e model.EVSE) (WireItem, error) {
	id, err := m.WireID(e)
	if err != nil {
		return WireItem{}, err
	}
	if e.MaxPowerKW < 0 {
		return WireItem{}, fmt.Errorf("evse %s: negative max power", e.ID)
	}
	return WireItem{
		ID:          id,
		StationID:   e.StationID,
		OperatorID:  e.OperatorID,
		Description: e.Description,
		MaxPowerKW:  e.MaxPowerKW,
		Connectors:  append([]model.Connector(nil), e.Connectors...),
	}, nil
}
