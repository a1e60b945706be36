// Package remote defines the contracts between the synchronization engine
// and the clearing-house RPC client, along with the identity mapping and
// inclusion strategies applied before data leaves the adapter.
package remote

import (
	"context"
	"errors"
	"time"

	"github.com/kilianp07/evsync/core/model"
)

// ErrNoResponse is used when the transport returned neither a result nor an
// error.
var ErrNoResponse = errors.New("no response body")

// ResultCode is the application level result reported by the remote side.
type ResultCode int

const (
	CodeUnknown ResultCode = iota
	CodeOK
	CodePartly
	CodeRejected
	CodeInvalidData
	CodeServerError
)

func (c ResultCode) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodePartly:
		return "partly"
	case CodeRejected:
		return "rejected"
	case CodeInvalidData:
		return "invalid_data"
	case CodeServerError:
		return "server_error"
	default:
		return "unknown"
	}
}

// Result is the response to a data or status push.
type Result struct {
	Code        ResultCode `json:"code"`
	HTTPStatus  int        `json:"-"`
	Description string     `json:"description,omitempty"`
	Warnings    []string   `json:"warnings,omitempty"`
}

// RejectedCDR is a record refused by the remote side as implausible.
type RejectedCDR struct {
	Record model.ChargeDetailRecord `json:"record"`
	Reason string                   `json:"reason"`
}

// CDRResult is the response to a CDR upload.
type CDRResult struct {
	Code        ResultCode    `json:"code"`
	HTTPStatus  int           `json:"-"`
	Description string        `json:"description,omitempty"`
	Rejected    []RejectedCDR `json:"rejected,omitempty"`
}

// AuthStatus is the decision returned for an authorization request.
type AuthStatus string

const (
	AuthAuthorized    AuthStatus = "authorized"
	AuthNotAuthorized AuthStatus = "not_authorized"
	AuthBlocked       AuthStatus = "blocked"
)

// AuthResponse is the response to an authorization request.
type AuthResponse struct {
	Status      AuthStatus `json:"status"`
	ProviderID  string     `json:"provider_id,omitempty"`
	Description string     `json:"description,omitempty"`
}

// WireID is the identity of an EVSE as known by the remote side.
type WireID string

// WireItem is the wire representation of an EVSE's static data.
type WireItem struct {
	ID          WireID            `json:"id"`
	StationID   string            `json:"station_id,omitempty"`
	OperatorID  string            `json:"operator_id,omitempty"`
	Description string            `json:"description,omitempty"`
	MaxPowerKW  float64           `json:"max_power_kw,omitempty"`
	Connectors  []model.Connector `json:"connectors,omitempty"`
}

// DeltaAction tells the remote side how to apply a delta item.
type DeltaAction string

const (
	ActionInsert DeltaAction = "insert"
	ActionUpdate DeltaAction = "update"
	ActionDelete DeltaAction = "delete"
)

// DeltaItem is an incremental change of static data.
type DeltaItem struct {
	Action DeltaAction `json:"action"`
	Item   WireItem    `json:"item"`
}

// WireStatus is the wire representation of an EVSE status.
type WireStatus struct {
	ID        WireID    `json:"id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Client is the request/response client of the clearing house. A nil
// result with a nil error means the transport returned no usable body.
// Every call is bounded by the context deadline.
type Client interface {
	PushFullSet(ctx context.Context, items []WireItem) (*Result, error)
	PushDelta(ctx context.Context, items []DeltaItem) (*Result, error)
	PushStatus(ctx context.Context, items []WireStatus, ttl time.Duration) (*Result, error)
	PushCDRs(ctx context.Context, records []model.ChargeDetailRecord) (*CDRResult, error)
	Authorize(ctx context.Context, token string) (*AuthResponse, error)
}
