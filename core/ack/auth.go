package ack

import "time"

// AuthKind is the outcome of an authorization request.
type AuthKind int

const (
	AuthError AuthKind = iota
	Authorized
	NotAuthorized
	Blocked
	AuthOutOfService
)

func (k AuthKind) String() string {
	switch k {
	case Authorized:
		return "authorized"
	case NotAuthorized:
		return "not_authorized"
	case Blocked:
		return "blocked"
	case AuthOutOfService:
		return "out_of_service"
	default:
		return "error"
	}
}

// AuthResult carries the authorization decision for a token.
type AuthResult struct {
	Kind        AuthKind
	Token       string
	ProviderID  string
	Description string
	Runtime     time.Duration
}
