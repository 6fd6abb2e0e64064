// Package sessionx resolves the caller's identity from a request. The
// dashboard never logs anyone in; it trusts either a bearer token minted by
// the identity provider or a signed cookie session set by the frontend.
package sessionx

import (
	"errors"
	"net/http"
	"strings"
)

var (
	// ErrNoSession means the request carries no credentials at all.
	ErrNoSession = errors.New("sessionx: no session")
	// ErrInvalidSession means credentials were present but rejected.
	ErrInvalidSession = errors.New("sessionx: invalid session")
)

// Identity is what the rest of the service knows about the caller.
type Identity struct {
	UserID string
	Email  string
	Role   string
	Name   string
	Method string // "bearer" or "cookie"
}

// Authenticator resolves an Identity from a request.
type Authenticator interface {
	Authenticate(r *http.Request) (Identity, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(r *http.Request) (Identity, error)

func (f AuthenticatorFunc) Authenticate(r *http.Request) (Identity, error) { return f(r) }

// Chain tries each authenticator in order. The first one that finds
// credentials decides: a rejected bearer token is not retried as a cookie.
type Chain []Authenticator

func (c Chain) Authenticate(r *http.Request) (Identity, error) {
	for _, a := range c {
		if a == nil {
			continue
		}
		id, err := a.Authenticate(r)
		if errors.Is(err, ErrNoSession) {
			continue
		}
		return id, err
	}
	return Identity{}, ErrNoSession
}

func normalise(id Identity) Identity {
	id.Email = strings.ToLower(strings.TrimSpace(id.Email))
	id.Role = strings.ToLower(strings.TrimSpace(id.Role))
	return id
}
