// Package identity resolves the acting identity of a storefront request:
// an authenticated user or an anonymous guest session, never both.
package identity

import (
	"errors"
	"strings"
)

type Kind int

const (
	KindUser Kind = iota
	KindGuest
)

// Identity is a tagged union: UserID is set for KindUser, SessionID for
// KindGuest.
type Identity struct {
	Kind      Kind
	UserID    int64
	SessionID string
}

func User(id int64) Identity {
	return Identity{Kind: KindUser, UserID: id}
}

func Guest(sessionID string) Identity {
	return Identity{Kind: KindGuest, SessionID: sessionID}
}

func (id Identity) IsUser() bool {
	return id.Kind == KindUser
}

// ErrUnresolved is returned when a request carries neither a session id
// nor a valid bearer token.
var ErrUnresolved = errors.New("Session ID or User authentication required")

// TokenVerifier validates a bearer token and yields the user id it was
// issued for. Token issuance lives in the auth service, not here.
type TokenVerifier interface {
	Verify(token string) (int64, error)
}

// Resolver determines the identity of a request from its session header
// and Authorization header. A session id always wins and skips auth.
type Resolver struct {
	verifier TokenVerifier
}

func NewResolver(verifier TokenVerifier) *Resolver {
	return &Resolver{verifier: verifier}
}

// Resolve maps (x-session-id header, Authorization header) to an identity.
func (r *Resolver) Resolve(sessionID, authorization string) (Identity, error) {
	if sessionID != "" {
		return Guest(sessionID), nil
	}

	token := strings.TrimPrefix(authorization, "Bearer ")
	if token == "" {
		return Identity{}, ErrUnresolved
	}

	userID, err := r.verifier.Verify(token)
	if err != nil {
		return Identity{}, ErrUnresolved
	}

	return User(userID), nil
}

// ResolveUser is like Resolve but requires an authenticated user,
// used by operations that reject anonymous identities.
func (r *Resolver) ResolveUser(authorization string) (Identity, error) {
	token := strings.TrimPrefix(authorization, "Bearer ")
	if token == "" {
		return Identity{}, ErrUnresolved
	}

	userID, err := r.verifier.Verify(token)
	if err != nil {
		return Identity{}, ErrUnresolved
	}

	return User(userID), nil
}
