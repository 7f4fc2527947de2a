// Package storage defines the interfaces for persisting OAuth flow
// artifacts: pending authorizations, authorization codes, registered
// clients, and refresh token records. Every artifact is TTL-bound and
// requests may land on any instance, so implementations must live in a
// store shared across instances (or accept single-instance deployment,
// as the in-memory implementation does).
package storage

import (
	"context"
	"errors"
	"time"
)

// Artifact lifetimes. Pending authorizations and authorization codes are
// short-lived by design; clients are effectively permanent.
const (
	PendingAuthTTL       = 10 * time.Minute
	AuthorizationCodeTTL = 10 * time.Minute
	ClientTTL            = 365 * 24 * time.Hour
)

var (
	// ErrNotFound indicates the artifact does not exist. For single-use
	// artifacts this may mean it was already consumed.
	ErrNotFound = errors.New("storage: not found")

	// ErrExpired indicates the artifact existed but its TTL has passed.
	// Stores with native key expiry may report ErrNotFound instead;
	// callers treat both as a dead artifact.
	ErrExpired = errors.New("storage: expired")
)

// PendingAuth is one in-flight /authorize request, created when the user is
// redirected to the identity provider and consumed exactly once by the
// callback. It is keyed by InternalState, a server-generated unguessable
// value that doubles as the provider-facing state parameter.
type PendingAuth struct {
	InternalState       string
	ClientID            string
	RedirectURI         string
	ClientState         string
	CodeChallenge       string
	CodeChallengeMethod string
	Scope               string
	Resource            string
	CreatedAt           time.Time
	ExpiresAt           time.Time
}

// AuthorizationCode is proof that an end user completed upstream login,
// bound to the PKCE challenge and redirect URI of the originating pending
// authorization. Single use: consumed and deleted by the token endpoint.
type AuthorizationCode struct {
	Code                string
	ClientID            string
	RedirectURI         string
	Scope               string
	Resource            string
	CodeChallenge       string
	CodeChallengeMethod string
	Subject             string
	Login               string
	Email               string
	Name                string
	CreatedAt           time.Time
	ExpiresAt           time.Time
}

// Client is a dynamically registered OAuth client. Public clients only:
// no secret is stored, PKCE is the compensating control.
type Client struct {
	ClientID                string
	ClientName              string
	ClientURI               string
	RedirectURIs            []string
	GrantTypes              []string
	ResponseTypes           []string
	TokenEndpointAuthMethod string
	Scope                   string
	CreatedAt               time.Time
}

// RefreshToken is the persisted record backing an issued refresh token,
// keyed by the token string itself. Its presence is what makes the token
// redeemable; revocation is deletion.
type RefreshToken struct {
	Token     string
	ClientID  string
	Subject   string
	Email     string
	Name      string
	Audience  string
	Scope     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// FlowStore persists the single-use artifacts of the authorization flow.
//
// Consume operations MUST be atomic get-then-delete: two redemption
// attempts racing on the same key must not both succeed. The in-memory
// store serializes under its mutex; the Redis store uses GETDEL.
type FlowStore interface {
	// SavePendingAuth persists a pending authorization for its TTL.
	SavePendingAuth(ctx context.Context, pa *PendingAuth) error

	// ConsumePendingAuth atomically retrieves and deletes the pending
	// authorization keyed by the given internal state. Returns
	// ErrNotFound if absent (or already consumed), ErrExpired if dead.
	ConsumePendingAuth(ctx context.Context, internalState string) (*PendingAuth, error)

	// SaveAuthorizationCode persists an authorization code for its TTL.
	SaveAuthorizationCode(ctx context.Context, code *AuthorizationCode) error

	// ConsumeAuthorizationCode atomically retrieves and deletes the code.
	// Deletion happens regardless of what the caller does next; a failed
	// PKCE check must not leave the code redeemable.
	ConsumeAuthorizationCode(ctx context.Context, code string) (*AuthorizationCode, error)
}

// ClientStore persists registered clients.
type ClientStore interface {
	SaveClient(ctx context.Context, client *Client) error
	GetClient(ctx context.Context, clientID string) (*Client, error)
}

// RefreshTokenStore persists refresh token records for rotation and
// revocation. Access tokens are stateless and never stored.
type RefreshTokenStore interface {
	SaveRefreshToken(ctx context.Context, rt *RefreshToken) error
	GetRefreshToken(ctx context.Context, tokenString string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenString string) error
}

// Store combines all storage concerns. Both provided implementations
// satisfy it; callers that only need one concern should accept the
// narrower interface.
type Store interface {
	FlowStore
	ClientStore
	RefreshTokenStore
}
