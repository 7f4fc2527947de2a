// Package providers defines the interface to the upstream identity provider
// that end users authenticate against. The authorization server treats the
// provider as three operations: build a login redirect, exchange the
// returned code, and resolve the user's identity.
package providers

import (
	"context"

	"golang.org/x/oauth2"
)

// Provider is an upstream identity provider.
type Provider interface {
	// Name returns the provider name (e.g. "github").
	Name() string

	// AuthorizationURL builds the URL users are redirected to for login.
	// The state parameter is the server's internal state, not the
	// client's; the provider echoes it back on the callback.
	AuthorizationURL(state string) string

	// ExchangeCode exchanges the provider's authorization code for an
	// upstream access token. Implementations must bound the call with a
	// timeout even when the context carries none.
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)

	// FetchUser resolves the authenticated user's identity using the
	// upstream token. An identity without an email is an error for this
	// server: tokens carry the email claim and allow-lists key on it.
	FetchUser(ctx context.Context, token *oauth2.Token) (*UserInfo, error)
}

// UserInfo is the provider-reported identity embedded into issued tokens.
type UserInfo struct {
	// ID is the provider's stable numeric or opaque user identifier.
	ID string

	// Login is the provider username.
	Login string

	// Email is the user's primary verified email address.
	Email string

	// Name is the user's display name. May be empty.
	Name string
}
