// Package token signs and verifies the bearer tokens issued by the
// authorization server. Tokens are compact HMAC-SHA256 signed claim sets:
// tamper-evident, expiry-bearing, and bound to the resource they authorize
// through the audience claim. Access tokens are stateless; refresh tokens
// carry the same claim shape but are additionally persisted for rotation
// and revocation.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hazelcast/docs-mcp-oauth/internal/randutil"
)

// Token types carried in the token_type claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// MinSecretBytes is the minimum accepted HMAC secret length. Anything
// shorter than the hash output weakens HS256 below its design strength.
const MinSecretBytes = 32

var (
	// ErrInvalidToken indicates the token failed signature or structural checks.
	ErrInvalidToken = errors.New("token: invalid token")

	// ErrExpired indicates the token's exp claim has passed.
	ErrExpired = errors.New("token: token expired")

	// ErrAudienceMismatch indicates the aud claim does not name the expected resource.
	ErrAudienceMismatch = errors.New("token: audience mismatch")
)

// Claims is the claim set embedded in every issued token.
type Claims struct {
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	Scope     string `json:"scope"`
	TokenType string `json:"token_type"`

	jwt.RegisteredClaims
}

// jtiBytes sizes the random jti claim. Timestamps truncate to whole
// seconds, so the jti is what keeps two tokens minted for the same
// subject within the same second from signing identically. Refresh token
// rotation depends on that.
const jtiBytes = 16

// NewClaims builds a claim set for a token of the given type and lifetime.
// Every claim set carries a unique jti.
func NewClaims(tokenType, subject, email, name, audience, scope string, ttl time.Duration) *Claims {
	now := time.Now()
	return &Claims{
		Email:     email,
		Name:      name,
		Scope:     scope,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        randutil.MustString(jtiBytes),
			Subject:   subject,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

// HasScope reports whether the required scope is a member of the claim's
// space-delimited scope list.
func (c *Claims) HasScope(required string) bool {
	for _, s := range strings.Fields(c.Scope) {
		if s == required {
			return true
		}
	}
	return false
}

// AudienceValue returns the first audience entry, or "" if none is set.
func (c *Claims) AudienceValue() string {
	if len(c.RegisteredClaims.Audience) == 0 {
		return ""
	}
	return c.RegisteredClaims.Audience[0]
}

// Signer signs and verifies tokens with a shared HMAC-SHA256 secret.
type Signer struct {
	secret []byte
}

// NewSigner creates a Signer. The secret must carry at least MinSecretBytes
// bytes; this is a startup-time configuration error, not a per-request one.
func NewSigner(secret []byte) (*Signer, error) {
	if len(secret) < MinSecretBytes {
		return nil, fmt.Errorf("token: signing secret must be at least %d bytes, got %d", MinSecretBytes, len(secret))
	}
	return &Signer{secret: secret}, nil
}

// Sign produces the compact signed form of the given claims.
func (s *Signer) Sign(claims *Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("token: signing failed: %w", err)
	}
	return signed, nil
}

// Verify checks signature, expiry, and audience, returning the embedded
// claims on success. Callers still decide whether the token_type claim is
// acceptable for the operation at hand.
func (s *Signer) Verify(tokenString, audience string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenInvalidAudience):
			return nil, ErrAudienceMismatch
		default:
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}
	return claims, nil
}

// FromAuthorizationHeader extracts the bearer token from an Authorization
// header value. The scheme comparison is case-insensitive per RFC 6750.
func FromAuthorizationHeader(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(header[len(prefix):])
	return tok, tok != ""
}
