package oauth

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hazelcast/docs-mcp-oauth/token"
)

// Default artifact lifetimes.
const (
	DefaultAccessTokenTTL  = time.Hour
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
	DefaultFlowTTL         = 10 * time.Minute
)

// DefaultScope is granted when the client requests none.
const DefaultScope = "mcp:query"

// Config holds the authorization server configuration.
type Config struct {
	// BaseURL is the public origin of this deployment, e.g.
	// "https://mcp.example.com". Required. Issuer, resource, and
	// callback URLs are derived from it.
	BaseURL string

	// Resource is the canonical protected resource URL tokens are bound
	// to. Default: BaseURL + "/mcp".
	Resource string

	// Issuer is the RFC 8414 issuer identifier. Default: BaseURL + "/oauth".
	Issuer string

	// SigningSecret is the HMAC-SHA256 secret for issued tokens
	// (required, at least 32 bytes). Missing or short secrets are a
	// fatal configuration error, not a per-request one.
	SigningSecret []byte

	// SupportedScopes are the scopes this server understands.
	// Default: ["mcp:query"].
	SupportedScopes []string

	// AllowedEmails restricts login to these addresses. Empty means
	// allow all. Matching is case-insensitive.
	AllowedEmails []string

	// AllowedDomains restricts login to these email domains. Empty
	// means allow all. Matching is case-insensitive.
	AllowedDomains []string

	// AccessTokenTTL is the access token lifetime (default 1h).
	AccessTokenTTL time.Duration

	// RefreshTokenTTL is the refresh token lifetime (default 7d).
	RefreshTokenTTL time.Duration

	// PendingAuthTTL bounds how long an /authorize redirect stays
	// redeemable (default 10m).
	PendingAuthTTL time.Duration

	// AuthorizationCodeTTL bounds how long an issued code stays
	// redeemable (default 10m).
	AuthorizationCodeTTL time.Duration

	// ServiceDocumentation is advertised in the server metadata.
	ServiceDocumentation string

	// DocsURL is where browsers landing on the resource endpoint get
	// redirected.
	DocsURL string

	// RateLimit configures per-IP limiting at the OAuth endpoints.
	RateLimit RateLimitConfig

	// Security holds policy toggles.
	Security SecurityConfig

	// Logger for structured logging (optional, uses default if not provided)
	Logger *slog.Logger
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	// Rate is requests per second allowed per IP. Zero disables limiting.
	Rate int

	// Burst is the maximum burst size allowed per IP.
	Burst int

	// TrustProxy enables trusting X-Forwarded-For and X-Real-IP headers.
	// Only enable behind a trusted reverse proxy.
	TrustProxy bool

	// TrustedProxyCount is how many proxies to trust from the right of
	// X-Forwarded-For.
	TrustedProxyCount int
}

// SecurityConfig holds OAuth security settings.
type SecurityConfig struct {
	// StrictClientBinding rejects /authorize requests whose redirect_uri
	// is not registered for the presented client_id. Off by default:
	// unregistered clients are logged and allowed through, tolerating
	// clients that skip dynamic registration.
	StrictClientBinding bool
}

// applyDefaults fills derived and zero-valued fields.
func (c *Config) applyDefaults() {
	base := strings.TrimRight(c.BaseURL, "/")
	if c.Resource == "" {
		c.Resource = base + "/mcp"
	}
	if c.Issuer == "" {
		c.Issuer = base + "/oauth"
	}
	if len(c.SupportedScopes) == 0 {
		c.SupportedScopes = []string{DefaultScope}
	}
	if c.AccessTokenTTL == 0 {
		c.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if c.RefreshTokenTTL == 0 {
		c.RefreshTokenTTL = DefaultRefreshTokenTTL
	}
	if c.PendingAuthTTL == 0 {
		c.PendingAuthTTL = DefaultFlowTTL
	}
	if c.AuthorizationCodeTTL == 0 {
		c.AuthorizationCodeTTL = DefaultFlowTTL
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// validate reports fatal configuration errors.
func (c *Config) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("oauth: BaseURL is required")
	}
	if len(c.SigningSecret) < token.MinSecretBytes {
		return fmt.Errorf("oauth: SigningSecret must be at least %d bytes", token.MinSecretBytes)
	}
	return nil
}
