// Package github implements the identity provider interface for GitHub
// OAuth Apps. The upstream flow requests the user:email scope, exchanges
// the callback code via golang.org/x/oauth2, and resolves identity from
// the /user endpoint with a /user/emails fallback for accounts whose
// email is private.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	oauthgithub "golang.org/x/oauth2/github"

	"github.com/hazelcast/docs-mcp-oauth/providers"
)

// Compile-time check that Provider implements the providers.Provider interface.
var _ providers.Provider = (*Provider)(nil)

const providerName = "github"

// DefaultAPIBaseURL is the GitHub REST API base. Overridable for tests
// and GitHub Enterprise deployments.
const DefaultAPIBaseURL = "https://api.github.com"

// ErrNoEmail is returned when no usable email can be resolved for the
// authenticated user. Issued tokens carry an email claim and allow-list
// checks key on it, so a user without one cannot proceed.
var ErrNoEmail = errors.New("github: no verified email available for user")

// Config holds GitHub OAuth App configuration.
type Config struct {
	// ClientID is the GitHub OAuth App client ID (required).
	ClientID string

	// ClientSecret is the GitHub OAuth App client secret (required).
	ClientSecret string

	// RedirectURL is the fixed callback URL registered with the app.
	RedirectURL string

	// Scopes are the upstream scopes to request (default ["user:email"]).
	Scopes []string

	// APIBaseURL overrides the GitHub REST API base.
	APIBaseURL string

	// AuthURL and TokenURL override the OAuth endpoints. Defaults are
	// github.com; tests point them at an httptest server.
	AuthURL  string
	TokenURL string

	// HTTPClient is an optional custom HTTP client.
	HTTPClient *http.Client

	// RequestTimeout bounds each upstream call (default 10s).
	RequestTimeout time.Duration
}

// Provider implements providers.Provider for GitHub.
type Provider struct {
	*oauth2.Config
	apiBaseURL     string
	httpClient     *http.Client
	requestTimeout time.Duration
}

// NewProvider creates a GitHub provider.
func NewProvider(cfg *Config) (*Provider, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("github: client ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, errors.New("github: client secret is required")
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"user:email"}
	}
	scopesCopy := make([]string, len(scopes))
	copy(scopesCopy, scopes)

	endpoint := oauthgithub.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}

	apiBase := cfg.APIBaseURL
	if apiBase == "" {
		apiBase = DefaultAPIBaseURL
	}

	requestTimeout := cfg.RequestTimeout
	if requestTimeout == 0 {
		requestTimeout = 10 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}

	return &Provider{
		Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopesCopy,
			Endpoint:     endpoint,
		},
		apiBaseURL:     apiBase,
		httpClient:     httpClient,
		requestTimeout: requestTimeout,
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return providerName
}

// AuthorizationURL builds the GitHub login URL carrying the given state.
func (p *Provider) AuthorizationURL(state string) string {
	return p.AuthCodeURL(state)
}

// ensureContextTimeout adds a deadline when the context has none, so no
// upstream call can hang past the configured timeout.
func (p *Provider) ensureContextTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.requestTimeout)
}

// ExchangeCode exchanges the callback code for an upstream access token.
func (p *Provider) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx, cancel := p.ensureContextTimeout(ctx)
	defer cancel()

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	token, err := p.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("github: code exchange failed: %w", err)
	}
	return token, nil
}

// FetchUser resolves the authenticated user's identity. When the /user
// profile carries no public email, the primary verified address from
// /user/emails is used instead; with no email at all, ErrNoEmail.
func (p *Provider) FetchUser(ctx context.Context, token *oauth2.Token) (*providers.UserInfo, error) {
	ctx, cancel := p.ensureContextTimeout(ctx)
	defer cancel()

	var ghUser struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := p.getJSON(ctx, token, "/user", &ghUser); err != nil {
		return nil, fmt.Errorf("github: fetching user profile: %w", err)
	}

	info := &providers.UserInfo{
		ID:    strconv.FormatInt(ghUser.ID, 10),
		Login: ghUser.Login,
		Email: ghUser.Email,
		Name:  ghUser.Name,
	}

	if info.Email == "" {
		email, err := p.fetchPrimaryEmail(ctx, token)
		if err != nil {
			return nil, err
		}
		info.Email = email
	}
	if info.Email == "" {
		return nil, ErrNoEmail
	}

	return info, nil
}

// fetchPrimaryEmail returns the primary verified email from /user/emails,
// falling back to the first verified address.
func (p *Provider) fetchPrimaryEmail(ctx context.Context, token *oauth2.Token) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := p.getJSON(ctx, token, "/user/emails", &emails); err != nil {
		return "", fmt.Errorf("github: fetching user emails: %w", err)
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email, nil
		}
	}
	return "", nil
}

func (p *Provider) getJSON(ctx context.Context, token *oauth2.Token, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
