package github

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

const (
	testClientID     = "test-client-id"
	testClientSecret = "test-client-secret"
	testCallbackURL  = "https://example.com/oauth/callback"
)

func newTestProvider(t *testing.T, cfg *Config) *Provider {
	t.Helper()
	if cfg.ClientID == "" {
		cfg.ClientID = testClientID
	}
	if cfg.ClientSecret == "" {
		cfg.ClientSecret = testClientSecret
	}
	if cfg.RedirectURL == "" {
		cfg.RedirectURL = testCallbackURL
	}
	p, err := NewProvider(cfg)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	return p
}

func TestNewProviderValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name: "valid config",
			config: &Config{
				ClientID:     testClientID,
				ClientSecret: testClientSecret,
				RedirectURL:  testCallbackURL,
			},
		},
		{
			name:    "missing client ID",
			config:  &Config{ClientSecret: testClientSecret},
			wantErr: true,
		},
		{
			name:    "missing client secret",
			config:  &Config{ClientID: testClientID},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewProvider() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthorizationURL(t *testing.T) {
	p := newTestProvider(t, &Config{})

	rawURL := p.AuthorizationURL("internal-state-123")
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parsing authorization URL: %v", err)
	}

	q := u.Query()
	if got := q.Get("state"); got != "internal-state-123" {
		t.Errorf("state = %q, want %q", got, "internal-state-123")
	}
	if got := q.Get("client_id"); got != testClientID {
		t.Errorf("client_id = %q, want %q", got, testClientID)
	}
	if got := q.Get("redirect_uri"); got != testCallbackURL {
		t.Errorf("redirect_uri = %q, want %q", got, testCallbackURL)
	}
	if got := q.Get("scope"); !strings.Contains(got, "user:email") {
		t.Errorf("scope = %q, want it to contain user:email", got)
	}
	if !strings.HasPrefix(rawURL, "https://github.com/login/oauth/authorize") {
		t.Errorf("unexpected authorize endpoint: %s", rawURL)
	}
}

func TestExchangeCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parsing token request form: %v", err)
		}
		if got := r.FormValue("code"); got != "upstream-code" {
			t.Errorf("code = %q, want %q", got, "upstream-code")
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "gho_testtoken",
			"token_type":   "bearer",
		})
	}))
	defer srv.Close()

	p := newTestProvider(t, &Config{TokenURL: srv.URL + "/login/oauth/access_token"})

	token, err := p.ExchangeCode(context.Background(), "upstream-code")
	if err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}
	if token.AccessToken != "gho_testtoken" {
		t.Errorf("AccessToken = %q, want %q", token.AccessToken, "gho_testtoken")
	}
}

func TestExchangeCodeUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad_verification_code", http.StatusBadRequest)
	}))
	defer srv.Close()

	p := newTestProvider(t, &Config{TokenURL: srv.URL + "/token"})

	if _, err := p.ExchangeCode(context.Background(), "bad-code"); err == nil {
		t.Fatal("expected error from failed exchange")
	}
}

func TestFetchUserPublicEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer gho_testtoken" {
			t.Errorf("Authorization = %q", got)
		}
		switch r.URL.Path {
		case "/user":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":    12345,
				"login": "octocat",
				"name":  "Octo Cat",
				"email": "octo@example.com",
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	p := newTestProvider(t, &Config{APIBaseURL: srv.URL})

	info, err := p.FetchUser(context.Background(), &oauth2.Token{AccessToken: "gho_testtoken"})
	if err != nil {
		t.Fatalf("FetchUser: %v", err)
	}
	if info.ID != "12345" {
		t.Errorf("ID = %q, want %q", info.ID, "12345")
	}
	if info.Login != "octocat" {
		t.Errorf("Login = %q, want %q", info.Login, "octocat")
	}
	if info.Email != "octo@example.com" {
		t.Errorf("Email = %q, want %q", info.Email, "octo@example.com")
	}
}

func TestFetchUserPrivateEmailFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/user":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":    12345,
				"login": "octocat",
				"name":  "Octo Cat",
			})
		case "/user/emails":
			_ = json.NewEncoder(w).Encode([]map[string]any{
				{"email": "old@example.com", "primary": false, "verified": true},
				{"email": "octo@example.com", "primary": true, "verified": true},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	p := newTestProvider(t, &Config{APIBaseURL: srv.URL})

	info, err := p.FetchUser(context.Background(), &oauth2.Token{AccessToken: "gho_testtoken"})
	if err != nil {
		t.Fatalf("FetchUser: %v", err)
	}
	if info.Email != "octo@example.com" {
		t.Errorf("Email = %q, want primary verified %q", info.Email, "octo@example.com")
	}
}

func TestFetchUserFirstVerifiedFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/user":
			_ = json.NewEncoder(w).Encode(map[string]any{"id": 1, "login": "u"})
		case "/user/emails":
			_ = json.NewEncoder(w).Encode([]map[string]any{
				{"email": "unverified@example.com", "primary": true, "verified": false},
				{"email": "verified@example.com", "primary": false, "verified": true},
			})
		}
	}))
	defer srv.Close()

	p := newTestProvider(t, &Config{APIBaseURL: srv.URL})

	info, err := p.FetchUser(context.Background(), &oauth2.Token{AccessToken: "t"})
	if err != nil {
		t.Fatalf("FetchUser: %v", err)
	}
	if info.Email != "verified@example.com" {
		t.Errorf("Email = %q, want first verified fallback", info.Email)
	}
}

func TestFetchUserNoEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/user":
			_ = json.NewEncoder(w).Encode(map[string]any{"id": 1, "login": "u"})
		case "/user/emails":
			_ = json.NewEncoder(w).Encode([]map[string]any{
				{"email": "unverified@example.com", "primary": true, "verified": false},
			})
		}
	}))
	defer srv.Close()

	p := newTestProvider(t, &Config{APIBaseURL: srv.URL})

	_, err := p.FetchUser(context.Background(), &oauth2.Token{AccessToken: "t"})
	if !errors.Is(err, ErrNoEmail) {
		t.Errorf("err = %v, want ErrNoEmail", err)
	}
}

func TestFetchUserAPIFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := newTestProvider(t, &Config{APIBaseURL: srv.URL})

	if _, err := p.FetchUser(context.Background(), &oauth2.Token{AccessToken: "bad"}); err == nil {
		t.Fatal("expected error from failed profile fetch")
	}
}
