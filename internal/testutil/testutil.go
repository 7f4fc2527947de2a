// Package testutil provides shared helpers for the test suites.
package testutil

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/hazelcast/docs-mcp-oauth/storage"
)

// GenerateRandomString generates a random base64url string of roughly the
// given length. Test-only: panics instead of returning an error.
func GenerateRandomString(length int) string {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("failed to generate random string: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)[:length]
}

// GeneratePKCEPair generates a valid PKCE S256 challenge and verifier pair.
// Returns (challenge, verifier) where challenge is the S256 hash of the verifier.
func GeneratePKCEPair() (challenge, verifier string) {
	verifier = GenerateRandomString(50)
	hash := sha256.Sum256([]byte(verifier))
	challenge = base64.RawURLEncoding.EncodeToString(hash[:])
	return challenge, verifier
}

// GenerateTestPendingAuth creates a pending authorization with sane defaults.
func GenerateTestPendingAuth() *storage.PendingAuth {
	challenge, _ := GeneratePKCEPair()
	return &storage.PendingAuth{
		InternalState:       GenerateRandomString(43),
		ClientID:            "test-client-id",
		RedirectURI:         "https://client.example.com/callback",
		ClientState:         "client-state-xyz",
		CodeChallenge:       challenge,
		CodeChallengeMethod: "S256",
		Scope:               "mcp:query",
		Resource:            "https://mcp.example.com/mcp",
		CreatedAt:           time.Now(),
		ExpiresAt:           time.Now().Add(storage.PendingAuthTTL),
	}
}

// GenerateTestAuthorizationCode creates an authorization code with sane defaults.
func GenerateTestAuthorizationCode() *storage.AuthorizationCode {
	challenge, _ := GeneratePKCEPair()
	return &storage.AuthorizationCode{
		Code:                GenerateRandomString(43),
		ClientID:            "test-client-id",
		RedirectURI:         "https://client.example.com/callback",
		Scope:               "mcp:query",
		Resource:            "https://mcp.example.com/mcp",
		CodeChallenge:       challenge,
		CodeChallengeMethod: "S256",
		Subject:             "12345",
		Login:               "octocat",
		Email:               "octo@example.com",
		Name:                "Octo Cat",
		CreatedAt:           time.Now(),
		ExpiresAt:           time.Now().Add(storage.AuthorizationCodeTTL),
	}
}

// GenerateTestClient creates a registered public client.
func GenerateTestClient() *storage.Client {
	return &storage.Client{
		ClientID:                "test-client-id",
		ClientName:              "Test Client",
		RedirectURIs:            []string{"https://client.example.com/callback"},
		GrantTypes:              []string{"authorization_code", "refresh_token"},
		ResponseTypes:           []string{"code"},
		TokenEndpointAuthMethod: "none",
		Scope:                   "mcp:query",
		CreatedAt:               time.Now(),
	}
}

// GenerateTestRefreshToken creates a refresh token record.
func GenerateTestRefreshToken() *storage.RefreshToken {
	return &storage.RefreshToken{
		Token:     GenerateRandomString(43),
		ClientID:  "test-client-id",
		Subject:   "12345",
		Email:     "octo@example.com",
		Name:      "Octo Cat",
		Audience:  "https://mcp.example.com/mcp",
		Scope:     "mcp:query",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(7 * 24 * time.Hour),
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error but got nil")
	}
}

// AssertEqual fails the test if got != want.
func AssertEqual(t *testing.T, got, want interface{}) {
	t.Helper()
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

// AssertStringContains fails the test if s does not contain substr.
func AssertStringContains(t *testing.T, s, substr string) {
	t.Helper()
	found := false
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("string %q does not contain %q", s, substr)
	}
}
