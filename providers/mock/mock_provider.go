// Package mock provides a mock implementation of the Provider interface for testing.
package mock

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"

	"github.com/hazelcast/docs-mcp-oauth/providers"
)

// MockProvider is a configurable providers.Provider for tests.
type MockProvider struct {
	// NameFunc is called when Name() is invoked
	NameFunc func() string

	// AuthorizationURLFunc is called when AuthorizationURL() is invoked
	AuthorizationURLFunc func(state string) string

	// ExchangeCodeFunc is called when ExchangeCode() is invoked
	ExchangeCodeFunc func(ctx context.Context, code string) (*oauth2.Token, error)

	// FetchUserFunc is called when FetchUser() is invoked
	FetchUserFunc func(ctx context.Context, token *oauth2.Token) (*providers.UserInfo, error)

	// CallCounts tracks how many times each method was called
	CallCounts map[string]int

	mu sync.RWMutex
}

var _ providers.Provider = (*MockProvider)(nil)

// NewMockProvider creates a mock provider with working defaults: every
// exchange succeeds and resolves to the same test user.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		CallCounts: make(map[string]int),
		NameFunc: func() string {
			return "mock"
		},
		AuthorizationURLFunc: func(state string) string {
			return "https://mock.example.com/authorize?state=" + state
		},
		ExchangeCodeFunc: func(ctx context.Context, code string) (*oauth2.Token, error) {
			return &oauth2.Token{
				AccessToken: "mock-upstream-token",
				TokenType:   "Bearer",
			}, nil
		},
		FetchUserFunc: func(ctx context.Context, token *oauth2.Token) (*providers.UserInfo, error) {
			return &providers.UserInfo{
				ID:    "mock-user-123",
				Login: "mockuser",
				Email: "mock@example.com",
				Name:  "Mock User",
			}, nil
		},
	}
}

// Name returns the provider name.
func (m *MockProvider) Name() string {
	// Lock only to update the counter and grab the function reference;
	// the user function runs unlocked so it may call other mock methods.
	m.mu.Lock()
	m.CallCounts["Name"]++
	fn := m.NameFunc
	m.mu.Unlock()

	if fn == nil {
		return "mock"
	}
	return fn()
}

// AuthorizationURL generates the login redirect URL.
func (m *MockProvider) AuthorizationURL(state string) string {
	m.mu.Lock()
	m.CallCounts["AuthorizationURL"]++
	fn := m.AuthorizationURLFunc
	m.mu.Unlock()
	if fn == nil {
		return "https://mock.example.com/authorize?state=" + state
	}
	return fn(state)
}

// ExchangeCode exchanges an authorization code for an upstream token.
func (m *MockProvider) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	m.mu.Lock()
	m.CallCounts["ExchangeCode"]++
	fn := m.ExchangeCodeFunc
	m.mu.Unlock()
	if fn == nil {
		return nil, fmt.Errorf("ExchangeCodeFunc not configured")
	}
	return fn(ctx, code)
}

// FetchUser resolves the authenticated user's identity.
func (m *MockProvider) FetchUser(ctx context.Context, token *oauth2.Token) (*providers.UserInfo, error) {
	m.mu.Lock()
	m.CallCounts["FetchUser"]++
	fn := m.FetchUserFunc
	m.mu.Unlock()
	if fn == nil {
		return nil, fmt.Errorf("FetchUserFunc not configured")
	}
	return fn(ctx, token)
}

// GetCallCount returns the number of times a method was called.
func (m *MockProvider) GetCallCount(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.CallCounts[method]
}
