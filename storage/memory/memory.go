// Package memory provides an in-memory implementation of the storage
// interfaces. Suitable for tests and single-instance deployments; anything
// running more than one instance needs the Redis store instead.
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hazelcast/docs-mcp-oauth/storage"
)

// DefaultCleanupInterval is how often the janitor sweeps expired entries.
// Expiry is also enforced lazily on every read, so the sweep only bounds
// memory held by keys nobody asks for again.
const DefaultCleanupInterval = time.Minute

// Store is an in-memory storage.Store. All operations are safe for
// concurrent use; single-use consumption is serialized by the mutex.
type Store struct {
	mu            sync.RWMutex
	pending       map[string]*storage.PendingAuth
	codes         map[string]*storage.AuthorizationCode
	clients       map[string]*storage.Client
	refreshTokens map[string]*storage.RefreshToken

	logger      *slog.Logger
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// Compile-time interface checks
var (
	_ storage.FlowStore         = (*Store)(nil)
	_ storage.ClientStore       = (*Store)(nil)
	_ storage.RefreshTokenStore = (*Store)(nil)
	_ storage.Store             = (*Store)(nil)
)

// NewStore creates a store and starts its cleanup goroutine. Call Stop
// when done to release it.
func NewStore(logger *slog.Logger) *Store {
	return NewStoreWithInterval(logger, DefaultCleanupInterval)
}

// NewStoreWithInterval creates a store with a custom janitor interval.
func NewStoreWithInterval(logger *slog.Logger, cleanupInterval time.Duration) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}

	s := &Store{
		pending:       make(map[string]*storage.PendingAuth),
		codes:         make(map[string]*storage.AuthorizationCode),
		clients:       make(map[string]*storage.Client),
		refreshTokens: make(map[string]*storage.RefreshToken),
		logger:        logger,
		stopCleanup:   make(chan struct{}),
	}

	go s.cleanupLoop(cleanupInterval)

	return s
}

// Stop terminates the cleanup goroutine. Safe to call more than once.
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCleanup)
	})
}

// SavePendingAuth stores a pending authorization keyed by internal state.
func (s *Store) SavePendingAuth(_ context.Context, pa *storage.PendingAuth) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *pa
	s.pending[pa.InternalState] = &cp
	return nil
}

// ConsumePendingAuth removes and returns the pending authorization.
// The delete happens under the same lock as the lookup, so two racing
// callbacks cannot both redeem the same state.
func (s *Store) ConsumePendingAuth(_ context.Context, internalState string) (*storage.PendingAuth, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pa, ok := s.pending[internalState]
	if !ok {
		return nil, storage.ErrNotFound
	}
	delete(s.pending, internalState)

	if time.Now().After(pa.ExpiresAt) {
		return nil, storage.ErrExpired
	}
	cp := *pa
	return &cp, nil
}

// SaveAuthorizationCode stores an authorization code.
func (s *Store) SaveAuthorizationCode(_ context.Context, code *storage.AuthorizationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *code
	s.codes[code.Code] = &cp
	return nil
}

// ConsumeAuthorizationCode removes and returns the authorization code.
// Deletion is unconditional; an expired code is removed and reported as
// expired rather than left behind.
func (s *Store) ConsumeAuthorizationCode(_ context.Context, code string) (*storage.AuthorizationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ac, ok := s.codes[code]
	if !ok {
		return nil, storage.ErrNotFound
	}
	delete(s.codes, code)

	if time.Now().After(ac.ExpiresAt) {
		return nil, storage.ErrExpired
	}
	cp := *ac
	return &cp, nil
}

// SaveClient stores a registered client.
func (s *Store) SaveClient(_ context.Context, client *storage.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *client
	s.clients[client.ClientID] = &cp
	return nil
}

// GetClient retrieves a registered client by ID.
func (s *Store) GetClient(_ context.Context, clientID string) (*storage.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.clients[clientID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// SaveRefreshToken stores a refresh token record keyed by token string.
func (s *Store) SaveRefreshToken(_ context.Context, rt *storage.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rt
	s.refreshTokens[rt.Token] = &cp
	return nil
}

// GetRefreshToken retrieves a refresh token record. Expired records are
// removed on read and reported as expired so the caller can distinguish
// "never existed or already rotated" from "outlived its TTL".
func (s *Store) GetRefreshToken(_ context.Context, tokenString string) (*storage.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rt, ok := s.refreshTokens[tokenString]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if time.Now().After(rt.ExpiresAt) {
		delete(s.refreshTokens, tokenString)
		return nil, storage.ErrExpired
	}
	cp := *rt
	return &cp, nil
}

// RevokeRefreshToken deletes a refresh token record. Revoking an unknown
// token is not an error; the outcome is the same.
func (s *Store) RevokeRefreshToken(_ context.Context, tokenString string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.refreshTokens, tokenString)
	return nil
}

// Counts returns the number of live entries per artifact kind, for
// storage gauge callbacks.
func (s *Store) Counts() (pending, codes, clients, refreshTokens int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending), len(s.codes), len(s.clients), len(s.refreshTokens)
}

func (s *Store) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.removeExpired()
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *Store) removeExpired() {
	now := time.Now()
	removed := 0

	s.mu.Lock()
	for k, pa := range s.pending {
		if now.After(pa.ExpiresAt) {
			delete(s.pending, k)
			removed++
		}
	}
	for k, ac := range s.codes {
		if now.After(ac.ExpiresAt) {
			delete(s.codes, k)
			removed++
		}
	}
	for k, rt := range s.refreshTokens {
		if now.After(rt.ExpiresAt) {
			delete(s.refreshTokens, k)
			removed++
		}
	}
	s.mu.Unlock()

	if removed > 0 {
		s.logger.Debug("Removed expired storage entries", "count", removed)
	}
}
