// Package redis provides a Redis-backed implementation of the storage
// interfaces. Artifacts are stored as JSON values with native per-key TTL,
// so expiry needs no janitor: an expired key simply stops existing.
// Single-use consumption relies on GETDEL, which is atomic server-side.
package redis

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/hazelcast/docs-mcp-oauth/storage"
)

const (
	// DefaultKeyPrefix namespaces all keys written by this store.
	DefaultKeyPrefix = "oauth:"

	// connectionVerifyTimeout bounds the initial PING at construction.
	connectionVerifyTimeout = 5 * time.Second
)

// Config holds configuration for the Redis storage backend.
type Config struct {
	// URL is a redis connection URL, e.g. "redis://localhost:6379/0".
	// Takes precedence over Address when set.
	URL string

	// Address is the server address, e.g. "localhost:6379".
	Address string

	// Password is the optional authentication password.
	Password string

	// DB is the optional database number.
	DB int

	// KeyPrefix namespaces all keys (default "oauth:").
	KeyPrefix string

	// TLS is the optional TLS configuration for encrypted connections.
	TLS *tls.Config

	// Logger is the optional structured logger (default slog.Default()).
	Logger *slog.Logger
}

// Store is a Redis-backed storage.Store.
type Store struct {
	client *goredis.Client
	prefix string
	logger *slog.Logger
}

// Compile-time interface checks
var (
	_ storage.FlowStore         = (*Store)(nil)
	_ storage.ClientStore       = (*Store)(nil)
	_ storage.RefreshTokenStore = (*Store)(nil)
	_ storage.Store             = (*Store)(nil)
)

// New connects to Redis and verifies the connection before returning.
func New(cfg Config) (*Store, error) {
	opts, err := buildOptions(cfg)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}

	client := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), connectionVerifyTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	logger.Info("Connected to Redis storage", "addr", opts.Addr, "db", opts.DB, "prefix", prefix)

	return &Store{client: client, prefix: prefix, logger: logger}, nil
}

// NewWithClient wraps an existing client. Used by tests and callers that
// manage the connection themselves.
func NewWithClient(client *goredis.Client, keyPrefix string, logger *slog.Logger) *Store {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{client: client, prefix: keyPrefix, logger: logger}
}

func buildOptions(cfg Config) (*goredis.Options, error) {
	if cfg.URL != "" {
		opts, err := goredis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		return opts, nil
	}
	if cfg.Address == "" {
		return nil, errors.New("redis address is required")
	}
	return &goredis.Options{
		Addr:      cfg.Address,
		Password:  cfg.Password,
		DB:        cfg.DB,
		TLSConfig: cfg.TLS,
	}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) pendingKey(state string) string { return s.prefix + "pending:" + state }
func (s *Store) codeKey(code string) string    { return s.prefix + "code:" + code }
func (s *Store) clientKey(id string) string    { return s.prefix + "client:" + id }
func (s *Store) refreshKey(tok string) string  { return s.prefix + "refresh:" + tok }

func (s *Store) setJSON(ctx context.Context, key string, v any, expiresAt time.Time) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", key, err)
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		// Already past its lifetime; nothing worth writing.
		return nil
	}
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// getDelJSON atomically reads and deletes the key. Redis expiry means a
// dead artifact is indistinguishable from a missing one; both surface as
// storage.ErrNotFound.
func (s *Store) getDelJSON(ctx context.Context, key string, v any) error {
	data, err := s.client.GetDel(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("consuming %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshaling %s: %w", key, err)
	}
	return nil
}

func (s *Store) getJSON(ctx context.Context, key string, v any) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshaling %s: %w", key, err)
	}
	return nil
}

// SavePendingAuth persists a pending authorization with its remaining TTL.
func (s *Store) SavePendingAuth(ctx context.Context, pa *storage.PendingAuth) error {
	return s.setJSON(ctx, s.pendingKey(pa.InternalState), pa, pa.ExpiresAt)
}

// ConsumePendingAuth atomically retrieves and deletes a pending authorization.
func (s *Store) ConsumePendingAuth(ctx context.Context, internalState string) (*storage.PendingAuth, error) {
	var pa storage.PendingAuth
	if err := s.getDelJSON(ctx, s.pendingKey(internalState), &pa); err != nil {
		return nil, err
	}
	if time.Now().After(pa.ExpiresAt) {
		return nil, storage.ErrExpired
	}
	return &pa, nil
}

// SaveAuthorizationCode persists an authorization code with its remaining TTL.
func (s *Store) SaveAuthorizationCode(ctx context.Context, code *storage.AuthorizationCode) error {
	return s.setJSON(ctx, s.codeKey(code.Code), code, code.ExpiresAt)
}

// ConsumeAuthorizationCode atomically retrieves and deletes an authorization code.
func (s *Store) ConsumeAuthorizationCode(ctx context.Context, code string) (*storage.AuthorizationCode, error) {
	var ac storage.AuthorizationCode
	if err := s.getDelJSON(ctx, s.codeKey(code), &ac); err != nil {
		return nil, err
	}
	if time.Now().After(ac.ExpiresAt) {
		return nil, storage.ErrExpired
	}
	return &ac, nil
}

// SaveClient persists a registered client with the long client TTL.
func (s *Store) SaveClient(ctx context.Context, client *storage.Client) error {
	return s.setJSON(ctx, s.clientKey(client.ClientID), client, time.Now().Add(storage.ClientTTL))
}

// GetClient retrieves a registered client by ID.
func (s *Store) GetClient(ctx context.Context, clientID string) (*storage.Client, error) {
	var c storage.Client
	if err := s.getJSON(ctx, s.clientKey(clientID), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// SaveRefreshToken persists a refresh token record with its remaining TTL.
func (s *Store) SaveRefreshToken(ctx context.Context, rt *storage.RefreshToken) error {
	return s.setJSON(ctx, s.refreshKey(rt.Token), rt, rt.ExpiresAt)
}

// GetRefreshToken retrieves a refresh token record.
func (s *Store) GetRefreshToken(ctx context.Context, tokenString string) (*storage.RefreshToken, error) {
	var rt storage.RefreshToken
	if err := s.getJSON(ctx, s.refreshKey(tokenString), &rt); err != nil {
		return nil, err
	}
	if time.Now().After(rt.ExpiresAt) {
		_ = s.client.Del(ctx, s.refreshKey(tokenString)).Err()
		return nil, storage.ErrExpired
	}
	return &rt, nil
}

// RevokeRefreshToken deletes a refresh token record. Unknown tokens are a
// no-op.
func (s *Store) RevokeRefreshToken(ctx context.Context, tokenString string) error {
	if err := s.client.Del(ctx, s.refreshKey(tokenString)).Err(); err != nil {
		return fmt.Errorf("revoking refresh token: %w", err)
	}
	return nil
}
