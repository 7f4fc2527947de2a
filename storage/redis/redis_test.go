package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/hazelcast/docs-mcp-oauth/internal/testutil"
	"github.com/hazelcast/docs-mcp-oauth/storage"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewWithClient(client, "", nil), mr
}

func TestPendingAuthConsumeOnce(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	pa := testutil.GenerateTestPendingAuth()
	if err := s.SavePendingAuth(ctx, pa); err != nil {
		t.Fatalf("SavePendingAuth() error = %v", err)
	}

	got, err := s.ConsumePendingAuth(ctx, pa.InternalState)
	if err != nil {
		t.Fatalf("ConsumePendingAuth() error = %v", err)
	}
	if got.ClientID != pa.ClientID {
		t.Errorf("ClientID = %q, want %q", got.ClientID, pa.ClientID)
	}
	if got.RedirectURI != pa.RedirectURI {
		t.Errorf("RedirectURI = %q, want %q", got.RedirectURI, pa.RedirectURI)
	}

	// GETDEL removed the key; a second consume sees nothing.
	if _, err := s.ConsumePendingAuth(ctx, pa.InternalState); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second consume: err = %v, want ErrNotFound", err)
	}
}

func TestPendingAuthNativeTTL(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	pa := testutil.GenerateTestPendingAuth()
	pa.ExpiresAt = time.Now().Add(time.Minute)
	if err := s.SavePendingAuth(ctx, pa); err != nil {
		t.Fatalf("SavePendingAuth() error = %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := s.ConsumePendingAuth(ctx, pa.InternalState); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err after TTL = %v, want ErrNotFound", err)
	}
}

func TestAuthorizationCodeConsumeOnce(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	code := testutil.GenerateTestAuthorizationCode()
	if err := s.SaveAuthorizationCode(ctx, code); err != nil {
		t.Fatalf("SaveAuthorizationCode() error = %v", err)
	}

	got, err := s.ConsumeAuthorizationCode(ctx, code.Code)
	if err != nil {
		t.Fatalf("ConsumeAuthorizationCode() error = %v", err)
	}
	if got.Subject != code.Subject {
		t.Errorf("Subject = %q, want %q", got.Subject, code.Subject)
	}
	if got.CodeChallenge != code.CodeChallenge {
		t.Errorf("CodeChallenge = %q, want %q", got.CodeChallenge, code.CodeChallenge)
	}

	if _, err := s.ConsumeAuthorizationCode(ctx, code.Code); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second consume: err = %v, want ErrNotFound", err)
	}
}

func TestAuthorizationCodeTTL(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	code := testutil.GenerateTestAuthorizationCode()
	code.ExpiresAt = time.Now().Add(storage.AuthorizationCodeTTL)
	if err := s.SaveAuthorizationCode(ctx, code); err != nil {
		t.Fatalf("SaveAuthorizationCode() error = %v", err)
	}

	mr.FastForward(storage.AuthorizationCodeTTL + time.Minute)

	if _, err := s.ConsumeAuthorizationCode(ctx, code.Code); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err after TTL = %v, want ErrNotFound", err)
	}
}

func TestClientRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	client := testutil.GenerateTestClient()
	if err := s.SaveClient(ctx, client); err != nil {
		t.Fatalf("SaveClient() error = %v", err)
	}

	got, err := s.GetClient(ctx, client.ClientID)
	if err != nil {
		t.Fatalf("GetClient() error = %v", err)
	}
	if got.ClientName != client.ClientName {
		t.Errorf("ClientName = %q, want %q", got.ClientName, client.ClientName)
	}
	if got.TokenEndpointAuthMethod != "none" {
		t.Errorf("TokenEndpointAuthMethod = %q, want %q", got.TokenEndpointAuthMethod, "none")
	}

	if _, err := s.GetClient(ctx, "unknown"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRefreshTokenLifecycle(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	rt := testutil.GenerateTestRefreshToken()
	if err := s.SaveRefreshToken(ctx, rt); err != nil {
		t.Fatalf("SaveRefreshToken() error = %v", err)
	}

	got, err := s.GetRefreshToken(ctx, rt.Token)
	if err != nil {
		t.Fatalf("GetRefreshToken() error = %v", err)
	}
	if got.Audience != rt.Audience {
		t.Errorf("Audience = %q, want %q", got.Audience, rt.Audience)
	}

	if err := s.RevokeRefreshToken(ctx, rt.Token); err != nil {
		t.Fatalf("RevokeRefreshToken() error = %v", err)
	}
	if _, err := s.GetRefreshToken(ctx, rt.Token); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err after revoke = %v, want ErrNotFound", err)
	}
}

func TestRefreshTokenNativeTTL(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	rt := testutil.GenerateTestRefreshToken()
	rt.ExpiresAt = time.Now().Add(time.Hour)
	if err := s.SaveRefreshToken(ctx, rt); err != nil {
		t.Fatalf("SaveRefreshToken() error = %v", err)
	}

	mr.FastForward(2 * time.Hour)

	if _, err := s.GetRefreshToken(ctx, rt.Token); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err after TTL = %v, want ErrNotFound", err)
	}
}

func TestSaveSkipsDeadArtifacts(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	pa := testutil.GenerateTestPendingAuth()
	pa.ExpiresAt = time.Now().Add(-time.Second)
	if err := s.SavePendingAuth(ctx, pa); err != nil {
		t.Fatalf("SavePendingAuth() error = %v", err)
	}

	if mr.Exists(DefaultKeyPrefix + "pending:" + pa.InternalState) {
		t.Error("expired artifact was written to the store")
	}
}

func TestBuildOptionsFromURL(t *testing.T) {
	opts, err := buildOptions(Config{URL: "redis://:secret@example.com:6380/2"})
	if err != nil {
		t.Fatalf("buildOptions() error = %v", err)
	}
	if opts.Addr != "example.com:6380" {
		t.Errorf("Addr = %q, want %q", opts.Addr, "example.com:6380")
	}
	if opts.Password != "secret" {
		t.Errorf("Password = %q, want %q", opts.Password, "secret")
	}
	if opts.DB != 2 {
		t.Errorf("DB = %d, want 2", opts.DB)
	}
}

func TestBuildOptionsRequiresAddress(t *testing.T) {
	if _, err := buildOptions(Config{}); err == nil {
		t.Fatal("expected error for empty config")
	}
}
