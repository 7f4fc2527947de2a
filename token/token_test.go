package token

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestSigner(t *testing.T) *Signer {
	t.Helper()
	s, err := NewSigner(testSecret)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	return s
}

func TestNewSignerRejectsShortSecret(t *testing.T) {
	if _, err := NewSigner([]byte("too-short")); err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	s := newTestSigner(t)

	claims := NewClaims(TypeAccess, "12345", "dev@example.com", "Dev User",
		"https://mcp.example.com/mcp", "mcp:query", time.Hour)
	signed, err := s.Sign(claims)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	got, err := s.Verify(signed, "https://mcp.example.com/mcp")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.Subject != "12345" {
		t.Errorf("sub = %q, want %q", got.Subject, "12345")
	}
	if got.Email != "dev@example.com" {
		t.Errorf("email = %q, want %q", got.Email, "dev@example.com")
	}
	if got.TokenType != TypeAccess {
		t.Errorf("token_type = %q, want %q", got.TokenType, TypeAccess)
	}
	if got.Scope != "mcp:query" {
		t.Errorf("scope = %q, want %q", got.Scope, "mcp:query")
	}
}

func TestNewClaimsSignUniquePerIssuance(t *testing.T) {
	s := newTestSigner(t)

	// Same subject, audience, and scope within the same second: the jti
	// must still make every signed token distinct, or rotating a refresh
	// token would re-persist the string that was just revoked.
	first := NewClaims(TypeRefresh, "12345", "dev@example.com", "Dev User",
		"https://mcp.example.com/mcp", "mcp:query", time.Hour)
	second := NewClaims(TypeRefresh, "12345", "dev@example.com", "Dev User",
		"https://mcp.example.com/mcp", "mcp:query", time.Hour)

	if first.ID == "" {
		t.Fatal("jti is empty")
	}
	if first.ID == second.ID {
		t.Errorf("jti reused across issuances: %q", first.ID)
	}

	signedFirst, err := s.Sign(first)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	signedSecond, err := s.Sign(second)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if signedFirst == signedSecond {
		t.Error("identical claim inputs produced identical signed tokens")
	}
}

func TestVerifyRejectsWrongAudience(t *testing.T) {
	s := newTestSigner(t)

	claims := NewClaims(TypeAccess, "12345", "", "", "https://other.example.com/mcp", "mcp:query", time.Hour)
	signed, err := s.Sign(claims)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	_, err = s.Verify(signed, "https://mcp.example.com/mcp")
	if !errors.Is(err, ErrAudienceMismatch) {
		t.Errorf("err = %v, want ErrAudienceMismatch", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	s := newTestSigner(t)

	claims := NewClaims(TypeAccess, "12345", "", "", "https://mcp.example.com/mcp", "mcp:query", -time.Minute)
	signed, err := s.Sign(claims)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	_, err = s.Verify(signed, "https://mcp.example.com/mcp")
	if !errors.Is(err, ErrExpired) {
		t.Errorf("err = %v, want ErrExpired", err)
	}
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	s := newTestSigner(t)

	claims := NewClaims(TypeAccess, "12345", "", "", "https://mcp.example.com/mcp", "mcp:query", time.Hour)
	signed, err := s.Sign(claims)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	// Flip a character in the signature segment.
	parts := strings.Split(signed, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = s.Verify(tampered, "https://mcp.example.com/mcp")
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsOtherSecret(t *testing.T) {
	s := newTestSigner(t)
	other, err := NewSigner([]byte("ffffffffffffffffffffffffffffffff"))
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	claims := NewClaims(TypeAccess, "12345", "", "", "https://mcp.example.com/mcp", "mcp:query", time.Hour)
	signed, err := other.Sign(claims)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if _, err := s.Verify(signed, "https://mcp.example.com/mcp"); err == nil {
		t.Error("expected verification failure for foreign signature")
	}
}

func TestHasScope(t *testing.T) {
	tests := []struct {
		scope    string
		required string
		want     bool
	}{
		{"mcp:query", "mcp:query", true},
		{"mcp:query other:scope", "mcp:query", true},
		{"other:scope mcp:query", "mcp:query", true},
		{"other:scope", "mcp:query", false},
		{"", "mcp:query", false},
		{"mcp:queryx", "mcp:query", false},
	}
	for _, tt := range tests {
		c := &Claims{Scope: tt.scope}
		if got := c.HasScope(tt.required); got != tt.want {
			t.Errorf("HasScope(%q, %q) = %v, want %v", tt.scope, tt.required, got, tt.want)
		}
	}
}

func TestFromAuthorizationHeader(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc123", "abc123", true},
		{"bearer abc123", "abc123", true},
		{"BEARER abc123", "abc123", true},
		{"Bearer ", "", false},
		{"Basic abc123", "", false},
		{"", "", false},
		{"abc123", "", false},
	}
	for _, tt := range tests {
		got, ok := FromAuthorizationHeader(tt.header)
		if got != tt.want || ok != tt.ok {
			t.Errorf("FromAuthorizationHeader(%q) = (%q, %v), want (%q, %v)", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}
