package oauth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/hazelcast/docs-mcp-oauth/instrumentation"
	"github.com/hazelcast/docs-mcp-oauth/internal/randutil"
	"github.com/hazelcast/docs-mcp-oauth/providers"
	"github.com/hazelcast/docs-mcp-oauth/storage"
	"github.com/hazelcast/docs-mcp-oauth/token"
)

// internalStateBytes is the entropy of the state value sent to the
// identity provider. 32 bytes gives 256 bits.
const internalStateBytes = 32

// authorizationCodeBytes is the entropy of issued authorization codes.
const authorizationCodeBytes = 32

// Server implements the OAuth 2.1 authorization server logic. It brokers
// the authorization code flow between public clients and an upstream
// identity provider, and mints the tokens the resource gateway verifies.
type Server struct {
	config   *Config
	provider providers.Provider
	store    storage.Store
	signer   *token.Signer
	logger   *slog.Logger

	metrics *instrumentation.Metrics
	tracer  trace.Tracer
}

// NewServer creates an authorization server from the given configuration,
// upstream identity provider, and storage backend.
func NewServer(cfg *Config, provider providers.Provider, store storage.Store) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("oauth: config is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("oauth: provider is required")
	}
	if store == nil {
		return nil, fmt.Errorf("oauth: store is required")
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	signer, err := token.NewSigner(cfg.SigningSecret)
	if err != nil {
		return nil, fmt.Errorf("oauth: %w", err)
	}

	return &Server{
		config:   cfg,
		provider: provider,
		store:    store,
		signer:   signer,
		logger:   cfg.Logger,
		tracer:   tracenoop.NewTracerProvider().Tracer("oauth"),
	}, nil
}

// SetInstrumentation wires metrics and tracing. Optional; without it the
// server records nothing.
func (s *Server) SetInstrumentation(inst *instrumentation.Instrumentation) {
	if inst == nil {
		return
	}
	s.metrics = inst.Metrics()
	s.tracer = inst.Tracer("server")
}

// Signer exposes the token signer so the resource gateway can verify
// tokens minted here.
func (s *Server) Signer() *token.Signer {
	return s.signer
}

// Config returns the server configuration after defaults were applied.
func (s *Server) Config() *Config {
	return s.config
}

// AuthorizeRequest carries the query parameters of an authorization
// request.
type AuthorizeRequest struct {
	ResponseType        string
	ClientID            string
	RedirectURI         string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
	Scope               string
	Resource            string
}

// StartAuthorization validates an authorization request, persists the
// pending flow, and returns the provider URL to redirect the user to.
func (s *Server) StartAuthorization(ctx context.Context, req *AuthorizeRequest) (string, *OAuthError) {
	ctx, span := s.tracer.Start(ctx, "oauth.start_authorization")
	defer span.End()
	instrumentation.SetSpanAttributes(span,
		attribute.String(instrumentation.AttrClientID, req.ClientID),
		attribute.String(instrumentation.AttrScope, req.Scope),
	)

	if oauthErr := s.validateAuthorizeRequest(ctx, req); oauthErr != nil {
		instrumentation.RecordSpanError(span, oauthErr)
		return "", oauthErr
	}

	scope := req.Scope
	if scope == "" {
		scope = DefaultScope
	}
	resource := req.Resource
	if resource == "" {
		resource = s.config.Resource
	}

	internalState, err := randutil.String(internalStateBytes)
	if err != nil {
		instrumentation.RecordSpanError(span, err)
		return "", ErrServerError("failed to generate state")
	}

	now := time.Now()
	pending := &storage.PendingAuth{
		InternalState:       internalState,
		ClientID:            req.ClientID,
		RedirectURI:         req.RedirectURI,
		ClientState:         req.State,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: req.CodeChallengeMethod,
		Scope:               scope,
		Resource:            resource,
		CreatedAt:           now,
		ExpiresAt:           now.Add(s.config.PendingAuthTTL),
	}
	if err := s.store.SavePendingAuth(ctx, pending); err != nil {
		instrumentation.RecordSpanError(span, err)
		s.logger.Error("failed to save pending authorization", "error", err)
		return "", ErrServerError("failed to persist authorization state")
	}

	s.metrics.RecordAuthorizationStarted(ctx, req.ClientID)
	s.logger.Info("authorization flow started",
		"client_id", req.ClientID,
		"scope", scope,
		"resource", resource)

	instrumentation.SetSpanSuccess(span)
	return s.provider.AuthorizationURL(internalState), nil
}

// validateAuthorizeRequest checks an authorization request in a fixed
// order so clients get stable error codes: required parameters first,
// then response type, PKCE method, redirect URI shape, client binding,
// and finally scope.
func (s *Server) validateAuthorizeRequest(ctx context.Context, req *AuthorizeRequest) *OAuthError {
	switch {
	case req.ClientID == "":
		return ErrInvalidRequest("client_id is required")
	case req.RedirectURI == "":
		return ErrInvalidRequest("redirect_uri is required")
	case req.State == "":
		return ErrInvalidRequest("state is required")
	case req.CodeChallenge == "":
		return ErrInvalidRequest("code_challenge is required (PKCE)")
	case req.CodeChallengeMethod == "":
		return ErrInvalidRequest("code_challenge_method is required (PKCE)")
	}

	if req.ResponseType != "code" {
		return ErrUnsupportedResponseType(fmt.Sprintf("response_type %q is not supported, use \"code\"", req.ResponseType))
	}

	if req.CodeChallengeMethod != "S256" {
		return ErrInvalidRequest(fmt.Sprintf("code_challenge_method %q is not supported, use \"S256\"", req.CodeChallengeMethod))
	}

	if err := validateRedirectURI(req.RedirectURI); err != nil {
		return ErrInvalidRedirectURI(err.Error())
	}

	// Client binding is soft by default: clients that skipped dynamic
	// registration are logged and allowed through. StrictClientBinding
	// turns the mismatch into a rejection.
	client, err := s.store.GetClient(ctx, req.ClientID)
	switch {
	case err == nil:
		if !clientHasRedirectURI(client, req.RedirectURI) {
			if s.config.Security.StrictClientBinding {
				return ErrInvalidRedirectURI("redirect_uri is not registered for this client")
			}
			s.logger.Warn("redirect_uri not registered for client",
				"client_id", req.ClientID,
				"redirect_uri", req.RedirectURI)
		}
	case errors.Is(err, storage.ErrNotFound):
		if s.config.Security.StrictClientBinding {
			return ErrInvalidRequest("unknown client_id")
		}
		s.logger.Info("authorization request from unregistered client", "client_id", req.ClientID)
	default:
		s.logger.Error("client lookup failed", "client_id", req.ClientID, "error", err)
		return ErrServerError("client lookup failed")
	}

	if req.Scope != "" {
		if oauthErr := s.validateScope(req.Scope); oauthErr != nil {
			return oauthErr
		}
	}

	return nil
}

// validateScope checks every requested scope against the supported set.
func (s *Server) validateScope(scope string) *OAuthError {
	for _, requested := range strings.Fields(scope) {
		supported := false
		for _, sc := range s.config.SupportedScopes {
			if requested == sc {
				supported = true
				break
			}
		}
		if !supported {
			return ErrInvalidScope(fmt.Sprintf("scope %q is not supported", requested))
		}
	}
	return nil
}

// validateRedirectURI enforces the redirect URI shape for public clients:
// HTTPS, or plain HTTP only on loopback for local development.
func validateRedirectURI(redirectURI string) error {
	parsed, err := url.Parse(redirectURI)
	if err != nil {
		return fmt.Errorf("redirect_uri is not a valid URL")
	}
	if parsed.Fragment != "" {
		return fmt.Errorf("redirect_uri must not contain a fragment")
	}

	switch strings.ToLower(parsed.Scheme) {
	case "https":
		return nil
	case "http":
		if isLoopbackHost(parsed.Hostname()) {
			return nil
		}
		return fmt.Errorf("http redirect_uri is only allowed on loopback addresses")
	default:
		return fmt.Errorf("redirect_uri scheme %q is not allowed", parsed.Scheme)
	}
}

func isLoopbackHost(hostname string) bool {
	switch strings.ToLower(hostname) {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

func clientHasRedirectURI(client *storage.Client, redirectURI string) bool {
	for _, uri := range client.RedirectURIs {
		if uri == redirectURI {
			return true
		}
	}
	return false
}

// HandleProviderCallback finishes the upstream leg of the flow. On
// success it returns the client redirect URL carrying the authorization
// code. Failures before the pending flow is consumed return an
// *OAuthError for a direct 400 response; failures after consumption
// return a client redirect URL carrying an OAuth error code, so the
// client is always told how its flow ended.
func (s *Server) HandleProviderCallback(ctx context.Context, code, state string) (string, *OAuthError) {
	ctx, span := s.tracer.Start(ctx, "oauth.provider_callback")
	defer span.End()

	if state == "" {
		return "", ErrInvalidRequest("state is required")
	}
	if code == "" {
		return "", ErrInvalidRequest("code is required")
	}

	pending, err := s.store.ConsumePendingAuth(ctx, state)
	if err != nil {
		s.metrics.RecordCallbackProcessed(ctx, false)
		instrumentation.RecordSpanError(span, err)
		switch {
		case errors.Is(err, storage.ErrExpired):
			return "", ErrInvalidRequest("authorization request expired, restart the flow")
		case errors.Is(err, storage.ErrNotFound):
			return "", ErrInvalidRequest("unknown or already used state")
		default:
			s.logger.Error("pending authorization lookup failed", "error", err)
			return "", ErrServerError("authorization state lookup failed")
		}
	}

	instrumentation.SetSpanAttributes(span,
		attribute.String(instrumentation.AttrClientID, pending.ClientID),
		attribute.String(instrumentation.AttrProviderName, s.provider.Name()),
	)

	// From here on the pending flow is gone. The client gets told about
	// failures via its own redirect URI.
	providerToken, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		s.metrics.RecordCallbackProcessed(ctx, false)
		instrumentation.RecordSpanError(span, err)
		s.logger.Error("provider code exchange failed", "provider", s.provider.Name(), "error", err)
		return errorRedirect(pending.RedirectURI, pending.ClientState, ErrorCodeServerError, "upstream code exchange failed"), nil
	}

	user, err := s.provider.FetchUser(ctx, providerToken)
	if err != nil {
		s.metrics.RecordCallbackProcessed(ctx, false)
		instrumentation.RecordSpanError(span, err)
		s.logger.Error("provider user lookup failed", "provider", s.provider.Name(), "error", err)
		return errorRedirect(pending.RedirectURI, pending.ClientState, ErrorCodeServerError, "could not resolve user identity"), nil
	}

	if !s.isAllowedUser(user.Email) {
		s.metrics.RecordCallbackProcessed(ctx, false)
		s.logger.Warn("user not in allow-list", "login", user.Login)
		return errorRedirect(pending.RedirectURI, pending.ClientState, ErrorCodeAccessDenied, "user is not allowed to access this resource"), nil
	}

	authCode, err := randutil.String(authorizationCodeBytes)
	if err != nil {
		s.metrics.RecordCallbackProcessed(ctx, false)
		instrumentation.RecordSpanError(span, err)
		return errorRedirect(pending.RedirectURI, pending.ClientState, ErrorCodeServerError, "failed to issue authorization code"), nil
	}

	now := time.Now()
	record := &storage.AuthorizationCode{
		Code:                authCode,
		ClientID:            pending.ClientID,
		RedirectURI:         pending.RedirectURI,
		Scope:               pending.Scope,
		Resource:            pending.Resource,
		CodeChallenge:       pending.CodeChallenge,
		CodeChallengeMethod: pending.CodeChallengeMethod,
		Subject:             user.ID,
		Login:               user.Login,
		Email:               user.Email,
		Name:                user.Name,
		CreatedAt:           now,
		ExpiresAt:           now.Add(s.config.AuthorizationCodeTTL),
	}
	if err := s.store.SaveAuthorizationCode(ctx, record); err != nil {
		s.metrics.RecordCallbackProcessed(ctx, false)
		instrumentation.RecordSpanError(span, err)
		s.logger.Error("failed to save authorization code", "error", err)
		return errorRedirect(pending.RedirectURI, pending.ClientState, ErrorCodeServerError, "failed to persist authorization code"), nil
	}

	s.metrics.RecordCallbackProcessed(ctx, true)
	s.logger.Info("authorization code issued",
		"client_id", pending.ClientID,
		"login", user.Login)

	instrumentation.SetSpanSuccess(span)

	redirect, _ := url.Parse(pending.RedirectURI)
	q := redirect.Query()
	q.Set("code", authCode)
	q.Set("state", pending.ClientState)
	redirect.RawQuery = q.Encode()
	return redirect.String(), nil
}

// errorRedirect builds a client redirect URL carrying an OAuth error.
func errorRedirect(redirectURI, clientState, errorCode, description string) string {
	redirect, err := url.Parse(redirectURI)
	if err != nil {
		return redirectURI
	}
	q := redirect.Query()
	q.Set("error", errorCode)
	q.Set("error_description", description)
	if clientState != "" {
		q.Set("state", clientState)
	}
	redirect.RawQuery = q.Encode()
	return redirect.String()
}

// isAllowedUser applies the email and domain allow-lists. Empty lists
// allow everyone; matching is case-insensitive.
func (s *Server) isAllowedUser(email string) bool {
	if len(s.config.AllowedEmails) == 0 && len(s.config.AllowedDomains) == 0 {
		return true
	}
	lower := strings.ToLower(email)
	for _, allowed := range s.config.AllowedEmails {
		if lower == strings.ToLower(allowed) {
			return true
		}
	}
	if at := strings.LastIndex(lower, "@"); at >= 0 {
		domain := lower[at+1:]
		for _, allowed := range s.config.AllowedDomains {
			if domain == strings.ToLower(allowed) {
				return true
			}
		}
	}
	return false
}

// ExchangeAuthorizationCode redeems an authorization code for a token
// pair. The code is consumed before any validation result is known, so a
// failed PKCE check still burns it.
func (s *Server) ExchangeAuthorizationCode(ctx context.Context, code, codeVerifier, redirectURI string) (*TokenResponse, *OAuthError) {
	ctx, span := s.tracer.Start(ctx, "oauth.exchange_code")
	defer span.End()
	instrumentation.SetSpanAttributes(span,
		attribute.String(instrumentation.AttrGrantType, "authorization_code"),
	)

	switch {
	case code == "":
		return nil, ErrInvalidRequest("code is required")
	case codeVerifier == "":
		return nil, ErrInvalidRequest("code_verifier is required")
	case redirectURI == "":
		return nil, ErrInvalidRequest("redirect_uri is required")
	}

	record, err := s.store.ConsumeAuthorizationCode(ctx, code)
	if err != nil {
		s.metrics.RecordCodeExchanged(ctx, false)
		instrumentation.RecordSpanError(span, err)
		switch {
		case errors.Is(err, storage.ErrExpired):
			return nil, ErrInvalidGrant("authorization code expired")
		case errors.Is(err, storage.ErrNotFound):
			return nil, ErrInvalidGrant("invalid authorization code")
		default:
			s.logger.Error("authorization code lookup failed", "error", err)
			return nil, ErrServerError("authorization code lookup failed")
		}
	}

	instrumentation.SetSpanAttributes(span,
		attribute.String(instrumentation.AttrClientID, record.ClientID),
	)

	if record.RedirectURI != redirectURI {
		s.metrics.RecordCodeExchanged(ctx, false)
		return nil, ErrInvalidGrant("redirect_uri does not match the authorization request")
	}

	if !verifyPKCE(record.CodeChallenge, codeVerifier) {
		s.metrics.RecordCodeExchanged(ctx, false)
		s.metrics.RecordPKCEValidationFailed(ctx, record.ClientID)
		s.logger.Warn("PKCE verification failed", "client_id", record.ClientID)
		return nil, ErrInvalidGrant("PKCE verification failed")
	}

	resp, oauthErr := s.issueTokenPair(ctx, record.ClientID, record.Subject, record.Email, record.Name, record.Resource, record.Scope)
	if oauthErr != nil {
		s.metrics.RecordCodeExchanged(ctx, false)
		instrumentation.RecordSpanError(span, oauthErr)
		return nil, oauthErr
	}

	s.metrics.RecordCodeExchanged(ctx, true)
	s.logger.Info("authorization code exchanged",
		"client_id", record.ClientID,
		"login", record.Login)

	instrumentation.SetSpanSuccess(span)
	return resp, nil
}

// verifyPKCE checks an S256 code verifier against the stored challenge
// in constant time.
func verifyPKCE(challenge, verifier string) bool {
	hash := sha256.Sum256([]byte(verifier))
	computed := base64.RawURLEncoding.EncodeToString(hash[:])
	return subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) == 1
}

// RefreshAccessToken redeems a refresh token for a fresh token pair.
// The presented token is revoked unconditionally, so a replay after
// rotation fails even when the reissue below does too.
func (s *Server) RefreshAccessToken(ctx context.Context, refreshToken string) (*TokenResponse, *OAuthError) {
	ctx, span := s.tracer.Start(ctx, "oauth.refresh_token")
	defer span.End()
	instrumentation.SetSpanAttributes(span,
		attribute.String(instrumentation.AttrGrantType, "refresh_token"),
	)

	if refreshToken == "" {
		return nil, ErrInvalidRequest("refresh_token is required")
	}

	record, err := s.store.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		s.metrics.RecordTokenRefreshed(ctx, false)
		instrumentation.RecordSpanError(span, err)
		switch {
		case errors.Is(err, storage.ErrExpired):
			return nil, ErrInvalidGrant("refresh token expired")
		case errors.Is(err, storage.ErrNotFound):
			// Unknown tokens include ones already rotated away. A valid
			// signature on such a token points at replay.
			s.metrics.RecordRefreshReuseDetected(ctx)
			return nil, ErrInvalidGrant("invalid refresh token")
		default:
			s.logger.Error("refresh token lookup failed", "error", err)
			return nil, ErrServerError("refresh token lookup failed")
		}
	}

	instrumentation.SetSpanAttributes(span,
		attribute.String(instrumentation.AttrClientID, record.ClientID),
	)

	if err := s.store.RevokeRefreshToken(ctx, refreshToken); err != nil {
		s.logger.Error("failed to revoke rotated refresh token", "error", err)
		return nil, ErrServerError("refresh token rotation failed")
	}

	resp, oauthErr := s.issueTokenPair(ctx, record.ClientID, record.Subject, record.Email, record.Name, record.Audience, record.Scope)
	if oauthErr != nil {
		s.metrics.RecordTokenRefreshed(ctx, false)
		instrumentation.RecordSpanError(span, oauthErr)
		return nil, oauthErr
	}

	s.metrics.RecordTokenRefreshed(ctx, true)
	s.logger.Info("refresh token rotated", "client_id", record.ClientID)

	instrumentation.SetSpanSuccess(span)
	return resp, nil
}

// issueTokenPair mints a signed access token plus a rotating refresh
// token and persists the refresh token record.
func (s *Server) issueTokenPair(ctx context.Context, clientID, subject, email, name, audience, scope string) (*TokenResponse, *OAuthError) {
	accessClaims := token.NewClaims(token.TypeAccess, subject, email, name, audience, scope, s.config.AccessTokenTTL)
	accessToken, err := s.signer.Sign(accessClaims)
	if err != nil {
		s.logger.Error("failed to sign access token", "error", err)
		return nil, ErrServerError("failed to sign access token")
	}

	refreshClaims := token.NewClaims(token.TypeRefresh, subject, email, name, audience, scope, s.config.RefreshTokenTTL)
	refreshToken, err := s.signer.Sign(refreshClaims)
	if err != nil {
		s.logger.Error("failed to sign refresh token", "error", err)
		return nil, ErrServerError("failed to sign refresh token")
	}

	now := time.Now()
	record := &storage.RefreshToken{
		Token:     refreshToken,
		ClientID:  clientID,
		Subject:   subject,
		Email:     email,
		Name:      name,
		Audience:  audience,
		Scope:     scope,
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.RefreshTokenTTL),
	}
	if err := s.store.SaveRefreshToken(ctx, record); err != nil {
		s.logger.Error("failed to save refresh token", "error", err)
		return nil, ErrServerError("failed to persist refresh token")
	}

	return &TokenResponse{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.config.AccessTokenTTL.Seconds()),
		RefreshToken: refreshToken,
		Scope:        scope,
	}, nil
}

// RegisterClient registers a public client per RFC 7591. There is no
// client secret; PKCE carries the proof of possession instead.
func (s *Server) RegisterClient(ctx context.Context, req *ClientRegistrationRequest) (*ClientRegistrationResponse, *OAuthError) {
	if len(req.RedirectURIs) == 0 {
		return nil, ErrInvalidRedirectURI("at least one redirect_uri is required")
	}
	for _, uri := range req.RedirectURIs {
		if err := validateRedirectURI(uri); err != nil {
			return nil, ErrInvalidRedirectURI(fmt.Sprintf("redirect_uri %q: %v", uri, err))
		}
	}
	if req.TokenEndpointAuthMethod != "" && req.TokenEndpointAuthMethod != "none" {
		return nil, ErrInvalidRequest("only public clients are supported, use token_endpoint_auth_method \"none\"")
	}

	grantTypes := req.GrantTypes
	if len(grantTypes) == 0 {
		grantTypes = []string{"authorization_code", "refresh_token"}
	}
	responseTypes := req.ResponseTypes
	if len(responseTypes) == 0 {
		responseTypes = []string{"code"}
	}

	now := time.Now()
	client := &storage.Client{
		ClientID:                uuid.NewString(),
		ClientName:              req.ClientName,
		ClientURI:               req.ClientURI,
		RedirectURIs:            req.RedirectURIs,
		GrantTypes:              grantTypes,
		ResponseTypes:           responseTypes,
		TokenEndpointAuthMethod: "none",
		Scope:                   req.Scope,
		CreatedAt:               now,
	}
	if err := s.store.SaveClient(ctx, client); err != nil {
		s.logger.Error("failed to save client", "error", err)
		return nil, ErrServerError("failed to persist client")
	}

	s.metrics.RecordClientRegistered(ctx)
	s.logger.Info("client registered",
		"client_id", client.ClientID,
		"client_name", client.ClientName)

	return &ClientRegistrationResponse{
		ClientID:                client.ClientID,
		ClientIDIssuedAt:        now.Unix(),
		RedirectURIs:            client.RedirectURIs,
		TokenEndpointAuthMethod: "none",
		GrantTypes:              client.GrantTypes,
		ResponseTypes:           client.ResponseTypes,
		ClientName:              client.ClientName,
		Scope:                   client.Scope,
	}, nil
}

// AuthorizationServerMetadata builds the RFC 8414 metadata document.
func (s *Server) AuthorizationServerMetadata() *AuthorizationServerMetadata {
	issuer := s.config.Issuer
	return &AuthorizationServerMetadata{
		Issuer:                            issuer,
		AuthorizationEndpoint:             issuer + "/authorize",
		TokenEndpoint:                     issuer + "/token",
		RegistrationEndpoint:              issuer + "/register",
		ScopesSupported:                   s.config.SupportedScopes,
		ResponseTypesSupported:            []string{"code"},
		GrantTypesSupported:               []string{"authorization_code", "refresh_token"},
		TokenEndpointAuthMethodsSupported: []string{"none"},
		CodeChallengeMethodsSupported:     []string{"S256"},
		ServiceDocumentation:              s.config.ServiceDocumentation,
	}
}

// ProtectedResourceMetadata builds the RFC 9728 metadata document.
func (s *Server) ProtectedResourceMetadata() *ProtectedResourceMetadata {
	return &ProtectedResourceMetadata{
		Resource:               s.config.Resource,
		AuthorizationServers:   []string{s.config.Issuer},
		BearerMethodsSupported: []string{"header"},
		ScopesSupported:        s.config.SupportedScopes,
	}
}
