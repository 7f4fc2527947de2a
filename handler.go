package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/hazelcast/docs-mcp-oauth/instrumentation"
	"github.com/hazelcast/docs-mcp-oauth/security"
)

// Handler is the HTTP adapter for the authorization server. It parses
// requests, applies rate limiting and response hardening, and delegates
// the flow logic to Server.
type Handler struct {
	server  *Server
	logger  *slog.Logger
	limiter *security.RateLimiter
	metrics *instrumentation.Metrics
}

// NewHandler creates the HTTP adapter. A rate limiter is started when
// the configuration enables one; call Close to stop it.
func NewHandler(server *Server) *Handler {
	h := &Handler{
		server: server,
		logger: server.config.Logger,
	}
	if rl := server.config.RateLimit; rl.Rate > 0 {
		h.limiter = security.NewRateLimiter(rl.Rate, rl.Burst, h.logger)
	}
	return h
}

// SetInstrumentation wires HTTP metrics. Optional.
func (h *Handler) SetInstrumentation(inst *instrumentation.Instrumentation) {
	if inst == nil {
		return
	}
	h.metrics = inst.Metrics()
}

// Close stops the rate limiter goroutine.
func (h *Handler) Close() {
	if h.limiter != nil {
		h.limiter.Stop()
	}
}

// ServeAuthorizationServerMetadata serves the RFC 8414 discovery document.
func (h *Handler) ServeAuthorizationServerMetadata(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.setCORSHeaders(w, r)
	h.writeJSON(w, http.StatusOK, h.server.AuthorizationServerMetadata())
}

// ServeProtectedResourceMetadata serves the RFC 9728 discovery document.
func (h *Handler) ServeProtectedResourceMetadata(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.setCORSHeaders(w, r)
	h.writeJSON(w, http.StatusOK, h.server.ProtectedResourceMetadata())
}

// ServeAuthorization handles GET /authorize.
func (h *Handler) ServeAuthorization(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.allow(w, r, "authorization") {
		return
	}

	q := r.URL.Query()
	req := &AuthorizeRequest{
		ResponseType:        q.Get("response_type"),
		ClientID:            q.Get("client_id"),
		RedirectURI:         q.Get("redirect_uri"),
		State:               q.Get("state"),
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: q.Get("code_challenge_method"),
		Scope:               q.Get("scope"),
		Resource:            q.Get("resource"),
	}

	authURL, oauthErr := h.server.StartAuthorization(r.Context(), req)
	if oauthErr != nil {
		h.recordHTTP("authorization", r.Method, oauthErr.Status, start)
		h.writeOAuthError(w, oauthErr)
		return
	}

	h.recordHTTP("authorization", r.Method, http.StatusFound, start)
	http.Redirect(w, r, authURL, http.StatusFound)
}

// ServeCallback handles GET /callback, the return leg from the identity
// provider.
func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()

	// Provider-reported errors have no pending flow to redeem; report
	// them directly.
	if errorParam := q.Get("error"); errorParam != "" {
		desc := q.Get("error_description")
		h.logger.Warn("provider returned error", "error", errorParam, "description", desc)
		h.recordHTTP("callback", r.Method, http.StatusBadRequest, start)
		h.writeError(w, errorParam, desc, http.StatusBadRequest)
		return
	}

	redirectURL, oauthErr := h.server.HandleProviderCallback(r.Context(), q.Get("code"), q.Get("state"))
	if oauthErr != nil {
		h.recordHTTP("callback", r.Method, oauthErr.Status, start)
		h.writeOAuthError(w, oauthErr)
		return
	}

	h.recordHTTP("callback", r.Method, http.StatusFound, start)
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

// tokenRequest carries the token endpoint parameters, accepted both as
// form fields and as a JSON body.
type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	Code         string `json:"code"`
	CodeVerifier string `json:"code_verifier"`
	RedirectURI  string `json:"redirect_uri"`
	RefreshToken string `json:"refresh_token"`
}

// ServeToken handles POST /token plus its CORS preflight.
func (h *Handler) ServeToken(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method == http.MethodOptions {
		h.servePreflight(w, r)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.setCORSHeaders(w, r)
	if !h.allow(w, r, "token") {
		return
	}

	req, err := parseTokenRequest(r)
	if err != nil {
		h.recordHTTP("token", r.Method, http.StatusBadRequest, start)
		h.writeOAuthError(w, ErrInvalidRequest("failed to parse request body"))
		return
	}

	var resp *TokenResponse
	var oauthErr *OAuthError

	switch req.GrantType {
	case "authorization_code":
		resp, oauthErr = h.server.ExchangeAuthorizationCode(r.Context(), req.Code, req.CodeVerifier, req.RedirectURI)
	case "refresh_token":
		resp, oauthErr = h.server.RefreshAccessToken(r.Context(), req.RefreshToken)
	default:
		oauthErr = ErrUnsupportedGrantType(fmt.Sprintf("grant_type %q is not supported", req.GrantType))
	}

	if oauthErr != nil {
		h.recordHTTP("token", r.Method, oauthErr.Status, start)
		h.writeOAuthError(w, oauthErr)
		return
	}

	h.recordHTTP("token", r.Method, http.StatusOK, start)
	h.writeJSON(w, http.StatusOK, resp)
}

// parseTokenRequest reads the token endpoint parameters from either a
// JSON body or a urlencoded form.
func parseTokenRequest(r *http.Request) (*tokenRequest, error) {
	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if contentType == "application/json" {
		var req tokenRequest
		if err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 64*1024)).Decode(&req); err != nil {
			return nil, err
		}
		return &req, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	return &tokenRequest{
		GrantType:    r.FormValue("grant_type"),
		Code:         r.FormValue("code"),
		CodeVerifier: r.FormValue("code_verifier"),
		RedirectURI:  r.FormValue("redirect_uri"),
		RefreshToken: r.FormValue("refresh_token"),
	}, nil
}

// ServeClientRegistration handles POST /register per RFC 7591.
func (h *Handler) ServeClientRegistration(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method == http.MethodOptions {
		h.servePreflight(w, r)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.setCORSHeaders(w, r)
	if !h.allow(w, r, "register") {
		return
	}

	var req ClientRegistrationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64*1024)).Decode(&req); err != nil {
		h.recordHTTP("register", r.Method, http.StatusBadRequest, start)
		h.writeOAuthError(w, ErrInvalidRequest("invalid JSON body"))
		return
	}

	resp, oauthErr := h.server.RegisterClient(r.Context(), &req)
	if oauthErr != nil {
		h.recordHTTP("register", r.Method, oauthErr.Status, start)
		h.writeOAuthError(w, oauthErr)
		return
	}

	h.recordHTTP("register", r.Method, http.StatusCreated, start)
	h.writeJSON(w, http.StatusCreated, resp)
}

// allow applies per-IP rate limiting. Returns false after writing the
// 429 response.
func (h *Handler) allow(w http.ResponseWriter, r *http.Request, endpoint string) bool {
	if h.limiter == nil {
		return true
	}
	rl := h.server.config.RateLimit
	ip := security.GetClientIP(r, rl.TrustProxy, rl.TrustedProxyCount)
	if h.limiter.Allow(ip) {
		return true
	}

	h.metrics.RecordRateLimitExceeded(r.Context(), endpoint)
	h.logger.Warn("rate limit exceeded", "ip", ip, "endpoint", endpoint)
	h.writeOAuthError(w, ErrRateLimitExceeded("too many requests, slow down"))
	return false
}

// setCORSHeaders allows browser-based public clients to reach the OAuth
// endpoints. The specific origin is echoed back instead of a wildcard so
// caches keep responses per origin.
func (h *Handler) setCORSHeaders(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Add("Vary", "Origin")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func (h *Handler) servePreflight(w http.ResponseWriter, r *http.Request) {
	h.setCORSHeaders(w, r)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	security.SetSecurityHeaders(w, h.server.config.BaseURL)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeOAuthError(w http.ResponseWriter, oauthErr *OAuthError) {
	h.writeError(w, oauthErr.Code, oauthErr.Description, oauthErr.Status)
}

func (h *Handler) writeError(w http.ResponseWriter, code, description string, status int) {
	h.writeJSON(w, status, &ErrorResponse{
		Error:            code,
		ErrorDescription: description,
	})
}

func (h *Handler) recordHTTP(endpoint, method string, status int, start time.Time) {
	if h.metrics == nil {
		return
	}
	duration := time.Since(start).Seconds() * 1000
	h.metrics.RecordHTTPRequest(context.Background(), method, endpoint, status, duration)
}
