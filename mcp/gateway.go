// Package mcp implements the protected JSON-RPC resource endpoint. The
// gateway verifies bearer tokens minted by the authorization server,
// enforces the required scope, and dispatches MCP protocol requests
// (initialize, tools/list, tools/call) to the documentation search backend.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hazelcast/docs-mcp-oauth/token"
)

// JSON-RPC 2.0 error codes used by the gateway.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

// DefaultRequiredScope gates access to the search tool.
const DefaultRequiredScope = "mcp:query"

// protocolVersion is the MCP protocol revision the gateway speaks.
const protocolVersion = "2024-11-05"

// maxRequestBytes bounds the accepted JSON-RPC request body.
const maxRequestBytes = 1 << 20

// SearchToolName is the single tool the gateway exposes.
const SearchToolName = "search_docs"

// Backend answers tool invocations. Implementations must return a JSON
// payload even on failure; the gateway embeds it into the RPC result
// verbatim.
type Backend interface {
	Retrieve(ctx context.Context, query string) json.RawMessage
}

// Config holds gateway configuration.
type Config struct {
	// Signer verifies inbound bearer tokens (required).
	Signer *token.Signer

	// Resource is the canonical resource URL tokens must be bound to
	// via their audience claim (required).
	Resource string

	// ResourceMetadataURL is advertised in WWW-Authenticate challenges
	// so compliant clients can discover the authorization server.
	ResourceMetadataURL string

	// RequiredScope gates tool access (default "mcp:query").
	RequiredScope string

	// Backend answers search queries (required).
	Backend Backend

	// DocsURL is where browser requests get redirected. Empty disables
	// the redirect and browsers get the 405 like everyone else.
	DocsURL string

	// ServerName and ServerVersion identify the gateway in the
	// initialize handshake and the X-MCP-Server header.
	ServerName    string
	ServerVersion string

	// Logger is the optional structured logger (default slog.Default()).
	Logger *slog.Logger
}

// Gateway is the protected JSON-RPC resource endpoint.
type Gateway struct {
	signer        *token.Signer
	resource      string
	metadataURL   string
	requiredScope string
	backend       Backend
	docsURL       string
	serverName    string
	serverVersion string
	logger        *slog.Logger
}

// New creates a gateway.
func New(cfg Config) (*Gateway, error) {
	if cfg.Signer == nil {
		return nil, fmt.Errorf("mcp: signer is required")
	}
	if cfg.Resource == "" {
		return nil, fmt.Errorf("mcp: resource is required")
	}
	if cfg.Backend == nil {
		return nil, fmt.Errorf("mcp: backend is required")
	}

	requiredScope := cfg.RequiredScope
	if requiredScope == "" {
		requiredScope = DefaultRequiredScope
	}
	serverName := cfg.ServerName
	if serverName == "" {
		serverName = "docs-mcp"
	}
	serverVersion := cfg.ServerVersion
	if serverVersion == "" {
		serverVersion = "dev"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Gateway{
		signer:        cfg.Signer,
		resource:      cfg.Resource,
		metadataURL:   cfg.ResourceMetadataURL,
		requiredScope: requiredScope,
		backend:       cfg.Backend,
		docsURL:       cfg.DocsURL,
		serverName:    serverName,
		serverVersion: serverVersion,
		logger:        logger,
	}, nil
}

// rpcRequest is an inbound JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// rpcError is a JSON-RPC 2.0 error object.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// rpcResponse is an outbound JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// ServeHTTP handles the protected resource endpoint.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-MCP-Server", g.serverName+"/"+g.serverVersion)

	if r.Method != http.MethodPost {
		// Browsers following links get sent to the documentation site
		// instead of a bare protocol error.
		if r.Method == http.MethodGet && g.docsURL != "" && acceptsHTML(r) {
			http.Redirect(w, r, g.docsURL, http.StatusFound)
			return
		}
		w.Header().Set("Allow", http.MethodPost)
		writeAuthError(w, http.StatusMethodNotAllowed, "invalid_request", "method not allowed, use POST")
		return
	}

	claims, ok := g.authorize(w, r)
	if !ok {
		return
	}

	g.serveRPC(w, r, claims)
}

// authorize runs the bearer token checks, writing the error response and
// returning ok=false when the request must not proceed.
func (g *Gateway) authorize(w http.ResponseWriter, r *http.Request) (*token.Claims, bool) {
	raw, ok := token.FromAuthorizationHeader(r.Header.Get("Authorization"))
	if !ok {
		w.Header().Set("WWW-Authenticate", g.unauthorizedChallenge())
		writeAuthError(w, http.StatusUnauthorized, "unauthorized", "authorization required")
		return nil, false
	}

	claims, err := g.signer.Verify(raw, g.resource)
	if err != nil {
		g.logger.Debug("Bearer token rejected", "error", err)
		w.Header().Set("WWW-Authenticate", g.errorChallenge("invalid_token", "the access token is invalid or expired"))
		writeAuthError(w, http.StatusUnauthorized, "invalid_token", "the access token is invalid or expired")
		return nil, false
	}

	// Refresh tokens are for the token endpoint only.
	if claims.TokenType != token.TypeAccess {
		w.Header().Set("WWW-Authenticate", g.errorChallenge("invalid_token", "not an access token"))
		writeAuthError(w, http.StatusUnauthorized, "invalid_token", "not an access token")
		return nil, false
	}

	if !claims.HasScope(g.requiredScope) {
		w.Header().Set("WWW-Authenticate", g.errorChallenge("insufficient_scope", "token lacks required scope "+g.requiredScope))
		writeAuthError(w, http.StatusForbidden, "insufficient_scope", "token lacks required scope "+g.requiredScope)
		return nil, false
	}

	return claims, true
}

func (g *Gateway) serveRPC(w http.ResponseWriter, r *http.Request, claims *token.Claims) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeParseError(w)
		return
	}

	var req rpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeParseError(w)
		return
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		writeRPC(w, http.StatusBadRequest, rpcResponse{
			JSONRPC: "2.0",
			ID:      normalizeID(req.ID),
			Error:   &rpcError{Code: codeInvalidRequest, Message: "Invalid Request"},
		})
		return
	}

	// Notifications carry no id and expect no response body.
	if strings.HasPrefix(req.Method, "notifications/") {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	g.logger.Info("MCP request",
		"method", req.Method,
		"sub", claims.Subject)

	switch req.Method {
	case "initialize":
		g.handleInitialize(w, &req)
	case "tools/list":
		g.handleToolsList(w, &req)
	case "tools/call":
		g.handleToolsCall(r.Context(), w, &req)
	case "ping":
		writeRPC(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: normalizeID(req.ID), Result: struct{}{}})
	default:
		writeRPC(w, http.StatusOK, rpcResponse{
			JSONRPC: "2.0",
			ID:      normalizeID(req.ID),
			Error:   &rpcError{Code: codeMethodNotFound, Message: "Method not found: " + req.Method},
		})
	}
}

func (g *Gateway) handleInitialize(w http.ResponseWriter, req *rpcRequest) {
	writeRPC(w, http.StatusOK, rpcResponse{
		JSONRPC: "2.0",
		ID:      normalizeID(req.ID),
		Result: map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities": map[string]any{
				"tools": map[string]any{},
			},
			"serverInfo": map[string]any{
				"name":    g.serverName,
				"version": g.serverVersion,
			},
		},
	})
}

func (g *Gateway) handleToolsList(w http.ResponseWriter, req *rpcRequest) {
	writeRPC(w, http.StatusOK, rpcResponse{
		JSONRPC: "2.0",
		ID:      normalizeID(req.ID),
		Result: map[string]any{
			"tools": []map[string]any{
				{
					"name":        SearchToolName,
					"description": "Search the product documentation and return the most relevant passages for a question.",
					"inputSchema": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"query": map[string]any{
								"type":        "string",
								"description": "The question to search the documentation for.",
							},
						},
						"required": []string{"query"},
					},
				},
			},
		},
	})
}

func (g *Gateway) handleToolsCall(ctx context.Context, w http.ResponseWriter, req *rpcRequest) {
	var params struct {
		Name      string `json:"name"`
		Arguments struct {
			Query string `json:"query"`
		} `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeRPC(w, http.StatusOK, rpcResponse{
			JSONRPC: "2.0",
			ID:      normalizeID(req.ID),
			Error:   &rpcError{Code: codeInvalidParams, Message: "Invalid params"},
		})
		return
	}
	if params.Name != SearchToolName {
		writeRPC(w, http.StatusOK, rpcResponse{
			JSONRPC: "2.0",
			ID:      normalizeID(req.ID),
			Error:   &rpcError{Code: codeInvalidParams, Message: "Unknown tool: " + params.Name},
		})
		return
	}
	if strings.TrimSpace(params.Arguments.Query) == "" {
		writeRPC(w, http.StatusOK, rpcResponse{
			JSONRPC: "2.0",
			ID:      normalizeID(req.ID),
			Error:   &rpcError{Code: codeInvalidParams, Message: "query argument is required"},
		})
		return
	}

	// Backend failures arrive as structured payloads, never as errors:
	// the RPC contract stays intact through upstream outages.
	payload := g.backend.Retrieve(ctx, params.Arguments.Query)

	writeRPC(w, http.StatusOK, rpcResponse{
		JSONRPC: "2.0",
		ID:      normalizeID(req.ID),
		Result: map[string]any{
			"content": []map[string]any{
				{"type": "text", "text": string(payload)},
			},
		},
	})
}

// ServeHealth is a liveness endpoint; no authentication required.
func (g *Gateway) ServeHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"server":  g.serverName,
		"version": g.serverVersion,
	})
}

func (g *Gateway) unauthorizedChallenge() string {
	parts := []string{fmt.Sprintf("Bearer realm=%q", g.resource)}
	if g.metadataURL != "" {
		parts = append(parts, fmt.Sprintf("resource_metadata=%q", g.metadataURL))
	}
	parts = append(parts, fmt.Sprintf("scope=%q", g.requiredScope))
	return strings.Join(parts, ", ")
}

func (g *Gateway) errorChallenge(code, description string) string {
	parts := []string{fmt.Sprintf("Bearer realm=%q", g.resource)}
	if g.metadataURL != "" {
		parts = append(parts, fmt.Sprintf("resource_metadata=%q", g.metadataURL))
	}
	parts = append(parts,
		fmt.Sprintf("error=%q", code),
		fmt.Sprintf("error_description=%q", description))
	if code == "insufficient_scope" {
		parts = append(parts, fmt.Sprintf("scope=%q", g.requiredScope))
	}
	return strings.Join(parts, ", ")
}

func acceptsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func writeAuthError(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             code,
		"error_description": description,
	})
}

func writeParseError(w http.ResponseWriter) {
	writeRPC(w, http.StatusBadRequest, rpcResponse{
		JSONRPC: "2.0",
		ID:      json.RawMessage("null"),
		Error:   &rpcError{Code: codeParseError, Message: "Parse error"},
	})
}

func writeRPC(w http.ResponseWriter, status int, resp rpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// normalizeID keeps null ids as explicit null so the response always
// carries an id member.
func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}
