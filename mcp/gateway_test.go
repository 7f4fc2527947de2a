package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hazelcast/docs-mcp-oauth/internal/testutil"
	"github.com/hazelcast/docs-mcp-oauth/token"
)

const (
	testResource    = "https://mcp.example.com/mcp"
	testMetadataURL = "https://mcp.example.com/.well-known/oauth-protected-resource"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type stubBackend struct {
	payload json.RawMessage
	lastQ   string
}

func (b *stubBackend) Retrieve(_ context.Context, query string) json.RawMessage {
	b.lastQ = query
	if b.payload != nil {
		return b.payload
	}
	return json.RawMessage(`{"search_results":[]}`)
}

func newTestGateway(t *testing.T) (*Gateway, *token.Signer, *stubBackend) {
	t.Helper()
	signer, err := token.NewSigner(testSecret)
	testutil.AssertNoError(t, err)

	backend := &stubBackend{}
	g, err := New(Config{
		Signer:              signer,
		Resource:            testResource,
		ResourceMetadataURL: testMetadataURL,
		Backend:             backend,
		DocsURL:             "https://docs.example.com",
		ServerName:          "docs-mcp",
		ServerVersion:       "1.0.0",
	})
	testutil.AssertNoError(t, err)
	return g, signer, backend
}

func accessToken(t *testing.T, signer *token.Signer, scope string) string {
	t.Helper()
	claims := token.NewClaims(token.TypeAccess, "12345", "u@example.com", "U", testResource, scope, time.Hour)
	signed, err := signer.Sign(claims)
	testutil.AssertNoError(t, err)
	return signed
}

func rpcCall(t *testing.T, g *Gateway, bearer string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader([]byte(body)))
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rr := httptest.NewRecorder()
	g.ServeHTTP(rr, req)
	return rr
}

func TestMissingAuthorizationHeader(t *testing.T) {
	g, _, _ := newTestGateway(t)

	rr := rpcCall(t, g, "", `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)

	testutil.AssertEqual(t, rr.Code, http.StatusUnauthorized)
	challenge := rr.Header().Get("WWW-Authenticate")
	testutil.AssertStringContains(t, challenge, "resource_metadata=")
	testutil.AssertStringContains(t, challenge, testMetadataURL)
	testutil.AssertStringContains(t, challenge, `scope="mcp:query"`)

	var body map[string]string
	testutil.AssertNoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	testutil.AssertEqual(t, body["error"], "unauthorized")
}

func TestInvalidSignatureRejected(t *testing.T) {
	g, _, _ := newTestGateway(t)

	other, err := token.NewSigner([]byte("ffffffffffffffffffffffffffffffff"))
	testutil.AssertNoError(t, err)
	claims := token.NewClaims(token.TypeAccess, "12345", "", "", testResource, "mcp:query", time.Hour)
	foreign, err := other.Sign(claims)
	testutil.AssertNoError(t, err)

	rr := rpcCall(t, g, foreign, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)

	testutil.AssertEqual(t, rr.Code, http.StatusUnauthorized)
	testutil.AssertStringContains(t, rr.Header().Get("WWW-Authenticate"), `error="invalid_token"`)
}

func TestAudienceMismatchRejected(t *testing.T) {
	g, signer, _ := newTestGateway(t)

	claims := token.NewClaims(token.TypeAccess, "12345", "", "", "https://other.example.com/mcp", "mcp:query", time.Hour)
	signed, err := signer.Sign(claims)
	testutil.AssertNoError(t, err)

	rr := rpcCall(t, g, signed, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)

	testutil.AssertEqual(t, rr.Code, http.StatusUnauthorized)
	var body map[string]string
	testutil.AssertNoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	testutil.AssertEqual(t, body["error"], "invalid_token")
}

func TestExpiredTokenRejected(t *testing.T) {
	g, signer, _ := newTestGateway(t)

	claims := token.NewClaims(token.TypeAccess, "12345", "", "", testResource, "mcp:query", -time.Minute)
	signed, err := signer.Sign(claims)
	testutil.AssertNoError(t, err)

	rr := rpcCall(t, g, signed, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	testutil.AssertEqual(t, rr.Code, http.StatusUnauthorized)
}

func TestRefreshTokenRejectedAtGateway(t *testing.T) {
	g, signer, _ := newTestGateway(t)

	claims := token.NewClaims(token.TypeRefresh, "12345", "", "", testResource, "mcp:query", time.Hour)
	signed, err := signer.Sign(claims)
	testutil.AssertNoError(t, err)

	rr := rpcCall(t, g, signed, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	testutil.AssertEqual(t, rr.Code, http.StatusUnauthorized)
}

func TestScopeEnforcement(t *testing.T) {
	g, signer, _ := newTestGateway(t)

	// Wrong scope entirely.
	rr := rpcCall(t, g, accessToken(t, signer, "other:scope"), `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	testutil.AssertEqual(t, rr.Code, http.StatusForbidden)
	testutil.AssertStringContains(t, rr.Header().Get("WWW-Authenticate"), `error="insufficient_scope"`)
	var body map[string]string
	testutil.AssertNoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	testutil.AssertEqual(t, body["error"], "insufficient_scope")

	// Required scope among others is fine.
	rr = rpcCall(t, g, accessToken(t, signer, "mcp:query other:scope"), `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	testutil.AssertEqual(t, rr.Code, http.StatusOK)
}

func TestParseErrorShape(t *testing.T) {
	g, signer, _ := newTestGateway(t)

	rr := rpcCall(t, g, accessToken(t, signer, "mcp:query"), `{not json`)

	testutil.AssertEqual(t, rr.Code, http.StatusBadRequest)

	var resp struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Error   *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	testutil.AssertNoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	testutil.AssertEqual(t, resp.JSONRPC, "2.0")
	testutil.AssertEqual(t, string(resp.ID), "null")
	if resp.Error == nil {
		t.Fatal("missing error object")
	}
	testutil.AssertEqual(t, resp.Error.Code, -32700)
}

func TestInitialize(t *testing.T) {
	g, signer, _ := newTestGateway(t)

	rr := rpcCall(t, g, accessToken(t, signer, "mcp:query"),
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)
	testutil.AssertEqual(t, rr.Code, http.StatusOK)

	var resp struct {
		Result struct {
			ProtocolVersion string `json:"protocolVersion"`
			ServerInfo      struct {
				Name string `json:"name"`
			} `json:"serverInfo"`
		} `json:"result"`
	}
	testutil.AssertNoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	testutil.AssertEqual(t, resp.Result.ProtocolVersion, protocolVersion)
	testutil.AssertEqual(t, resp.Result.ServerInfo.Name, "docs-mcp")
}

func TestToolsList(t *testing.T) {
	g, signer, _ := newTestGateway(t)

	rr := rpcCall(t, g, accessToken(t, signer, "mcp:query"),
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	testutil.AssertEqual(t, rr.Code, http.StatusOK)

	var resp struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	testutil.AssertNoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	if len(resp.Result.Tools) != 1 {
		t.Fatalf("tools count = %d, want 1", len(resp.Result.Tools))
	}
	testutil.AssertEqual(t, resp.Result.Tools[0].Name, SearchToolName)
}

func TestToolsCall(t *testing.T) {
	g, signer, backend := newTestGateway(t)
	backend.payload = json.RawMessage(`{"search_results":[{"title":"Maps"}]}`)

	rr := rpcCall(t, g, accessToken(t, signer, "mcp:query"),
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"search_docs","arguments":{"query":"how to configure maps"}}}`)
	testutil.AssertEqual(t, rr.Code, http.StatusOK)
	testutil.AssertEqual(t, backend.lastQ, "how to configure maps")

	var resp struct {
		Result struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"result"`
	}
	testutil.AssertNoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	if len(resp.Result.Content) != 1 {
		t.Fatalf("content count = %d, want 1", len(resp.Result.Content))
	}
	testutil.AssertStringContains(t, resp.Result.Content[0].Text, "Maps")
}

func TestToolsCallBackendErrorStaysInResult(t *testing.T) {
	g, signer, backend := newTestGateway(t)
	backend.payload = json.RawMessage(`{"error":"documentation search backend unreachable"}`)

	rr := rpcCall(t, g, accessToken(t, signer, "mcp:query"),
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"search_docs","arguments":{"query":"q"}}}`)

	// Transport stays healthy; the failure is data, not an RPC error.
	testutil.AssertEqual(t, rr.Code, http.StatusOK)
	var resp struct {
		Result *json.RawMessage `json:"result"`
		Error  *rpcError        `json:"error"`
	}
	testutil.AssertNoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	if resp.Error != nil {
		t.Errorf("unexpected RPC error: %+v", resp.Error)
	}
	if resp.Result == nil {
		t.Fatal("missing result")
	}
	testutil.AssertStringContains(t, string(*resp.Result), "backend unreachable")
}

func TestToolsCallUnknownTool(t *testing.T) {
	g, signer, _ := newTestGateway(t)

	rr := rpcCall(t, g, accessToken(t, signer, "mcp:query"),
		`{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"nope","arguments":{"query":"q"}}}`)
	testutil.AssertEqual(t, rr.Code, http.StatusOK)

	var resp struct {
		Error *rpcError `json:"error"`
	}
	testutil.AssertNoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Errorf("error = %+v, want invalid params", resp.Error)
	}
}

func TestMethodNotFound(t *testing.T) {
	g, signer, _ := newTestGateway(t)

	rr := rpcCall(t, g, accessToken(t, signer, "mcp:query"),
		`{"jsonrpc":"2.0","id":6,"method":"resources/list"}`)
	testutil.AssertEqual(t, rr.Code, http.StatusOK)

	var resp struct {
		Error *rpcError `json:"error"`
	}
	testutil.AssertNoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	if resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Errorf("error = %+v, want method not found", resp.Error)
	}
}

func TestNotificationAccepted(t *testing.T) {
	g, signer, _ := newTestGateway(t)

	rr := rpcCall(t, g, accessToken(t, signer, "mcp:query"),
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	testutil.AssertEqual(t, rr.Code, http.StatusAccepted)
}

func TestNonPOSTRejected(t *testing.T) {
	g, _, _ := newTestGateway(t)

	req := httptest.NewRequest(http.MethodDelete, "/mcp", nil)
	rr := httptest.NewRecorder()
	g.ServeHTTP(rr, req)

	testutil.AssertEqual(t, rr.Code, http.StatusMethodNotAllowed)
	testutil.AssertEqual(t, rr.Header().Get("Allow"), http.MethodPost)
}

func TestBrowserGetRedirectsToDocs(t *testing.T) {
	g, _, _ := newTestGateway(t)

	req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	rr := httptest.NewRecorder()
	g.ServeHTTP(rr, req)

	testutil.AssertEqual(t, rr.Code, http.StatusFound)
	testutil.AssertEqual(t, rr.Header().Get("Location"), "https://docs.example.com")
}

func TestHealth(t *testing.T) {
	g, _, _ := newTestGateway(t)

	req := httptest.NewRequest(http.MethodGet, "/mcp/health", nil)
	rr := httptest.NewRecorder()
	g.ServeHealth(rr, req)

	testutil.AssertEqual(t, rr.Code, http.StatusOK)
	var body map[string]string
	testutil.AssertNoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	testutil.AssertEqual(t, body["status"], "ok")
}

func TestServerHeaderAlwaysSet(t *testing.T) {
	g, _, _ := newTestGateway(t)

	rr := rpcCall(t, g, "", `{}`)
	if !strings.HasPrefix(rr.Header().Get("X-MCP-Server"), "docs-mcp/") {
		t.Errorf("X-MCP-Server = %q", rr.Header().Get("X-MCP-Server"))
	}
}
