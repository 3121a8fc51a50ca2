package control

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/go-otbr/go-otbr/lib/config"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := config.DefaultControlConfig
	cfg.Password = "testpass"
	cfg.Address = "localhost:0"

	s, err := NewServer(&cfg, &mockStatusProvider{status: testStatus()})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	return s
}

// postRPC drives handleRPC directly so tests do not need a live listener.
func postRPC(s *Server, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/jsonrpc", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handleRPC(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) *Response {
	t.Helper()

	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v (body %q)", err, rec.Body.String())
	}
	return &resp
}

func authenticate(t *testing.T, s *Server) string {
	t.Helper()

	rec := postRPC(s, `{"jsonrpc": "2.0", "id": 1, "method": "Authenticate", "params": {"API": 1, "Password": "testpass"}}`)
	resp := decodeResponse(t, rec)
	if resp.Error != nil {
		t.Fatalf("Authenticate failed: %v", resp.Error)
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected Authenticate result type: %T", resp.Result)
	}
	token, ok := result["Token"].(string)
	if !ok || token == "" {
		t.Fatalf("no token in Authenticate result: %v", result)
	}
	return token
}

// TestNewServerValidation verifies required configuration is enforced
func TestNewServerValidation(t *testing.T) {
	status := &mockStatusProvider{}

	if _, err := NewServer(nil, status); err == nil {
		t.Error("nil config should be rejected")
	}

	cfg := config.DefaultControlConfig
	if _, err := NewServer(&cfg, nil); err == nil {
		t.Error("nil status provider should be rejected")
	}

	cfg.Password = ""
	if _, err := NewServer(&cfg, status); err == nil {
		t.Error("empty password should be rejected")
	}
}

// TestServerDisabledStart verifies a disabled server starts and stops cleanly
func TestServerDisabledStart(t *testing.T) {
	cfg := config.DefaultControlConfig
	cfg.Enabled = false
	cfg.Password = "testpass"

	s, err := NewServer(&cfg, &mockStatusProvider{})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("disabled Start should be a no-op, got %v", err)
	}
	s.Stop()
}

// TestHandleRPCAuthFlow verifies the Authenticate -> AgentStatus flow
func TestHandleRPCAuthFlow(t *testing.T) {
	s := newTestServer(t)
	token := authenticate(t, s)

	rec := postRPC(s, `{"jsonrpc": "2.0", "id": 2, "method": "AgentStatus", "params": {"Token": "`+token+`", "otbr.agent.role": null}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status code: got %d, want 200", rec.Code)
	}

	resp := decodeResponse(t, rec)
	if resp.Error != nil {
		t.Fatalf("AgentStatus failed: %v", resp.Error)
	}

	result := resp.Result.(map[string]interface{})
	if result["otbr.agent.role"] != "leader" {
		t.Errorf("role: got %v, want \"leader\"", result["otbr.agent.role"])
	}
}

// TestHandleRPCEcho verifies Echo works with a valid token
func TestHandleRPCEcho(t *testing.T) {
	s := newTestServer(t)
	token := authenticate(t, s)

	rec := postRPC(s, `{"jsonrpc": "2.0", "id": 3, "method": "Echo", "params": {"Token": "`+token+`", "Echo": "hello"}}`)
	resp := decodeResponse(t, rec)
	if resp.Error != nil {
		t.Fatalf("Echo failed: %v", resp.Error)
	}

	result := resp.Result.(map[string]interface{})
	if result["Result"] != "hello" {
		t.Errorf("Result: got %v, want \"hello\"", result["Result"])
	}
}

// TestHandleRPCMissingToken verifies requests without a token are rejected
func TestHandleRPCMissingToken(t *testing.T) {
	s := newTestServer(t)

	rec := postRPC(s, `{"jsonrpc": "2.0", "id": 4, "method": "AgentStatus", "params": {}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status code: got %d, want 200 (JSON-RPC errors use 200)", rec.Code)
	}

	resp := decodeResponse(t, rec)
	if resp.Error == nil {
		t.Fatal("request without token should fail")
	}
	if resp.Error.Code != ErrCodeInvalidParams {
		t.Errorf("error code: got %d, want %d", resp.Error.Code, ErrCodeInvalidParams)
	}
}

// TestHandleRPCInvalidToken verifies bogus tokens are rejected
func TestHandleRPCInvalidToken(t *testing.T) {
	s := newTestServer(t)

	rec := postRPC(s, `{"jsonrpc": "2.0", "id": 5, "method": "AgentStatus", "params": {"Token": "bogus"}}`)
	resp := decodeResponse(t, rec)
	if resp.Error == nil {
		t.Fatal("bogus token should fail")
	}
	if resp.Error.Code != ErrCodeAuthRequired {
		t.Errorf("error code: got %d, want %d", resp.Error.Code, ErrCodeAuthRequired)
	}
}

// TestHandleRPCMethodNotFound verifies unknown methods are reported
func TestHandleRPCMethodNotFound(t *testing.T) {
	s := newTestServer(t)
	token := authenticate(t, s)

	rec := postRPC(s, `{"jsonrpc": "2.0", "id": 6, "method": "NoSuchMethod", "params": {"Token": "`+token+`"}}`)
	resp := decodeResponse(t, rec)
	if resp.Error == nil {
		t.Fatal("unknown method should fail")
	}
	if resp.Error.Code != ErrCodeMethodNotFound {
		t.Errorf("error code: got %d, want %d", resp.Error.Code, ErrCodeMethodNotFound)
	}
}

// TestHandleRPCWrongHTTPMethod verifies non-POST requests are rejected
func TestHandleRPCWrongHTTPMethod(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/jsonrpc", nil)
	rec := httptest.NewRecorder()
	s.handleRPC(rec, req)

	resp := decodeResponse(t, rec)
	if resp.Error == nil || resp.Error.Code != ErrCodeInvalidRequest {
		t.Errorf("GET should produce an invalid request error, got %v", resp.Error)
	}
}

// TestHandleRPCWrongContentType verifies the content type check
func TestHandleRPCWrongContentType(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/jsonrpc", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	s.handleRPC(rec, req)

	resp := decodeResponse(t, rec)
	if resp.Error == nil || resp.Error.Code != ErrCodeInvalidRequest {
		t.Errorf("text/plain should produce an invalid request error, got %v", resp.Error)
	}
}

// TestHandleRPCParseError verifies malformed JSON bodies are reported
func TestHandleRPCParseError(t *testing.T) {
	s := newTestServer(t)

	rec := postRPC(s, `{this is not json`)
	resp := decodeResponse(t, rec)
	if resp.Error == nil || resp.Error.Code != ErrCodeParseError {
		t.Errorf("malformed body should produce a parse error, got %v", resp.Error)
	}
}

// TestHandleRPCRateLimit verifies requests over the limit get -32005
func TestHandleRPCRateLimit(t *testing.T) {
	s := newTestServer(t)

	// One request per hour so the second request reliably exceeds the limit
	s.limiter = rate.NewLimiter(rate.Every(time.Hour), 1)

	rec := postRPC(s, `{"jsonrpc": "2.0", "id": 1, "method": "Authenticate", "params": {"API": 1, "Password": "testpass"}}`)
	resp := decodeResponse(t, rec)
	if resp.Error != nil {
		t.Fatalf("first request should pass: %v", resp.Error)
	}

	rec = postRPC(s, `{"jsonrpc": "2.0", "id": 2, "method": "Authenticate", "params": {"API": 1, "Password": "testpass"}}`)
	resp = decodeResponse(t, rec)
	if resp.Error == nil {
		t.Fatal("second request should be rate limited")
	}
	if resp.Error.Code != ErrCodeRateLimited {
		t.Errorf("error code: got %d, want %d", resp.Error.Code, ErrCodeRateLimited)
	}
}

// TestHandleRPCNotification verifies notifications get 204 and no body
func TestHandleRPCNotification(t *testing.T) {
	s := newTestServer(t)
	token := authenticate(t, s)

	rec := postRPC(s, `{"jsonrpc": "2.0", "method": "Echo", "params": {"Token": "`+token+`", "Echo": "fire-and-forget"}}`)
	if rec.Code != http.StatusNoContent {
		t.Errorf("status code: got %d, want 204", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("notification should have an empty body, got %q", rec.Body.String())
	}
}

// TestHandleRPCOptions verifies the CORS preflight response
func TestHandleRPCOptions(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/jsonrpc", nil)
	rec := httptest.NewRecorder()
	s.handleRPC(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status code: got %d, want 200", rec.Code)
	}
	if origin := rec.Header().Get("Access-Control-Allow-Origin"); origin != "http://localhost:0" {
		t.Errorf("allow origin: got %q", origin)
	}
	if methods := rec.Header().Get("Access-Control-Allow-Methods"); methods != "POST, OPTIONS" {
		t.Errorf("allow methods: got %q", methods)
	}
}

// TestHandleRPCResetRoundTrip verifies AgentReset reaches the provider
func TestHandleRPCResetRoundTrip(t *testing.T) {
	cfg := config.DefaultControlConfig
	cfg.Password = "testpass"

	provider := &mockStatusProvider{status: testStatus()}
	s, err := NewServer(&cfg, provider)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	token := authenticate(t, s)

	rec := postRPC(s, `{"jsonrpc": "2.0", "id": 7, "method": "AgentReset", "params": {"Token": "`+token+`", "Reset": null}}`)
	resp := decodeResponse(t, rec)
	if resp.Error != nil {
		t.Fatalf("AgentReset failed: %v", resp.Error)
	}

	if provider.resets != 1 {
		t.Errorf("resets: got %d, want 1", provider.resets)
	}
}
