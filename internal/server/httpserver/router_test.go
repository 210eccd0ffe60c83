package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/valtok-go/internal/server/httpserver/handler"
	"github.com/yndnr/valtok-go/internal/telemetry/metric"
	"github.com/yndnr/valtok-go/pkg/dataprotect"
	"github.com/yndnr/valtok-go/pkg/token"
)

type testServer struct {
	handler  http.Handler
	registry *metric.Registry
	keys     *dataprotect.Swappable
}

func newTestServer(t *testing.T, mutate func(*RouterConfig)) *testServer {
	t.Helper()
	key, err := dataprotect.GenerateKey("")
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	ring, err := dataprotect.NewKeyRing(key.ID, key)
	if err != nil {
		t.Fatalf("NewKeyRing() error = %v", err)
	}
	keys := dataprotect.NewSwappable(ring)
	registry := metric.NewRegistry()

	provider, err := token.NewProvider(keys, token.WithSink(registry))
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	cfg := DefaultRouterConfig()
	cfg.Tokens = provider
	cfg.Stamps = token.NewStampGenerator(nil)
	cfg.Ready = func() bool { return keys.Load() != nil }
	cfg.Recorder = registry
	cfg.MetricsHandler = registry.Handler()
	cfg.OnRateLimited = registry.IncRateLimited
	if mutate != nil {
		mutate(cfg)
	}
	return &testServer{handler: NewRouter(cfg), registry: registry, keys: keys}
}

func (s *testServer) post(t *testing.T, path, body string, headers ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var resp handler.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("body is not JSON: %q", rec.Body.String())
	}
	data, _ := resp.Data.(map[string]any)
	return rec, data
}

func TestRouter_IssueAndValidate(t *testing.T) {
	s := newTestServer(t, nil)

	rec, data := s.post(t, "/v1/stamps", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("stamps status = %d", rec.Code)
	}
	stamp, _ := data["security_stamp"].(string)
	if len(stamp) != 32 {
		t.Fatalf("security_stamp = %q", stamp)
	}

	rec, data = s.post(t, "/v1/tokens",
		`{"purpose":"ConfirmEmail","resource_id":"user-42","security_stamp":"`+stamp+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("generate status = %d, body %s", rec.Code, rec.Body)
	}
	tok, _ := data["token"].(string)
	if tok == "" || data["expires_at"] == nil {
		t.Fatalf("generate data = %v", data)
	}

	tests := []struct {
		name     string
		purpose  string
		resource string
		stamp    string
		want     bool
	}{
		{"match", "ConfirmEmail", "user-42", stamp, true},
		{"wrong purpose", "ResetPassword", "user-42", stamp, false},
		{"wrong resource", "ConfirmEmail", "user-43", stamp, false},
		{"rotated stamp", "ConfirmEmail", "user-42", token.NewSecurityStamp(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(map[string]string{
				"token": tok, "purpose": tt.purpose, "resource_id": tt.resource, "security_stamp": tt.stamp,
			})
			rec, data := s.post(t, "/v1/tokens/validate", string(body))
			if rec.Code != http.StatusOK {
				t.Fatalf("validate status = %d", rec.Code)
			}
			if data["valid"] != tt.want {
				t.Errorf("valid = %v, want %v", data["valid"], tt.want)
			}
			if len(data) != 1 {
				t.Errorf("validate response exposes more than validity: %v", data)
			}
		})
	}

	if got := testutil.ToFloat64(s.registry.TokenOps.WithLabelValues("validate", "purpose_mismatch")); got != 1 {
		t.Errorf("purpose_mismatch count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(s.registry.RequestsTotal.WithLabelValues("POST", "/v1/tokens", "200")); got != 1 {
		t.Errorf("requests_total for /v1/tokens = %v, want 1", got)
	}
}

func TestRouter_NullField(t *testing.T) {
	s := newTestServer(t, nil)
	rec, _ := s.post(t, "/v1/tokens", `{"purpose":null,"resource_id":"r","security_stamp":"s"}`)
	if rec.Code != http.StatusBadRequest || rec.Header().Get("X-Error-Code") != "VT-ARG-4001" {
		t.Errorf("null purpose = %d %q", rec.Code, rec.Header().Get("X-Error-Code"))
	}
}

func TestRouter_Auth(t *testing.T) {
	s := newTestServer(t, func(c *RouterConfig) { c.APIKeys = []string{"k-1"} })

	if rec, _ := s.post(t, "/v1/stamps", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("without key = %d, want 401", rec.Code)
	}
	if rec, _ := s.post(t, "/v1/stamps", "", "Authorization", "Bearer k-1"); rec.Code != http.StatusOK {
		t.Errorf("with key = %d, want 200", rec.Code)
	}

	// Health stays open.
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health = %d", rec.Code)
	}
}

func TestRouter_RateLimit(t *testing.T) {
	s := newTestServer(t, func(c *RouterConfig) {
		c.RateLimit = 0.001
		c.RateBurst = 1
	})

	if rec, _ := s.post(t, "/v1/stamps", ""); rec.Code != http.StatusOK {
		t.Fatalf("first = %d", rec.Code)
	}
	rec, _ := s.post(t, "/v1/stamps", "")
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Errorf("second = %d, want 429 with Retry-After", rec.Code)
	}
	if got := testutil.ToFloat64(s.registry.RateLimited); got != 1 {
		t.Errorf("rate_limited_total = %v, want 1", got)
	}
}

func TestRouter_ReadyAndMetrics(t *testing.T) {
	s := newTestServer(t, nil)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	if rec := get("/ready"); rec.Code != http.StatusOK {
		t.Errorf("ready = %d", rec.Code)
	}
	s.keys.Store(nil)
	if rec := get("/ready"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready without ring = %d, want 503", rec.Code)
	}

	rec := get("/metrics")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Errorf("metrics = %d", rec.Code)
	}

	if rec := get("/v1/tokens"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /v1/tokens = %d, want 405", rec.Code)
	}
}

func TestRouter_MetricsDisabled(t *testing.T) {
	s := newTestServer(t, func(c *RouterConfig) { c.MetricsHandler = nil })
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("metrics when disabled = %d, want 404", rec.Code)
	}
}
