package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/querybox/querybox/internal/auth"
	"github.com/querybox/querybox/internal/config"
	"github.com/querybox/querybox/internal/sandbox"
)

func TestHealthEndpoint(t *testing.T) {
	cfg, err := config.Load("querybox-api", mapLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}

	h := NewHandler(cfg, Dependencies{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestReadyEndpointReturns503WhenDependencyFails(t *testing.T) {
	cfg, err := config.Load("querybox-api", mapLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}

	h := NewHandler(cfg, Dependencies{
		Readiness: func(rctx context.Context) error {
			return errors.New("dependency down")
		},
	})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/ready", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestProtectedRouteRequiresAuth(t *testing.T) {
	cfg, err := config.Load("querybox-api", mapLookup(map[string]string{
		"QUERYBOX_AUTH_REQUIRED": "true",
	}))
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}
	validator, err := auth.NewStaticAPIKeyValidator("k1:analyst:query_runner")
	if err != nil {
		t.Fatalf("validator setup failed: %v", err)
	}

	h := NewHandler(cfg, Dependencies{
		AuthMiddleware: auth.Middleware(nil, validator),
		Sandbox:        &fakeSandbox{result: sandbox.Result{Success: true}},
	})

	body := `{"query":"SELECT 1","rows":[{"a":1}]}`
	unauthResp := httptest.NewRecorder()
	h.ServeHTTP(unauthResp, httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(body)))
	if unauthResp.Code != http.StatusUnauthorized {
		t.Fatalf("unauth status = %d", unauthResp.Code)
	}

	authReq := httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(body))
	authReq.Header.Set("X-API-Key", "k1")
	authResp := httptest.NewRecorder()
	h.ServeHTTP(authResp, authReq)
	if authResp.Code != http.StatusOK {
		t.Fatalf("auth status = %d, body=%s", authResp.Code, authResp.Body.String())
	}

	var result map[string]any
	if err := json.Unmarshal(authResp.Body.Bytes(), &result); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if result["success"] != true {
		t.Fatalf("success = %v", result["success"])
	}
}

func TestProtectedRouteRequiresQueryRunnerRole(t *testing.T) {
	cfg, err := config.Load("querybox-api", mapLookup(map[string]string{
		"QUERYBOX_AUTH_REQUIRED": "true",
	}))
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}
	validator, err := auth.NewStaticAPIKeyValidator("k1:analyst:query_runner,k2:viewer-only:viewer")
	if err != nil {
		t.Fatalf("validator setup failed: %v", err)
	}

	h := NewHandler(cfg, Dependencies{
		AuthMiddleware: func(next http.Handler) http.Handler {
			return auth.Middleware(nil, validator)(auth.RequireRole(auth.RoleQueryRunner)(next))
		},
		Sandbox: &fakeSandbox{result: sandbox.Result{Success: true}},
	})

	body := `{"query":"SELECT 1","rows":[{"a":1}]}`
	for _, path := range []string{"/v1/query", "/v1/schema", "/v1/examples"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("X-API-Key", "k2")
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, req)
		if resp.Code != http.StatusForbidden {
			t.Fatalf("%s with wrong-role key: status = %d, want 403", path, resp.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(body))
	req.Header.Set("X-API-Key", "k1")
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("query_runner key: status = %d, body=%s", resp.Code, resp.Body.String())
	}
}

func TestCombineReadinessChecksStopsOnFirstFailure(t *testing.T) {
	order := make([]int, 0, 3)
	combined := CombineReadinessChecks(
		func(_ context.Context) error {
			order = append(order, 1)
			return nil
		},
		func(_ context.Context) error {
			order = append(order, 2)
			return errors.New("boom")
		},
		func(_ context.Context) error {
			order = append(order, 3)
			return nil
		},
	)

	err := combined(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("execution order = %#v", order)
	}
}

func mapLookup(values map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
