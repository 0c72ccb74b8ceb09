package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"daypart-hub/config"
	"daypart-hub/internal/api/handler"
	"daypart-hub/internal/service"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.CORS.AllowOrigins = []string{"http://localhost:5173"}
	cfg.Server.BodyLimit = 1 << 20
	cfg.Server.MetricsPath = "/metrics"
	return cfg
}

func setupRouter(cfg *config.Config) *gin.Engine {
	h := handler.NewHandler(&service.Service{})
	return Setup(cfg, h, nil, zap.NewNop())
}

func TestSetup_Health(t *testing.T) {
	r := setupRouter(testConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestSetup_Metrics(t *testing.T) {
	r := setupRouter(testConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	cfg := testConfig()
	cfg.Server.MetricsPath = ""
	r = setupRouter(cfg)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("metrics disabled: expected 404, got %d", w.Code)
	}
}

func TestSetup_Routes(t *testing.T) {
	r := setupRouter(testConfig())

	want := map[string]bool{
		"POST /api/v1/nodes":                                        false,
		"GET /api/v1/nodes/:id/config":                              false,
		"GET /api/v1/nodes/:id/day":                                 false,
		"POST /api/v1/nodes/:id/definitions/:defId/fork":            false,
		"POST /api/v1/nodes/:id/definitions/:defId/collisions":      false,
		"POST /api/v1/nodes/:id/definitions/:defId/import":          false,
		"POST /api/v1/nodes/:id/definitions/:defId/schedules/apply": false,
		"POST /api/v1/nodes/:id/definitions/:defId/schedules/merge": false,
		"DELETE /api/v1/nodes/:id/definitions/:defId":               false,
		"GET /api/v1/nodes/:id/export/ics":                          false,
		"POST /api/v1/recurrence/occurrences":                       false,
		"POST /api/v1/advisor/merge-candidates":                     false,
	}
	for _, route := range r.Routes() {
		key := route.Method + " " + route.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for key, found := range want {
		if !found {
			t.Errorf("route not registered: %s", key)
		}
	}
}

func TestSetup_Preflight(t *testing.T) {
	r := setupRouter(testConfig())

	req := httptest.NewRequest("OPTIONS", "/api/v1/nodes", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
	if !strings.Contains(w.Header().Get("Access-Control-Allow-Headers"), "X-Operator-ID") {
		t.Errorf("expected X-Operator-ID in allowed headers, got %q", w.Header().Get("Access-Control-Allow-Headers"))
	}
}

type denyLimiter struct{ keys []string }

func (d *denyLimiter) CheckRateLimit(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	d.keys = append(d.keys, key)
	return false, nil
}

func TestSetup_RateLimitIgnoresForwardedForByDefault(t *testing.T) {
	tests := []struct {
		name    string
		proxies []string
		wantIP  string
	}{
		{"no trusted proxies", nil, "198.51.100.9"},
		{"trusted proxy", []string{"198.51.100.0/24"}, "203.0.113.50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Server.RateLimit.Limit = 1
			cfg.Server.RateLimit.Window = time.Minute
			cfg.Server.TrustedProxies = tt.proxies
			limiter := &denyLimiter{}
			r := Setup(cfg, handler.NewHandler(&service.Service{}), limiter, zap.NewNop())

			req := httptest.NewRequest("POST", "/api/v1/nodes", strings.NewReader("{}"))
			req.RemoteAddr = "198.51.100.9:5555"
			req.Header.Set("X-Forwarded-For", "203.0.113.50")
			req.Header.Set("X-Operator-ID", "op-1")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != http.StatusTooManyRequests {
				t.Fatalf("expected 429, got %d", w.Code)
			}
			want := "rate_limit:" + tt.wantIP + ":POST:/api/v1/nodes"
			if len(limiter.keys) != 1 || limiter.keys[0] != want {
				t.Errorf("expected key %q, got %v", want, limiter.keys)
			}
		})
	}
}
