package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/timingle-admin/internal/authz"
	"github.com/iliyamo/timingle-admin/internal/config"
	"github.com/iliyamo/timingle-admin/internal/model"
	"github.com/iliyamo/timingle-admin/internal/utils"
)

func newServer(t *testing.T) (*echo.Echo, *utils.TokenService) {
	t.Helper()
	tokens := utils.NewTokenService("mw-secret", time.Hour)
	e := echo.New()
	g := e.Group("/api", AdminAuth(authz.NewGate(tokens)))
	g.GET("/me", func(c echo.Context) error {
		p, _ := PrincipalFrom(c)
		return c.JSON(http.StatusOK, echo.Map{"id": p.ID})
	})
	g.DELETE("/users/:id", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, RequireSuperAdmin())
	return e, tokens
}

func bearer(t *testing.T, tokens *utils.TokenService, role model.Role) string {
	t.Helper()
	tok, err := tokens.Issue(3, role, "01000000003")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return "Bearer " + tok.Token
}

func TestAdminAuth(t *testing.T) {
	e, tokens := newServer(t)
	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing header", "", http.StatusUnauthorized, "Authorization header required"},
		{"garbage", "Bearer nope", http.StatusUnauthorized, "Invalid or expired token"},
		{"customer", bearer(t, tokens, model.RoleUser), http.StatusForbidden, "Admin access required"},
		{"admin", bearer(t, tokens, model.RoleAdmin), http.StatusOK, `"id":3`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("Expected status %d, got %d", tt.status, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.body) {
				t.Errorf("body %q missing %q", rec.Body.String(), tt.body)
			}
		})
	}
}

func TestRequireSuperAdmin(t *testing.T) {
	e, tokens := newServer(t)
	for role, want := range map[model.Role]int{
		model.RoleAdmin:      http.StatusForbidden,
		model.RoleSuperAdmin: http.StatusNoContent,
	} {
		req := httptest.NewRequest(http.MethodDelete, "/api/users/9", nil)
		req.Header.Set(echo.HeaderAuthorization, bearer(t, tokens, role))
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("%s: expected %d, got %d", role, want, rec.Code)
		}
	}
}

func TestTokenBucketPassesThroughWithoutRedis(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute}
	mw := NewTokenBucket(cfg, LoginBucket(cfg), nil)
	e := echo.New()
	e.POST("/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, mw)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set(echo.HeaderXRealIP, "203.0.113.7")
	c := e.NewContext(req, httptest.NewRecorder())

	cfg := config.RateLimitConfig{Capacity: 10, RefillTokens: 1, RefillInterval: time.Second}
	if got := buildRateKey("rl", LoginBucket(cfg), c); got != "rl:login:ip:203.0.113.7" {
		t.Errorf("unexpected login key %q", got)
	}
	if got := buildRateKey("rl", APIBucket(cfg), c); got != "rl:api:ip:203.0.113.7:admin:anon" {
		t.Errorf("unexpected anonymous api key %q", got)
	}
	c.Set(principalKey, model.Principal{ID: 42, Role: model.RoleAdmin})
	if got := buildRateKey("rl", APIBucket(cfg), c); got != "rl:api:ip:203.0.113.7:admin:42" {
		t.Errorf("unexpected api key %q", got)
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	if got := retryAfterSeconds(1500); got != 2 {
		t.Errorf("expected 2, got %d", got)
	}
	if got := retryAfterSeconds(-5); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}
