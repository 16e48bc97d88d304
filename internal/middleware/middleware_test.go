package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kartikbazzad/bunbase/marketplace/internal/auth"
	"github.com/kartikbazzad/bunbase/marketplace/internal/authz"
	"github.com/kartikbazzad/bunbase/marketplace/internal/models"
	"github.com/kartikbazzad/bunbase/marketplace/pkg/logger"
)

const testSecret = "middleware-secret-0123456789abcdef01"

func init() {
	gin.SetMode(gin.TestMode)
}

func newProtectedRouter(t *testing.T) (*gin.Engine, *auth.Issuer) {
	t.Helper()
	issuer, err := auth.NewIssuer(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	enforcer, err := authz.NewEnforcer()
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}

	r := gin.New()
	g := r.Group("/api", BearerAuth(issuer), Authorize(enforcer))
	g.GET("/buyer/requests", func(c *gin.Context) {
		claims, _ := GetClaims(c)
		c.JSON(http.StatusOK, gin.H{"sub": claims.Subject})
	})
	return r, issuer
}

func do(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/buyer/requests", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v (%s)", err, rec.Body.String())
	}
	return body["error"]
}

func TestBearerAuth(t *testing.T) {
	r, issuer := newProtectedRouter(t)
	buyerToken, _ := issuer.Issue("b1", "b@example.com", models.RoleBuyer)
	agentToken, _ := issuer.Issue("a1", "a@example.com", models.RoleAgent)

	tests := []struct {
		name   string
		header string
		code   int
		msg    string
	}{
		{"missing", "", http.StatusUnauthorized, "Access token required"},
		{"not bearer", "Basic abc", http.StatusUnauthorized, "Access token required"},
		{"invalid", "Bearer garbage", http.StatusForbidden, "Invalid or expired token"},
		{"wrong role", "Bearer " + agentToken, http.StatusForbidden, "Access denied"},
		{"ok", "bearer " + buyerToken, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(r, tt.header)
			if rec.Code != tt.code {
				t.Fatalf("code = %d, want %d (%s)", rec.Code, tt.code, rec.Body.String())
			}
			if tt.msg != "" {
				if got := errorOf(t, rec); got != tt.msg {
					t.Errorf("error = %q, want %q", got, tt.msg)
				}
			}
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.POST("/login", RateLimitMiddleware(60, 2), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}

	// Another client has its own bucket.
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("second client code = %d, want 200", rec.Code)
	}
}

func TestRateLimiter_SweepsIdle(t *testing.T) {
	rl := NewRateLimiter(1, 1, time.Minute)
	now := time.Now()
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	now = now.Add(2 * time.Minute)
	rl.Allow("b")

	rl.mu.Lock()
	_, kept := rl.limiters["a"]
	rl.mu.Unlock()
	if kept {
		t.Error("idle limiter was not swept")
	}
}

func TestRequestLogger_SetsRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(logger.Discard()))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "req-123" {
		t.Errorf("X-Request-ID = %q, want req-123", got)
	}
}
