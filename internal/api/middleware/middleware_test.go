package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/reinieltalplacido/classalign/config"
	"github.com/reinieltalplacido/classalign/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ── Fakes ──

type fakeChecker struct {
	revoked map[string]bool
	err     error
}

func (f *fakeChecker) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	return f.revoked[jti], f.err
}

type fakeLimiter struct {
	counts map[string]int
	keys   []string
	err    error
}

func (f *fakeLimiter) CheckRateLimit(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.counts == nil {
		f.counts = make(map[string]int)
	}
	f.keys = append(f.keys, key)
	f.counts[key]++
	return f.counts[key] <= limit, nil
}

func newTestJWT() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret:       "test-secret-key-at-least-16",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
	})
}

// echoUser 返回中间件注入的 user_id
func echoUser(c *gin.Context) {
	c.String(http.StatusOK, c.GetString("user_id"))
}

// ── JWTAuth ──

func TestJWTAuth(t *testing.T) {
	mgr := newTestJWT()
	access, _ := mgr.GenerateAccessToken("u1", "ana@example.com")
	refresh, _ := mgr.GenerateRefreshToken("u1", "ana@example.com")

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + access, http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-token", http.StatusUnauthorized},
		{"refresh token rejected", "Bearer " + refresh, http.StatusUnauthorized},
		{"valid access token", "Bearer " + access, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/me", JWTAuth(mgr, nil), echoUser)

			req := httptest.NewRequest("GET", "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, w.Code)
			}
			if tt.status == http.StatusOK && w.Body.String() != "u1" {
				t.Errorf("expected user_id u1, got %q", w.Body.String())
			}
		})
	}
}

func TestJWTAuth_Blacklist(t *testing.T) {
	mgr := newTestJWT()
	token, _ := mgr.GenerateAccessToken("u1", "ana@example.com")
	claims, _ := mgr.ParseToken(token)

	run := func(checker TokenChecker) int {
		r := gin.New()
		r.GET("/me", JWTAuth(mgr, checker), echoUser)
		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := run(&fakeChecker{revoked: map[string]bool{claims.ID: true}}); code != http.StatusUnauthorized {
		t.Errorf("revoked token: expected 401, got %d", code)
	}
	// Redis 故障时降级放行
	if code := run(&fakeChecker{err: errors.New("redis down")}); code != http.StatusOK {
		t.Errorf("checker error: expected 200, got %d", code)
	}
}

func TestJWTAuth_RevokedSession(t *testing.T) {
	mgr := newTestJWT()
	pair, _ := mgr.IssuePair("u1", "ana@example.com", "")
	// 同一会话刷新得到的新 access 令牌
	next, _ := mgr.IssuePair("u1", "ana@example.com", pair.SessionID)
	checker := &fakeChecker{revoked: map[string]bool{pair.SessionID: true}}

	r := gin.New()
	r.GET("/me", JWTAuth(mgr, checker), echoUser)
	for _, token := range []string{pair.Access, next.Access} {
		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("revoked session: expected 401, got %d", w.Code)
		}
	}
}

func TestJWTAuth_InjectsTokenMetadata(t *testing.T) {
	mgr := newTestJWT()
	token, _ := mgr.GenerateAccessToken("u1", "ana@example.com")

	r := gin.New()
	r.GET("/me", JWTAuth(mgr, nil), func(c *gin.Context) {
		exp, _ := c.Get("token_exp")
		if c.GetString("token_id") == "" {
			t.Error("token_id should be set")
		}
		if tm, ok := exp.(time.Time); !ok || !tm.After(time.Now()) {
			t.Errorf("token_exp should be a future time, got %v", exp)
		}
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(httptest.NewRecorder(), req)
}

func TestQueryTokenAuth(t *testing.T) {
	mgr := newTestJWT()
	token, _ := mgr.GenerateAccessToken("u1", "ana@example.com")

	r := gin.New()
	r.GET("/ws", QueryTokenAuth(mgr, nil), echoUser)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/ws?token="+token, nil))
	if w.Code != http.StatusOK || w.Body.String() != "u1" {
		t.Errorf("expected 200/u1, got %d/%q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/ws", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("missing token: expected 401, got %d", w.Code)
	}
}

// ── RateLimit ──

func TestRateLimit(t *testing.T) {
	limiter := &fakeLimiter{}
	r := gin.New()
	r.POST("/assistant/action", func(c *gin.Context) {
		c.Set("user_id", c.GetHeader("X-User"))
		c.Next()
	}, RateLimit(limiter, 2, time.Minute), echoUser)

	send := func(user string) int {
		req := httptest.NewRequest("POST", "/assistant/action", nil)
		req.Header.Set("X-User", user)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 2; i++ {
		if code := send("u1"); code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, code)
		}
	}
	if code := send("u1"); code != http.StatusTooManyRequests {
		t.Errorf("third request: expected 429, got %d", code)
	}
	// 按用户独立计数
	if code := send("u2"); code != http.StatusOK {
		t.Errorf("other user: expected 200, got %d", code)
	}
	if !strings.Contains(limiter.keys[0], "u1") || !strings.HasSuffix(limiter.keys[0], "/assistant/action") {
		t.Errorf("unexpected key %q", limiter.keys[0])
	}
}

func TestRateLimit_FailsOpen(t *testing.T) {
	for name, limiter := range map[string]RateLimiter{
		"nil limiter":   nil,
		"limiter error": &fakeLimiter{err: errors.New("redis down")},
	} {
		r := gin.New()
		r.GET("/x", RateLimit(limiter, 1, time.Minute), echoUser)
		for i := 0; i < 3; i++ {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest("GET", "/x", nil))
			if w.Code != http.StatusOK {
				t.Errorf("%s: expected 200, got %d", name, w.Code)
			}
		}
	}
}

// ── BodyLimit ──

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(16))
	r.POST("/x", func(c *gin.Context) {
		var body map[string]string
		if err := c.ShouldBindJSON(&body); err != nil {
			c.Error(err)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/x", strings.NewReader(`{"a":"b"}`)))
	if w.Code != http.StatusOK {
		t.Errorf("small body: expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/x", strings.NewReader(`{"a":"`+strings.Repeat("b", 64)+`"}`)))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("large body: expected 413, got %d", w.Code)
	}
}

// ── RequestID / CORS ──

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(requestIDKey)) })

	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Body.String() != "abc-123" || w.Header().Get(requestIDHeader) != "abc-123" {
		t.Errorf("client request id should be kept, got %q", w.Body.String())
	}

	req = httptest.NewRequest("GET", "/x", nil)
	req.Header.Set(requestIDHeader, strings.Repeat("x", requestIDMaxLen+1))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if len(w.Body.String()) != 36 {
		t.Errorf("oversized request id should be replaced by a UUID, got %q", w.Body.String())
	}
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:3000/"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("OPTIONS", "/x", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", "GET")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := preflight("http://localhost:3000")
	if w.Code != http.StatusNoContent {
		t.Errorf("preflight: expected 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Error("allowed origin should be echoed")
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("allowed origin should permit credentials")
	}

	if w := preflight("https://evil.example"); w.Code != http.StatusForbidden {
		t.Errorf("foreign preflight: expected 403, got %d", w.Code)
	}

	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("unknown origin should pass through without CORS headers")
	}
}

func TestCORS_Wildcard(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"*"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("Origin", "https://any.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("wildcard: expected *, got %q", w.Header().Get("Access-Control-Allow-Origin"))
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "" {
		t.Error("wildcard must not allow credentials")
	}
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/x", nil))
	if w.Header().Get("Cache-Control") != "no-store" {
		t.Error("Cache-Control should be no-store")
	}
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS should not be sent over plain HTTP")
	}

	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("Strict-Transport-Security") != hstsValue {
		t.Error("HSTS expected behind https proxy")
	}
}
