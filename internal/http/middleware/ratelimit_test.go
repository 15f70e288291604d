package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func TestKeyByIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = net.JoinHostPort("203.0.113.9", "12345")

	c, _ := gin.CreateTestContext(w)
	c.Request = req

	if key := KeyByIP()(c); key != "ip:203.0.113.9" {
		t.Fatalf("expected ip-based key; got %q", key)
	}
}

func TestNewRateLimiter_BurstCoercion_AndGetVisitorReuse(t *testing.T) {
	rl := NewRateLimiter(2.0, 0, KeyByIP())
	if rl.burst != 1 {
		t.Fatalf("burst coercion failed, got %d", rl.burst)
	}

	lim := rl.getVisitor("k1")
	if lim == nil {
		t.Fatalf("expected limiter")
	}
	if got := rl.getVisitor("k1"); got != lim {
		t.Fatalf("expected same limiter instance to be reused")
	}
}

func TestRateLimiter_getVisitor_GC(t *testing.T) {
	rl := NewRateLimiter(1.0, 1, KeyByIP())
	rl.ttl = time.Nanosecond

	rl.mu.Lock()
	rl.visitors["old"] = &visitor{
		limiter:  rate.NewLimiter(1, 1),
		lastSeen: time.Now().Add(-time.Hour),
	}
	rl.cleanupN = 4999
	rl.mu.Unlock()

	_ = rl.getVisitor("new")

	rl.mu.Lock()
	_, existsOld := rl.visitors["old"]
	_, existsNew := rl.visitors["new"]
	rl.mu.Unlock()

	if existsOld {
		t.Fatalf("expected 'old' visitor to be evicted")
	}
	if !existsNew {
		t.Fatalf("expected 'new' visitor to be created")
	}
}

func TestRateLimiter_Handler_AllowDenyAndExempt(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := NewRateLimiter(1.0, 1, KeyByIP(), "/health")

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Header(requestIDHeader, "rid-1"); c.Next() })
	r.Use(rl.Handler())
	r.GET("/breeds", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	if w := get("/breeds"); w.Code != http.StatusOK {
		t.Fatalf("first request should be allowed, got %d", w.Code)
	}
	w := get("/breeds")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request should be rate-limited, got %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "1" {
		t.Fatalf("expected Retry-After=1, got %q", got)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["code"] != "too_many_requests" || body["request_id"] != "rid-1" {
		t.Fatalf("unexpected JSON body: %v", body)
	}

	// Exempt routes never consume tokens.
	for i := 0; i < 3; i++ {
		if w := get("/health"); w.Code != http.StatusOK {
			t.Fatalf("exempt route limited on call %d: %d", i, w.Code)
		}
	}
}

func TestRefillSeconds(t *testing.T) {
	cases := []struct {
		rps  float64
		want int
	}{
		{10, 1},
		{1, 1},
		{0.5, 2},
		{0.1, 10},
		{0, 60},
	}
	for _, tc := range cases {
		if got := refillSeconds(tc.rps); got != tc.want {
			t.Fatalf("refillSeconds(%v) = %d; want %d", tc.rps, got, tc.want)
		}
	}
}
