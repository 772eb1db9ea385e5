package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"eating-management/backend/config"
	"eating-management/backend/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newJWTManager() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret:      "test-secret-key-at-least-32-bytes-long",
		Issuer:         "eating-management",
		AccessTokenTTL: time.Hour,
	})
}

func protectedEngine(mgr *jwt.Manager, roles ...string) *gin.Engine {
	r := gin.New()
	handlers := []gin.HandlerFunc{JWTAuth(mgr)}
	if len(roles) > 0 {
		handlers = append(handlers, RoleAuth(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("user_id")+"/"+c.GetString("role"))
	})
	r.GET("/protected", handlers...)
	return r
}

func doGet(r *gin.Engine, header string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	mgr := newJWTManager()
	token, err := mgr.GenerateAccessToken("u1", "member")
	if err != nil {
		t.Fatalf("生成 token 失败: %v", err)
	}
	r := protectedEngine(mgr)

	w := doGet(r, "Bearer "+token)
	if w.Code != http.StatusOK || w.Body.String() != "u1/member" {
		t.Errorf("期望 200 u1/member，实际: %d %s", w.Code, w.Body.String())
	}

	for _, header := range []string{"", "Token " + token, "Bearer not-a-jwt"} {
		if w := doGet(r, header); w.Code != http.StatusUnauthorized {
			t.Errorf("%q 期望 401，实际: %d", header, w.Code)
		}
	}
}

func TestRoleAuth(t *testing.T) {
	mgr := newJWTManager()
	r := protectedEngine(mgr, "kitchen", "admin")

	member, _ := mgr.GenerateAccessToken("u1", "member")
	if w := doGet(r, "Bearer "+member); w.Code != http.StatusForbidden {
		t.Errorf("member 期望 403，实际: %d", w.Code)
	}
	kitchen, _ := mgr.GenerateAccessToken("u2", "kitchen")
	if w := doGet(r, "Bearer "+kitchen); w.Code != http.StatusOK {
		t.Errorf("kitchen 期望 200，实际: %d", w.Code)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	r.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("应沿用请求头中的 ID，实际: %s", got)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/ping", nil))
	if got := w.Header().Get("X-Request-ID"); len(got) != 36 {
		t.Errorf("应生成 UUID，实际: %q", got)
	}
}

func TestRateLimit_NilRedisPassesThrough(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(nil, 1, time.Minute, nil))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/ping", nil))
		if w.Code != http.StatusOK {
			t.Errorf("Redis 不可用时应放行，实际: %d", w.Code)
		}
	}
}

func TestMetrics_UnmatchedRoute(t *testing.T) {
	r := gin.New()
	r.Use(Metrics())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("期望 404，实际: %d", w.Code)
	}
}

func TestRequestID_RejectsUnsafeHeader(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	for _, bad := range []string{"a b", "x\ny", strings.Repeat("a", 65)} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/ping", nil)
		req.Header.Set("X-Request-ID", bad)
		r.ServeHTTP(w, req)
		if got := w.Header().Get("X-Request-ID"); got == bad || len(got) != 36 {
			t.Errorf("非法 ID %q 应被替换为 UUID，实际: %q", bad, got)
		}
		if w.Body.String() != w.Header().Get("X-Request-ID") {
			t.Errorf("上下文与响应头的 ID 应一致，实际: %s / %s", w.Body.String(), w.Header().Get("X-Request-ID"))
		}
	}
}

func TestLogger_IncludesRequestAndUser(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	mgr := newJWTManager()
	token, _ := mgr.GenerateAccessToken("u1", "kitchen")

	r := gin.New()
	r.Use(RequestID(), Logger(zap.New(core)))
	r.GET("/api/v1/meals/summary", JWTAuth(mgr), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/meals/summary", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-ID", "req-1")
	r.ServeHTTP(w, req)

	entries := logs.FilterMessage("请求完成").All()
	if len(entries) != 1 {
		t.Fatalf("期望 1 条请求日志，实际: %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "req-1" || fields["user_id"] != "u1" || fields["role"] != "kitchen" {
		t.Errorf("日志缺少请求上下文: %v", fields)
	}
	if fields["route"] != "/api/v1/meals/summary" {
		t.Errorf("期望记录路由模板，实际: %v", fields["route"])
	}
	if entries[0].Level != zapcore.InfoLevel {
		t.Errorf("业务请求期望 info 级别，实际: %s", entries[0].Level)
	}

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/health", nil))
	health := logs.FilterField(zap.String("path", "/health")).All()
	if len(health) != 1 {
		t.Fatalf("期望 1 条探活日志，实际: %d", len(health))
	}
	if health[0].Level != zapcore.DebugLevel {
		t.Errorf("探活请求期望 debug 级别，实际: %s", health[0].Level)
	}
	if _, ok := health[0].ContextMap()["user_id"]; ok {
		t.Error("未认证请求不应记录 user_id")
	}
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://meal.example.com/"}))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest("OPTIONS", "/ping", nil)
	req.Header.Set("Origin", "https://meal.example.com")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("预检期望 204，实际: %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://meal.example.com" {
		t.Errorf("期望放行来源，实际: %q", got)
	}
	if got := w.Header().Get("Access-Control-Expose-Headers"); !strings.Contains(got, "Content-Disposition") {
		t.Errorf("应暴露 Content-Disposition，实际: %q", got)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("未授权来源不应放行，实际: %q", got)
	}
}

func TestSecurityHeaders_NoStoreOnAPI(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/api/v1/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/x", nil))
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("API 响应期望 no-store，实际: %q", got)
	}
	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("期望 X-Frame-Options=DENY，实际: %q", got)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	if got := w.Header().Get("Cache-Control"); got != "" {
		t.Errorf("非 API 路径不设置 Cache-Control，实际: %q", got)
	}
}

func TestBodyLimit_DeclaredLength(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(16))
	r.POST("/echo", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/echo", strings.NewReader(strings.Repeat("x", 32))))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("期望 413，实际: %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/echo", strings.NewReader("small")))
	if w.Code != http.StatusOK {
		t.Errorf("期望 200，实际: %d", w.Code)
	}
}
