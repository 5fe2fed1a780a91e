package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eschoolbooks/neox-go/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, secret, sub string, method jwt.SigningMethod) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func identityRouter(secret string) *gin.Engine {
	r := gin.New()
	r.Use(Identity(secret))
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, GetUserID(c))
	})
	return r
}

func TestIdentityJWT(t *testing.T) {
	r := identityRouter(testSecret)

	tests := []struct {
		name   string
		header string
		query  string
		status int
		user   string
	}{
		{"valid bearer", "Bearer " + signToken(t, testSecret, "student-1", jwt.SigningMethodHS256), "", http.StatusOK, "student-1"},
		{"query token", "", signToken(t, testSecret, "student-2", jwt.SigningMethodHS256), http.StatusOK, "student-2"},
		{"wrong secret", "Bearer " + signToken(t, "other", "student-1", jwt.SigningMethodHS256), "", http.StatusUnauthorized, ""},
		{"wrong method", "Bearer " + signToken(t, testSecret, "student-1", jwt.SigningMethodHS512), "", http.StatusUnauthorized, ""},
		{"missing sub", "Bearer " + signToken(t, testSecret, "", jwt.SigningMethodHS256), "", http.StatusUnauthorized, ""},
		{"anonymous", "", "", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/whoami?uid=victim"
			if tt.query != "" {
				target += "&token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status == http.StatusOK && rec.Body.String() != tt.user {
				t.Errorf("user = %q, want %q", rec.Body.String(), tt.user)
			}
		})
	}
}

func TestIdentityHeader(t *testing.T) {
	r := identityRouter("")

	tests := []struct {
		name   string
		target string
		header string
		user   string
	}{
		{"header", "/whoami", " student-9 ", "student-9"},
		{"query", "/whoami?uid=student-3", "", "student-3"},
		{"header wins", "/whoami?uid=student-3", "student-9", "student-9"},
		{"anonymous", "/whoami", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("X-User-ID", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Body.String() != tt.user {
				t.Errorf("user = %q, want %q", rec.Body.String(), tt.user)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		origin  string
		want    string
	}{
		{"listed origin", []string{"http://localhost:5173"}, "http://localhost:5173", "http://localhost:5173"},
		{"unlisted origin", []string{"http://localhost:5173"}, "http://evil.example", ""},
		{"allow all", nil, "http://anywhere.example", "*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(CORS(tt.origins))
			r.POST("/api/chat", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Errorf("allow-origin = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRequestLogger(t *testing.T) {
	m := metrics.New(nil)
	r := gin.New()
	r.Use(RequestID(), RequestLogger(zap.NewNop(), m))
	r.GET("/api/health", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Body.String() == "" || rec.Header().Get("X-Request-ID") != rec.Body.String() {
		t.Errorf("request id = %q, header = %q", rec.Body.String(), rec.Header().Get("X-Request-ID"))
	}

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Body.String() != "abc-123" {
		t.Errorf("incoming request id not kept: %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/api/health", "200")); got != 2 {
		t.Errorf("health requests = %v", got)
	}
	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("unmatched", "404")); got != 1 {
		t.Errorf("unmatched requests = %v", got)
	}
}
