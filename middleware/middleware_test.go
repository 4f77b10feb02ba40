package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flameberry/PrimePatrol/utils"
)

const testSecret = "gateway-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func authEngine(authz Authorizer) *gin.Engine {
	r := gin.New()
	r.Use(Authorize(authz, []string{"/api/v1/auth/"}))
	r.Any("/*path", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, ctx.GetString(ContextUserIDKey))
	})
	return r
}

func code(t *testing.T, rr *httptest.ResponseRecorder) int {
	t.Helper()
	var body utils.JSONResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Code
}

func TestAuthorizeJWT(t *testing.T) {
	blacklist := utils.NewTokenBlacklist(nil)
	r := authEngine(NewJWTAuthorizer(testSecret, blacklist))

	valid, exp, err := utils.GenerateToken([]byte(testSecret), "user-1", "a@example.org", time.Hour)
	require.NoError(t, err)
	forged, _, err := utils.GenerateToken([]byte("other"), "user-1", "a@example.org", time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name   string
		setup  func(r *http.Request)
		status int
		code   int
	}{
		{"missing", func(*http.Request) {}, http.StatusUnauthorized, 40101},
		{"malformed", func(r *http.Request) { r.Header.Set("Authorization", "Token abc") }, http.StatusUnauthorized, 40102},
		{"forged", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+forged) }, http.StatusUnauthorized, 40105},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+valid) }, http.StatusOK, 0},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookie, Value: valid}) }, http.StatusOK, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/posts", nil)
			tc.setup(req)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			assert.Equal(t, tc.status, rr.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, "user-1", rr.Body.String())
				return
			}
			assert.Equal(t, tc.code, code(t, rr))
		})
	}

	require.NoError(t, blacklist.Revoke(context.Background(), valid, exp))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/posts", nil)
	req.Header.Set("Authorization", "Bearer "+valid)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, 40104, code(t, rr))
}

func TestAuthorizeSkipsPublicPaths(t *testing.T) {
	r := authEngine(NewJWTAuthorizer(testSecret, nil))
	for _, path := range []string{"/api/v1/auth/token", "/health", "/metrics"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, path, nil))
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
}

func TestAllowAll(t *testing.T) {
	r := authEngine(AllowAll{})
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/posts", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(2))
	r.GET("/", func(ctx *gin.Context) { ctx.Status(http.StatusNoContent) })

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr.Code
	}
	assert.Equal(t, http.StatusNoContent, send("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, send("10.0.0.2"))

	open := gin.New()
	open.Use(RateLimitMiddleware(0))
	open.GET("/", func(ctx *gin.Context) { ctx.Status(http.StatusNoContent) })
	for i := 0; i < 5; i++ {
		rr := httptest.NewRecorder()
		open.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, rr.Code)
	}
}
