package middleware

import (
	"crypto/sha1"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bus-seat-reservation/internal/config"
)

const secret = "test-secret"

func signed(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func whoami(c echo.Context) error {
	id, ok := HolderID(c)
	if !ok {
		return c.String(http.StatusInternalServerError, "no holder")
	}
	return c.String(http.StatusOK, fmt.Sprintf("%d:%v", id, c.Get(ContextRole)))
}

func serve(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoami, JWTAuth(secret))
	exp := time.Now().Add(time.Hour).Unix()

	cases := []struct {
		name   string
		token  string
		status int
		body   string
	}{
		{"numeric subject", signed(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"sub": 7, "role": RoleCustomer, "exp": exp}), http.StatusOK, "7:CUSTOMER"},
		{"string subject", signed(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"sub": "12", "role": RoleOperator, "exp": exp}), http.StatusOK, "12:OPERATOR"},
		{"missing token", "", http.StatusUnauthorized, ""},
		{"wrong secret", signed(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"sub": 7, "exp": exp}), http.StatusUnauthorized, ""},
		{"expired", signed(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"sub": 7, "exp": time.Now().Add(-time.Minute).Unix()}), http.StatusUnauthorized, ""},
		{"other algorithm", signed(t, jwt.SigningMethodHS512, []byte(secret), jwt.MapClaims{"sub": 7, "exp": exp}), http.StatusUnauthorized, ""},
		{"bad subject", signed(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"sub": "alice", "exp": exp}), http.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(e, http.MethodGet, "/me", tc.token)
			assert.Equal(t, tc.status, rec.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, rec.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	e.POST("/trips", whoami, JWTAuth(secret), RequireRole(RoleOperator))
	exp := time.Now().Add(time.Hour).Unix()

	op := signed(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"sub": 1, "role": RoleOperator, "exp": exp})
	cust := signed(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"sub": 2, "role": RoleCustomer, "exp": exp})
	none := signed(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"sub": 3, "exp": exp})

	assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/trips", op).Code)
	assert.Equal(t, http.StatusForbidden, serve(e, http.MethodPost, "/trips", cust).Code)
	assert.Equal(t, http.StatusForbidden, serve(e, http.MethodPost, "/trips", none).Code)
}

func TestHolderIDFrom(t *testing.T) {
	for in, want := range map[interface{}]uint64{uint64(4): 4, 5: 5, int64(6): 6, float64(7): 7, "8": 8} {
		got, ok := holderIDFrom(in)
		assert.True(t, ok, "%v", in)
		assert.Equal(t, want, got)
	}
	for _, in := range []interface{}{nil, 0, float64(1.5), float64(-1), "", "x", true} {
		_, ok := holderIDFrom(in)
		assert.False(t, ok, "%v", in)
	}
}

func withHolder(id uint64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(ContextUserID, id)
			return next(c)
		}
	}
}

func TestTokenBucket(t *testing.T) {
	db, mock := redismock.NewClientMock()
	now := time.UnixMilli(1_770_000_000_000)
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 10, RefillTokens: 1, RefillInterval: time.Second, TTL: 10 * time.Minute, KeyStrategy: "user", Prefix: "rlw"}
	tb := &tokenBucket{cfg: cfg, rdb: db, now: func() time.Time { return now }}

	e := echo.New()
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	e.POST("/holds", ok, withHolder(7), tb.middleware)

	args := []interface{}{now.UnixMilli(), 10, 1, int64(1000), int64(600)}
	mock.ExpectEvalSha(bucketScript.Hash(), []string{"rlw:user:7"}, args...).SetVal([]interface{}{int64(1), int64(9), int64(0)})
	mock.ExpectEvalSha(bucketScript.Hash(), []string{"rlw:user:7"}, args...).SetVal([]interface{}{int64(0), int64(0), int64(1500)})
	mock.ExpectEvalSha(bucketScript.Hash(), []string{"rlw:user:7"}, args...).SetErr(errors.New("connection refused"))

	rec := serve(e, http.MethodPost, "/holds", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "9", rec.Header().Get("X-RateLimit-Remaining"))

	rec = serve(e, http.MethodPost, "/holds", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))

	// Redis down: fail open
	rec = serve(e, http.MethodPost, "/holds", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/trips/1/capacity", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/trips/:id/capacity")

	assert.Equal(t, "rl:ip:10.0.0.1:user:anon:route:GET /v1/trips/:id/capacity",
		rateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_user_route"}, c))
	c.Set(ContextUserID, "42")
	assert.Equal(t, "rl:user:42", rateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}, c))
}

func TestDisabledMiddlewarePassesThrough(t *testing.T) {
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.String(http.StatusOK, "x") },
		NewTokenBucket(config.RateLimitConfig{Enabled: false}, nil),
		NewRedisCache(config.CacheConfig{Enabled: true}, nil))
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/x", "").Code)
}

func TestRedisCache(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{http.MethodGet: true}, TTL: time.Minute, KeyStrategy: "route_query", Prefix: "cache", MaxBodyBytes: 1024}
	calls := 0
	e := echo.New()
	e.GET("/v1/routes/:id/stops", func(c echo.Context) error {
		calls++
		return c.String(http.StatusOK, "A,B,C")
	}, NewRedisCache(cfg, db))

	key := fmt.Sprintf("cache:%x", sha1.Sum([]byte("/v1/routes/1/stops|")))
	payload, err := json.Marshal(cachedResponse{
		Status: http.StatusOK,
		Header: http.Header{echo.HeaderContentType: {echo.MIMETextPlainCharsetUTF8}},
		Body:   []byte("A,B,C"),
	})
	require.NoError(t, err)

	mock.ExpectGet(key).RedisNil()
	mock.ExpectSetEx(key, payload, time.Minute).SetVal("OK")
	rec := serve(e, http.MethodGet, "/v1/routes/1/stops", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))

	mock.ExpectGet(key).SetVal(string(payload))
	rec = serve(e, http.MethodGet, "/v1/routes/1/stops", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, "A,B,C", rec.Body.String())

	assert.Equal(t, 1, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}
