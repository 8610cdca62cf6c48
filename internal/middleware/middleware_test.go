package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/testutil"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "go.uber.org/zap"
    "go.uber.org/zap/zaptest/observer"

    "github.com/iliyamo/flightdesk/internal/config"
    "github.com/iliyamo/flightdesk/internal/logger"
    "github.com/iliyamo/flightdesk/internal/metrics"
    "github.com/iliyamo/flightdesk/internal/utils"
)

const secret = "test-secret"

func guarded(roles ...string) *echo.Echo {
    e := echo.New()
    g := e.Group("/v1", JWTAuth(secret), RequireRole(roles...))
    g.GET("/whoami", func(c echo.Context) error {
        return c.String(http.StatusOK, Subject(c)+"/"+Role(c))
    })
    return e
}

func call(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
    req := httptest.NewRequest(method, path, nil)
    if token != "" {
        req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func TestJWTAuthAndRole(t *testing.T) {
    e := guarded(RoleAdmin, RoleAutomation)

    auto, err := utils.NewAccessToken(secret, "cron", RoleAutomation, time.Hour)
    require.NoError(t, err)
    rec := call(e, http.MethodGet, "/v1/whoami", auto.Token)
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "cron/AUTOMATION", rec.Body.String())

    guest, err := utils.NewAccessToken(secret, "bob", "CUSTOMER", time.Hour)
    require.NoError(t, err)
    assert.Equal(t, http.StatusForbidden, call(e, http.MethodGet, "/v1/whoami", guest.Token).Code)

    other, err := utils.NewAccessToken("other-secret", "cron", RoleAdmin, time.Hour)
    require.NoError(t, err)
    assert.Equal(t, http.StatusUnauthorized, call(e, http.MethodGet, "/v1/whoami", other.Token).Code)

    assert.Equal(t, http.StatusUnauthorized, call(e, http.MethodGet, "/v1/whoami", "").Code)
}

func TestJWTAuth_RejectsExpiredAndForeignAlg(t *testing.T) {
    e := guarded(RoleAdmin)

    expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
        "sub": "x", "role": RoleAdmin, "exp": time.Now().Add(-time.Minute).Unix(),
    })
    s, err := expired.SignedString([]byte(secret))
    require.NoError(t, err)
    assert.Equal(t, http.StatusUnauthorized, call(e, http.MethodGet, "/v1/whoami", s).Code)

    noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x", "role": RoleAdmin})
    s, err = noExp.SignedString([]byte(secret))
    require.NoError(t, err)
    assert.Equal(t, http.StatusUnauthorized, call(e, http.MethodGet, "/v1/whoami", s).Code)

    hs512 := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
        "sub": "x", "role": RoleAdmin, "exp": time.Now().Add(time.Hour).Unix(),
    })
    s, err = hs512.SignedString([]byte(secret))
    require.NoError(t, err)
    assert.Equal(t, http.StatusUnauthorized, call(e, http.MethodGet, "/v1/whoami", s).Code)
}

func TestDisabledRedisMiddlewarePassThrough(t *testing.T) {
    e := echo.New()
    e.Use(NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, logger.Nop()))
    e.Use(NewRedisCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil, logger.Nop()))
    e.GET("/x", func(c echo.Context) error { return c.String(http.StatusOK, "x") })

    rec := call(e, http.MethodGet, "/x", "")
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Empty(t, rec.Header().Get("X-Cache"))
    assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestCacheKey_UsesConcretePath(t *testing.T) {
    cfg := config.CacheConfig{Prefix: "fd:cache", KeyStrategy: "route_query"}
    a := cacheKey(cfg, httptest.NewRequest(http.MethodGet, "/v1/manifest/1", nil))
    b := cacheKey(cfg, httptest.NewRequest(http.MethodGet, "/v1/manifest/2", nil))
    a2 := cacheKey(cfg, httptest.NewRequest(http.MethodGet, "/v1/manifest/1", nil))
    assert.NotEqual(t, a, b)
    assert.Equal(t, a, a2)
    assert.Contains(t, a, "fd:cache:")

    cfg.KeyStrategy = "route"
    q1 := cacheKey(cfg, httptest.NewRequest(http.MethodGet, "/v1/pilots?a=1", nil))
    q2 := cacheKey(cfg, httptest.NewRequest(http.MethodGet, "/v1/pilots?a=2", nil))
    assert.Equal(t, q1, q2)
}

func TestPayloadRoundTrip(t *testing.T) {
    hdr := http.Header{"Content-Type": {"application/json"}}
    bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"ok":true}`))
    require.NoError(t, err)

    status, got, body, ok := decodePayload(bs)
    require.True(t, ok)
    assert.Equal(t, http.StatusOK, status)
    assert.Equal(t, "application/json", got.Get("Content-Type"))
    assert.Equal(t, `{"ok":true}`, string(body))

    _, _, _, ok = decodePayload(bs[:6])
    assert.False(t, ok)
}

func TestCaptureWriter_DropsOversizedBody(t *testing.T) {
    rec := httptest.NewRecorder()
    cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
    _, _ = cw.Write([]byte("abc"))
    _, _ = cw.Write([]byte("def"))
    assert.True(t, cw.over)
    assert.Zero(t, cw.buf.Len())
    assert.Equal(t, "abcdef", rec.Body.String())
}

func TestRateKey(t *testing.T) {
    e := echo.New()
    req := httptest.NewRequest(http.MethodPost, "/v1/availability", nil)
    req.RemoteAddr = "10.0.0.9:1234"
    c := e.NewContext(req, httptest.NewRecorder())
    c.SetPath("/v1/availability")

    cfg := config.RateLimitConfig{Prefix: "fd:rl", KeyStrategy: "ip_route"}
    assert.Equal(t, "fd:rl:ip:10.0.0.9:route:POST /v1/availability", rateKey(cfg, c))

    cfg.KeyStrategy = "user"
    assert.Equal(t, "fd:rl:user:anon", rateKey(cfg, c))
    c.Set(ctxSubject, "cron")
    assert.Equal(t, "fd:rl:user:cron", rateKey(cfg, c))
}

func TestParseBucket(t *testing.T) {
    allowed, remaining, retry, ok := parseBucket([]interface{}{int64(0), int64(0), int64(750)})
    require.True(t, ok)
    assert.False(t, allowed)
    assert.Zero(t, remaining)
    assert.EqualValues(t, 750, retry)

    _, _, _, ok = parseBucket("nope")
    assert.False(t, ok)
}

func TestRequestMetricsAndLogger(t *testing.T) {
    m, err := metrics.New("fdtest", prometheus.NewRegistry())
    require.NoError(t, err)
    core, logs := observer.New(zap.InfoLevel)

    e := echo.New()
    e.Use(RequestLogger(logger.FromZap(zap.New(core))), RequestMetrics(m))
    e.GET("/v1/manifest/:id", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

    call(e, http.MethodGet, "/v1/manifest/3", "")
    call(e, http.MethodGet, "/nowhere", "")

    assert.Equal(t, 2, testutil.CollectAndCount(m.RequestDuration))
    require.Equal(t, 2, logs.Len())
    first := logs.All()[0].ContextMap()
    assert.Equal(t, "/v1/manifest/:id", first["route"])
    assert.EqualValues(t, http.StatusNoContent, first["status"])
    assert.EqualValues(t, http.StatusNotFound, logs.All()[1].ContextMap()["status"])
}
