package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking/internal/authz"
	"github.com/iliyamo/tour-booking/internal/config"
	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/repository"
	"github.com/iliyamo/tour-booking/internal/utils"
)

const secret = "testsecret"

type usersByID map[uint64]*model.User

func (u usersByID) GetByID(_ context.Context, id uint64) (*model.User, error) {
	if user, ok := u[id]; ok {
		return user, nil
	}
	return nil, repository.ErrNotFound
}

func bearer(t *testing.T, id uint64) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, id, 5)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return "Bearer " + tok.Token
}

// buildTestApp mounts one protected route that echoes the principal.
func buildTestApp(users UserLoader, extra ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	mws := append([]echo.MiddlewareFunc{JWTAuth(secret), LoadPrincipal(users)}, extra...)
	e.GET("/me", func(c echo.Context) error {
		p := authz.FromContext(c.Request().Context())
		if p == nil {
			return c.String(http.StatusInternalServerError, "no principal")
		}
		return c.String(http.StatusOK, p.Username)
	}, mws...)
	return e
}

func serve(e *echo.Echo, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthAndLoadPrincipal(t *testing.T) {
	users := usersByID{
		1: {ID: 1, Username: "anna", Status: model.StatusPlain},
		2: {ID: 2, Username: "boris", Status: model.StatusPlain, IsBlocked: true},
	}
	e := buildTestApp(users)

	cases := []struct {
		name string
		auth string
		want int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"bad signature", "Bearer not.a.token", http.StatusUnauthorized},
		{"deleted user", bearer(t, 99), http.StatusUnauthorized},
		{"blocked user", bearer(t, 2), http.StatusForbidden},
		{"ok", bearer(t, 1), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(e, http.MethodGet, "/me", tc.auth)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d (%s)", tc.want, rec.Code, rec.Body.String())
			}
		})
	}

	if rec := serve(e, http.MethodGet, "/me", bearer(t, 1)); rec.Body.String() != "anna" {
		t.Fatalf("principal not attached, body %q", rec.Body.String())
	}
}

func TestJWTAuthRejectsForeignSecret(t *testing.T) {
	e := buildTestApp(usersByID{1: {ID: 1, Username: "anna"}})
	tok, err := utils.NewAccessToken("other-secret", 1, 5)
	if err != nil {
		t.Fatal(err)
	}
	if rec := serve(e, http.MethodGet, "/me", "Bearer "+tok.Token); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireCapability(t *testing.T) {
	users := usersByID{
		1: {ID: 1, Username: "plain", Status: model.StatusPlain},
		2: {ID: 2, Username: "author", Status: model.StatusTourAuthor},
		3: {ID: 3, Username: "root", Status: model.StatusPlain, IsSuperuser: true},
	}
	authoring := buildTestApp(users, RequireCapability(authz.CapAuthorTours))
	admin := buildTestApp(users, RequireCapability(authz.CapAdministrate))

	if rec := serve(authoring, http.MethodGet, "/me", bearer(t, 1)); rec.Code != http.StatusForbidden {
		t.Fatalf("plain user authoring: expected 403, got %d", rec.Code)
	}
	if rec := serve(authoring, http.MethodGet, "/me", bearer(t, 2)); rec.Code != http.StatusOK {
		t.Fatalf("author authoring: expected 200, got %d", rec.Code)
	}
	if rec := serve(admin, http.MethodGet, "/me", bearer(t, 2)); rec.Code != http.StatusForbidden {
		t.Fatalf("author admin: expected 403, got %d", rec.Code)
	}
	if rec := serve(admin, http.MethodGet, "/me", bearer(t, 3)); rec.Code != http.StatusOK {
		t.Fatalf("superuser admin: expected 200, got %d", rec.Code)
	}

	// Without LoadPrincipal there is no principal at all.
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, RequireCapability(authz.CapBook))
	if rec := serve(e, http.MethodGet, "/x", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: expected 401, got %d", rec.Code)
	}
}

func TestTokenBucketFallsBackToLocalLimiter(t *testing.T) {
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		KeyStrategy:    "ip_route",
		Prefix:         "rl",
	}
	e := echo.New()
	e.Use(NewTokenBucket(cfg, nil))
	e.GET("/tours", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	for i := 0; i < 2; i++ {
		if rec := serve(e, http.MethodGet, "/tours", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
	rec := serve(e, http.MethodGet, "/tours", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 once the bucket is empty, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" || rec.Header().Get("X-RateLimit-Limit") != "2" {
		t.Fatalf("missing rate-limit headers: %v", rec.Header())
	}
}

func TestTokenBucketDisabled(t *testing.T) {
	e := echo.New()
	e.Use(NewTokenBucket(config.RateLimitConfig{Enabled: false, Capacity: 1}, nil))
	e.GET("/tours", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	for i := 0; i < 5; i++ {
		if rec := serve(e, http.MethodGet, "/tours", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
}

func TestLocalBucketsRefill(t *testing.T) {
	b := newLocalBuckets(config.RateLimitConfig{
		Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute,
	}.Normalized())
	now := time.Unix(1_700_000_000, 0)

	if ok, _, _ := b.take("k", now); !ok {
		t.Fatal("first take refused")
	}
	ok, _, retry := b.take("k", now)
	if ok || retry <= 0 || retry > time.Second {
		t.Fatalf("second take: ok=%v retry=%s", ok, retry)
	}
	if ok, _, _ := b.take("other", now); !ok {
		t.Fatal("keys must not share a bucket")
	}
	if ok, _, _ := b.take("k", now.Add(time.Second)); !ok {
		t.Fatal("take after refill refused")
	}
}

func TestRedisCacheWithoutClientPassesThrough(t *testing.T) {
	calls := 0
	e := echo.New()
	e.Use(NewRedisCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil))
	e.GET("/banners", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, []string{})
	})
	for i := 0; i < 2; i++ {
		rec := serve(e, http.MethodGet, "/banners", "")
		if rec.Code != http.StatusOK || rec.Header().Get("X-Cache") != "" {
			t.Fatalf("unexpected response %d %v", rec.Code, rec.Header())
		}
	}
	if calls != 2 {
		t.Fatalf("expected handler to run twice, ran %d", calls)
	}
}

func TestCacheKeySeparatesConcretePaths(t *testing.T) {
	e := echo.New()
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}
	key := func(path string) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, path, nil), httptest.NewRecorder())
		c.SetPath("/tours/:id")
		return cacheKeyFrom(cfg, c)
	}
	a, b := key("/tours/1"), key("/tours/2")
	if a == b {
		t.Fatal("different tours share a cache key")
	}
	if !strings.HasPrefix(a, "cache:") || a != key("/tours/1") {
		t.Fatalf("unstable key %q", a)
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	h := http.Header{}
	h.Set(echo.HeaderContentType, echo.MIMEApplicationJSONCharsetUTF8)
	bs, err := encodePayload(http.StatusOK, h, []byte(`{"ok":true}`))
	if err != nil {
		t.Fatal(err)
	}
	status, hdr, body, ok := decodePayload(bs)
	if !ok || status != http.StatusOK || string(body) != `{"ok":true}` || hdr.Get(echo.HeaderContentType) != echo.MIMEApplicationJSONCharsetUTF8 {
		t.Fatalf("round trip: ok=%v status=%d hdr=%v body=%q", ok, status, hdr, body)
	}
	if _, _, _, ok := decodePayload([]byte{1, 2}); ok {
		t.Fatal("short payload decoded")
	}
}

func TestRateKeyStrategies(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/tours", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/tours")

	if got := buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}, c); got != "rl:user:anon" {
		t.Fatalf("anonymous user key: %q", got)
	}
	c.Set(UserIDKey, uint64(7))
	if got := buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_user"}, c); got != "rl:ip:10.0.0.1:user:7" {
		t.Fatalf("ip_user key: %q", got)
	}
}

func TestCachedHeadersLeaveOutRateLimitCounters(t *testing.T) {
	h := http.Header{}
	h.Set(echo.HeaderContentType, echo.MIMEApplicationJSONCharsetUTF8)
	h.Set("X-RateLimit-Limit", "60")
	h.Set("X-RateLimit-Remaining", "59")
	h.Set("Retry-After", "1")
	h.Set("X-Cache", "MISS")
	h.Set("Content-Length", "11")

	bs, err := encodePayload(http.StatusOK, storableHeader(h), []byte(`{"ok":true}`))
	if err != nil {
		t.Fatal(err)
	}
	_, hdr, _, ok := decodePayload(bs)
	if !ok {
		t.Fatal("payload did not decode")
	}
	if len(hdr) != 1 || hdr.Get(echo.HeaderContentType) != echo.MIMEApplicationJSONCharsetUTF8 {
		t.Fatalf("stored headers %v", hdr)
	}
	if h.Get("X-RateLimit-Remaining") != "59" {
		t.Fatal("source header modified")
	}
	for _, k := range []string{"x-ratelimit-key", "X-RATELIMIT-LIMIT", "retry-after"} {
		if !perRequestHeader(k) {
			t.Errorf("%s kept", k)
		}
	}
}
