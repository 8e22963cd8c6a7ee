package catalog_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epcsync/internal/catalog"
	"epcsync/internal/config"
	"epcsync/internal/domain"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newSSOServer(t *testing.T, logins *int32, respond func(w http.ResponseWriter)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/sso/login", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ops@example.com", body["email"])
		assert.Equal(t, "secret", body["password"])
		atomic.AddInt32(logins, 1)
		respond(w)
	}))
}

func newSSOSource(url string, c *clock) *catalog.SSOTokenSource {
	src := catalog.NewSSOTokenSource(&config.SSOConfig{
		GatewayURL: url,
		Email:      "ops@example.com",
		Password:   "secret",
	}, time.Second)
	return src.WithClock(c.Now)
}

func TestSSOTokenSource_ExpiresIn(t *testing.T) {
	var logins int32
	server := newSSOServer(t, &logins, func(w http.ResponseWriter) {
		_, _ = w.Write([]byte(`{"data":{"oauth":{"sso_token":"tok-1","expires_in":3600}}}`))
	})
	defer server.Close()

	c := &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	src := newSSOSource(server.URL, c)

	tok, err := src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	c.Advance(30 * time.Minute)
	_, err = src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&logins))

	// within the one-minute leeway of expiry
	c.Advance(29*time.Minute + 30*time.Second)
	_, err = src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&logins))
}

func TestSSOTokenSource_JWTExpiry(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "ops",
		"exp": start.Add(2 * time.Hour).Unix(),
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	var logins int32
	server := newSSOServer(t, &logins, func(w http.ResponseWriter) {
		_ = json.NewEncoder(w).Encode(map[string]string{"token": signed})
	})
	defer server.Close()

	c := &clock{now: start}
	src := newSSOSource(server.URL, c)

	_, err = src.Token(context.Background())
	require.NoError(t, err)

	c.Advance(90 * time.Minute)
	_, err = src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&logins))

	c.Advance(time.Hour)
	_, err = src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&logins))
}

func TestSSOTokenSource_OpaqueTokenUsesDefaultTTL(t *testing.T) {
	var logins int32
	server := newSSOServer(t, &logins, func(w http.ResponseWriter) {
		_, _ = w.Write([]byte(`{"access_token":"opaque"}`))
	})
	defer server.Close()

	c := &clock{now: time.Now()}
	src := newSSOSource(server.URL, c)

	tok, err := src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "opaque", tok)

	c.Advance(22 * time.Hour)
	_, _ = src.Token(context.Background())
	assert.Equal(t, int32(1), atomic.LoadInt32(&logins))

	c.Advance(2 * time.Hour)
	_, _ = src.Token(context.Background())
	assert.Equal(t, int32(2), atomic.LoadInt32(&logins))
}

func TestSSOTokenSource_InvalidateForcesLogin(t *testing.T) {
	var logins int32
	server := newSSOServer(t, &logins, func(w http.ResponseWriter) {
		_, _ = w.Write([]byte(`{"sso_token":"tok","expires_in":3600}`))
	})
	defer server.Close()

	src := newSSOSource(server.URL, &clock{now: time.Now()})

	_, err := src.Token(context.Background())
	require.NoError(t, err)
	src.Invalidate()
	_, err = src.Token(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&logins))
}

func TestSSOTokenSource_ConcurrentCallersShareLogin(t *testing.T) {
	var logins int32
	release := make(chan struct{})
	server := newSSOServer(t, &logins, func(w http.ResponseWriter) {
		<-release
		_, _ = w.Write([]byte(`{"sso_token":"shared","expires_in":3600}`))
	})
	defer server.Close()

	src := newSSOSource(server.URL, &clock{now: time.Now()})

	var wg sync.WaitGroup
	tokens := make([]string, 8)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], _ = src.Token(context.Background())
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, tok := range tokens {
		assert.Equal(t, "shared", tok)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&logins), int32(2))
}

func TestSSOTokenSource_LoginRejected(t *testing.T) {
	var logins int32
	server := newSSOServer(t, &logins, func(w http.ResponseWriter) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"bad credentials"}`))
	})
	defer server.Close()

	src := newSSOSource(server.URL, &clock{now: time.Now()})

	_, err := src.Token(context.Background())

	var authErr *domain.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Contains(t, err.Error(), "bad credentials")
}

func TestSSOTokenSource_MissingToken(t *testing.T) {
	var logins int32
	server := newSSOServer(t, &logins, func(w http.ResponseWriter) {
		_, _ = w.Write([]byte(`{"data":{}}`))
	})
	defer server.Close()

	src := newSSOSource(server.URL, &clock{now: time.Now()})

	_, err := src.Token(context.Background())

	var authErr *domain.AuthError
	assert.True(t, errors.As(err, &authErr))
}

func TestStaticToken(t *testing.T) {
	tok, err := catalog.StaticToken("abc").Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	_, err = catalog.StaticToken("").Token(context.Background())
	var authErr *domain.AuthError
	assert.True(t, errors.As(err, &authErr))
}

func TestNewTokenSource(t *testing.T) {
	static := catalog.NewTokenSource(&config.CatalogConfig{BearerToken: "abc"})
	assert.IsType(t, catalog.StaticToken(""), static)

	sso := catalog.NewTokenSource(&config.CatalogConfig{
		SSO: config.SSOConfig{GatewayURL: "http://sso", Email: "a@b.c", Password: "p"},
	})
	assert.IsType(t, &catalog.SSOTokenSource{}, sso)
}
