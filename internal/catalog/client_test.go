package catalog_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epcsync/internal/catalog"
	"epcsync/internal/domain"
	"epcsync/internal/retry"
	"epcsync/mocks"
)

type recordedSleeps struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *recordedSleeps) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waits = append(r.waits, d)
	return nil
}

func newTestClient(serverURL string, attempts int) (*catalog.Client, *recordedSleeps) {
	sleeps := &recordedSleeps{}
	c := catalog.NewClient(serverURL, catalog.StaticToken("test-token"),
		retry.Backoff{Base: 100 * time.Millisecond, Max: 10 * time.Second, Attempts: attempts}, 5*time.Second)
	c.WithSleeper(sleeps.sleep)
	return c, sleeps
}

func TestClient_Create_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/categories/create", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Frame System", body["category_name_en"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":"cat-1"}}`))
	}))
	defer server.Close()

	c, _ := newTestClient(server.URL, 3)

	res, err := c.Create(context.Background(), "categories", map[string]string{"category_name_en": "Frame System"})

	require.NoError(t, err)
	assert.Equal(t, "cat-1", res.RemoteID)
	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.False(t, res.Exists)
}

func TestClient_Create_RemoteIDLocations(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"data.id", `{"success":true,"data":{"id":"a"}}`, "a"},
		{"top-level id", `{"id":42}`, "42"},
		{"data.<entity>_id", `{"data":{"type_category_id":"tc-9"}}`, "tc-9"},
		{"missing", `{"success":true}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c, _ := newTestClient(server.URL, 1)
			res, err := c.Create(context.Background(), "type_category", map[string]string{})

			require.NoError(t, err)
			assert.Equal(t, tt.want, res.RemoteID)
		})
	}
}

func TestClient_Create_Repeated503_DoublingBackoffThenGivesUp(t *testing.T) {
	var calls int
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"maintenance"}`))
	}))
	defer server.Close()

	c, sleeps := newTestClient(server.URL, 4)

	_, err := c.Create(context.Background(), "categories", map[string]string{})

	var te *domain.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusServiceUnavailable, te.StatusCode)
	assert.Equal(t, domain.ScopeRemote, te.Scope)
	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}, sleeps.waits)
	for i := 1; i < len(sleeps.waits); i++ {
		assert.Equal(t, 2*sleeps.waits[i-1], sleeps.waits[i])
	}
}

func TestClient_Create_503ThenSuccess(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":"cat-2"}}`))
	}))
	defer server.Close()

	c, sleeps := newTestClient(server.URL, 4)

	res, err := c.Create(context.Background(), "categories", map[string]string{})

	require.NoError(t, err)
	assert.Equal(t, "cat-2", res.RemoteID)
	assert.Len(t, sleeps.waits, 1)
}

func TestClient_Create_400IsNotRetried(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"error":"category_name_en is required"}`))
	}))
	defer server.Close()

	c, sleeps := newTestClient(server.URL, 4)

	_, err := c.Create(context.Background(), "categories", map[string]string{})

	var te *domain.TransportError
	require.True(t, errors.As(err, &te))
	assert.False(t, te.Retryable())
	assert.Contains(t, err.Error(), "category_name_en is required")
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeps.waits)
}

func TestClient_Create_SuccessFalseIn2xxIsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"error":"invalid master category"}`))
	}))
	defer server.Close()

	c, sleeps := newTestClient(server.URL, 4)

	_, err := c.Create(context.Background(), "categories", map[string]string{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid master category")
	assert.Empty(t, sleeps.waits)
}

func TestClient_Create_409MeansExists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"Category already exists"}`))
	}))
	defer server.Close()

	c, _ := newTestClient(server.URL, 4)

	res, err := c.Create(context.Background(), "categories", map[string]string{})

	require.NoError(t, err)
	assert.True(t, res.Exists)
	assert.Equal(t, "Category already exists", res.Message)
}

func TestClient_Create_429UsesRetryAfter(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"id":"x"}}`))
	}))
	defer server.Close()

	c, sleeps := newTestClient(server.URL, 3)

	_, err := c.Create(context.Background(), "categories", map[string]string{})

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{3 * time.Second}, sleeps.waits)
}

func TestClient_Create_401RefreshesOnceThenFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"token expired"}`))
	}))
	defer server.Close()

	tokens := new(mocks.MockTokenSource)
	tokens.On("Token", context.Background()).Return("stale", nil)
	tokens.On("Invalidate").Return()

	c := catalog.NewClient(server.URL, tokens, retry.Backoff{Base: time.Millisecond, Attempts: 4}, time.Second)

	_, err := c.Create(context.Background(), "categories", map[string]string{})

	var authErr *domain.AuthError
	require.True(t, errors.As(err, &authErr))
	tokens.AssertNumberOfCalls(t, "Token", 2)
	tokens.AssertNumberOfCalls(t, "Invalidate", 1)
}

func TestClient_Create_401ThenFreshTokenSucceeds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"id":"ok"}}`))
	}))
	defer server.Close()

	tokens := new(mocks.MockTokenSource)
	tokens.On("Token", context.Background()).Return("stale", nil).Once()
	tokens.On("Token", context.Background()).Return("fresh", nil).Once()
	tokens.On("Invalidate").Return()

	c := catalog.NewClient(server.URL, tokens, retry.Backoff{Attempts: 1}, time.Second)

	res, err := c.Create(context.Background(), "categories", map[string]string{})

	require.NoError(t, err)
	assert.Equal(t, "ok", res.RemoteID)
}

func TestClient_Create_ConnectionErrorsAreRetried(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c, sleeps := newTestClient(url, 3)

	_, err := c.Create(context.Background(), "categories", map[string]string{})

	var te *domain.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 0, te.StatusCode)
	assert.Len(t, sleeps.waits, 2)
}

func TestClient_Create_CancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := catalog.NewClient(server.URL, catalog.StaticToken("t"), retry.Backoff{Base: time.Second, Attempts: 5}, time.Second)
	c.WithSleeper(func(ctx context.Context, d time.Duration) error {
		cancel()
		return retry.Sleep(ctx, d)
	})

	_, err := c.Create(ctx, "categories", map[string]string{})

	assert.ErrorIs(t, err, context.Canceled)
}
