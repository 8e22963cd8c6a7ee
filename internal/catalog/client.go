package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"epcsync/internal/domain"
	"epcsync/internal/metrics"
	"epcsync/internal/port"
	"epcsync/internal/retry"
)

// CreateResult is the outcome of a successful create call.
type CreateResult struct {
	RemoteID   string
	StatusCode int
	// Exists is set when the catalog answered 409: the entity is already there.
	Exists  bool
	Message string
}

// Client issues create calls against the catalog API with bearer auth and
// exponential-backoff retries.
type Client struct {
	baseURL string
	tokens  port.TokenSource
	http    *http.Client
	backoff retry.Backoff
	sleep   retry.Sleeper
}

// NewClient creates a catalog API client.
func NewClient(baseURL string, tokens port.TokenSource, backoff retry.Backoff, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if backoff.Attempts <= 0 {
		backoff.Attempts = 1
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		http:    &http.Client{Timeout: timeout},
		backoff: backoff,
		sleep:   retry.Sleep,
	}
}

// WithSleeper replaces the backoff wait (for testing).
func (c *Client) WithSleeper(s retry.Sleeper) *Client {
	c.sleep = s
	return c
}

// Create posts body to <base>/<entity>/create. Connection errors, 429 and 5xx
// are retried; other 4xx fail immediately. A 401 invalidates the token once
// and retries; a second 401 returns *domain.AuthError.
func (c *Client) Create(ctx context.Context, entity string, body interface{}) (*CreateResult, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s request: %w", entity, err)
	}
	url := fmt.Sprintf("%s/%s/create", c.baseURL, entity)

	reauthenticated := false
	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		token, err := c.tokens.Token(ctx)
		if err != nil {
			var authErr *domain.AuthError
			if errors.As(err, &authErr) || errors.Is(err, context.Canceled) {
				return nil, err
			}
			return nil, &domain.AuthError{Scope: domain.ScopeRemote, Err: err}
		}

		status, header, respBody, err := c.post(ctx, url, token, payload)
		var lastErr *domain.TransportError
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			metrics.CatalogRequests.WithLabelValues(entity, "error").Inc()
			lastErr = &domain.TransportError{Scope: domain.ScopeRemote, Provider: entity, Err: err}

		case status == http.StatusUnauthorized:
			metrics.CatalogRequests.WithLabelValues(entity, strconv.Itoa(status)).Inc()
			if !reauthenticated {
				reauthenticated = true
				logrus.Warnf("catalog.Client.Create: %s got 401, refreshing token and retrying", entity)
				c.tokens.Invalidate()
				continue
			}
			return nil, &domain.AuthError{
				Scope: domain.ScopeRemote,
				Err:   fmt.Errorf("%s create rejected (status 401): %s", entity, truncate(string(respBody), 300)),
			}

		case status == http.StatusConflict:
			metrics.CatalogRequests.WithLabelValues(entity, strconv.Itoa(status)).Inc()
			return &CreateResult{StatusCode: status, Exists: true, Message: apiMessage(respBody, "Conflict")}, nil

		case status >= 200 && status < 300:
			metrics.CatalogRequests.WithLabelValues(entity, strconv.Itoa(status)).Inc()
			return decodeCreated(entity, status, respBody)

		default:
			metrics.CatalogRequests.WithLabelValues(entity, strconv.Itoa(status)).Inc()
			lastErr = &domain.TransportError{
				Scope:      domain.ScopeRemote,
				Provider:   entity,
				StatusCode: status,
				Err:        fmt.Errorf("%s create failed (status %d): %s", entity, status, truncate(string(respBody), 300)),
			}
			if status == http.StatusTooManyRequests {
				lastErr.RetryAfter = time.Duration(retry.ParseRetryAfterHeader(header.Get("Retry-After"))) * time.Second
			}
			if !lastErr.Retryable() {
				return nil, lastErr
			}
		}

		if attempt+1 >= c.backoff.Attempts {
			return nil, lastErr
		}
		wait := c.backoff.Wait(attempt, lastErr.RetryAfter)
		attempt++
		metrics.CatalogRetries.WithLabelValues(entity).Inc()
		logrus.Warnf("catalog.Client.Create: %s attempt %d/%d failed, retrying in %s: %v",
			entity, attempt, c.backoff.Attempts, wait, lastErr)
		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

func (c *Client) post(ctx context.Context, url, token string, payload []byte) (int, http.Header, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("calling catalog API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("reading response: %w", err)
	}
	return resp.StatusCode, resp.Header, body, nil
}

// decodeCreated reads the remote id from data.id, id, or data.<entity>_id.
// A 2xx body with "success": false is a non-retryable failure.
func decodeCreated(entity string, status int, body []byte) (*CreateResult, error) {
	var parsed map[string]interface{}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, &domain.TransportError{
				Scope:      domain.ScopeRemote,
				Provider:   entity,
				StatusCode: status,
				Err:        fmt.Errorf("decoding %s create response: %w", entity, err),
			}
		}
	}

	if ok, present := parsed["success"].(bool); present && !ok {
		return nil, &domain.TransportError{
			Scope:      domain.ScopeRemote,
			Provider:   entity,
			StatusCode: status,
			Err:        fmt.Errorf("%s create reported failure: %s", entity, apiMessage(body, "unknown error")),
		}
	}

	result := &CreateResult{StatusCode: status}
	data, _ := parsed["data"].(map[string]interface{})
	for _, candidate := range []interface{}{data["id"], parsed["id"], data[entityIDKey(entity)]} {
		if id := idString(candidate); id != "" {
			result.RemoteID = id
			break
		}
	}
	return result, nil
}

// entityIDKey is the id field some endpoints nest under data (type_category_id).
func entityIDKey(entity string) string {
	return entity + "_id"
}

func idString(v interface{}) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}

// apiMessage extracts the error or message field of a catalog response body.
func apiMessage(body []byte, fallback string) string {
	var parsed struct {
		Error   interface{} `json:"error"`
		Message string      `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if s, ok := parsed.Error.(string); ok && s != "" {
			return s
		}
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != nil {
			b, _ := json.Marshal(parsed.Error)
			return string(b)
		}
	}
	if s := strings.TrimSpace(string(body)); s != "" {
		return truncate(s, 300)
	}
	return fallback
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
