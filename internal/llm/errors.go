package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"epcsync/internal/domain"
	"epcsync/internal/retry"
)

// NewRateLimitError creates a model TransportError for HTTP 429. If retryAfterSecs is 0, defaults to 60s.
func NewRateLimitError(provider string, err error, retryAfterSecs int) *domain.TransportError {
	if retryAfterSecs <= 0 {
		retryAfterSecs = 60
	}
	return &domain.TransportError{
		Scope:      domain.ScopeModel,
		Provider:   provider,
		StatusCode: http.StatusTooManyRequests,
		RetryAfter: time.Duration(retryAfterSecs) * time.Second,
		Err:        err,
	}
}

// StatusError classifies a non-2xx provider response.
func StatusError(provider string, status int, header http.Header, body []byte) error {
	baseErr := fmt.Errorf("%s API error (status %d): %s", provider, status, truncate(string(body), 500))
	switch {
	case status == http.StatusTooManyRequests:
		return NewRateLimitError(provider, baseErr, retry.ParseRetryAfterHeader(header.Get("Retry-After")))
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &domain.AuthError{Scope: domain.ScopeModel, Err: baseErr}
	default:
		return &domain.TransportError{Scope: domain.ScopeModel, Provider: provider, StatusCode: status, Err: baseErr}
	}
}

// NetworkError wraps a failed round trip. Cancellation is returned unchanged
// so callers stop instead of retrying.
func NetworkError(provider string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &domain.TransportError{
		Scope:    domain.ScopeModel,
		Provider: provider,
		Err:      fmt.Errorf("calling %s API: %w", provider, err),
	}
}

// ResponseError reports a 2xx response whose body could not be used.
// It is treated like a server fault and is retryable.
func ResponseError(provider string, err error) error {
	return &domain.TransportError{
		Scope:      domain.ScopeModel,
		Provider:   provider,
		StatusCode: http.StatusBadGateway,
		Err:        err,
	}
}

// IsRateLimited reports whether err is a model rate-limit error and returns it.
func IsRateLimited(err error) (*domain.TransportError, bool) {
	var te *domain.TransportError
	if errors.As(err, &te) && te.StatusCode == http.StatusTooManyRequests {
		return te, true
	}
	return nil, false
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
