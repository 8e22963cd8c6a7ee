package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"epcsync/internal/domain"
	"epcsync/internal/port"
)

// circuitState tracks rate-limit backoff for a single provider.
type circuitState struct {
	mu      sync.RWMutex
	resetAt time.Time // zero value = closed (healthy)
}

func (c *circuitState) isOpenWithReset(now time.Time) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resetAt, !c.resetAt.IsZero() && now.Before(c.resetAt)
}

func (c *circuitState) open(resetAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetAt = resetAt
}

// FallbackClient tries model clients in order, skipping those with open circuits.
// It implements port.ModelClient.
type FallbackClient struct {
	clients  []port.ModelClient
	circuits []*circuitState
	names    []string
}

// NewFallbackClient creates a FallbackClient from an ordered list of clients and their names.
func NewFallbackClient(clients []port.ModelClient, names []string) *FallbackClient {
	circuits := make([]*circuitState, len(clients))
	for i := range circuits {
		circuits[i] = &circuitState{}
	}
	return &FallbackClient{
		clients:  clients,
		circuits: circuits,
		names:    names,
	}
}

func (f *FallbackClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	now := time.Now()
	var lastErr error
	allRateLimited := true
	var earliestReset time.Time

	for i, c := range f.clients {
		if resetAt, open := f.circuits[i].isOpenWithReset(now); open {
			logrus.Debugf("llm.FallbackClient: skipping %s (circuit open until %s)", f.names[i], resetAt.Format(time.RFC3339))
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
			continue
		}

		out, err := c.Complete(ctx, systemPrompt, userPrompt)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, context.Canceled) {
			return "", err
		}

		logrus.Warnf("llm.FallbackClient: %s failed: %v", f.names[i], err)
		lastErr = err

		if rlErr, ok := IsRateLimited(err); ok {
			resetAt := now.Add(rlErr.RetryAfter)
			f.circuits[i].open(resetAt)
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
		} else {
			allRateLimited = false
		}
	}

	if lastErr == nil || allRateLimited {
		retryAfter := time.Until(earliestReset)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return "", NewRateLimitError("all", fmt.Errorf("all model providers rate limited"), int(retryAfter.Seconds()))
	}

	// Keep the classification of the last failure so callers can tell auth
	// problems from transient ones.
	var authErr *domain.AuthError
	if errors.As(lastErr, &authErr) {
		return "", lastErr
	}
	var te *domain.TransportError
	if errors.As(lastErr, &te) {
		return "", &domain.TransportError{
			Scope:      domain.ScopeModel,
			Provider:   "all",
			StatusCode: te.StatusCode,
			RetryAfter: te.RetryAfter,
			Err:        fmt.Errorf("all model providers failed: %w", lastErr),
		}
	}
	return "", fmt.Errorf("all model providers failed: %w", lastErr)
}
