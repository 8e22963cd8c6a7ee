package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"epcsync/internal/config"
	"epcsync/internal/domain"
	"epcsync/internal/port"
)

const (
	ssoLoginPath      = "/api/auth/sso/login"
	defaultTokenTTL   = 23 * time.Hour
	tokenExpiryLeeway = time.Minute
)

// StaticToken is a fixed bearer token. Invalidate is a no-op, so a second
// 401 surfaces as an AuthError.
type StaticToken string

func (t StaticToken) Token(_ context.Context) (string, error) {
	if t == "" {
		return "", &domain.AuthError{Scope: domain.ScopeRemote, Err: errors.New("no bearer token configured")}
	}
	return string(t), nil
}

func (t StaticToken) Invalidate() {}

// SSOTokenSource logs in to the SSO gateway and caches the token until it
// expires. Concurrent callers share one login; the mutex guards only the
// cached fields and is never held across the login request.
type SSOTokenSource struct {
	loginURL string
	email    string
	password string
	client   *http.Client
	now      func() time.Time

	mu      sync.RWMutex
	token   string
	expires time.Time

	group singleflight.Group
}

// NewSSOTokenSource creates an SSOTokenSource from the catalog SSO settings.
func NewSSOTokenSource(cfg *config.SSOConfig, timeout time.Duration) *SSOTokenSource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SSOTokenSource{
		loginURL: strings.TrimRight(cfg.GatewayURL, "/") + ssoLoginPath,
		email:    cfg.Email,
		password: cfg.Password,
		client:   &http.Client{Timeout: timeout},
		now:      time.Now,
	}
}

// NewTokenSource returns an SSO source when SSO credentials are configured,
// otherwise the static bearer token.
func NewTokenSource(cfg *config.CatalogConfig) port.TokenSource {
	if cfg.SSO.Enabled() {
		return NewSSOTokenSource(&cfg.SSO, time.Duration(cfg.TimeoutSecs)*time.Second)
	}
	return StaticToken(cfg.BearerToken)
}

// WithClock replaces the time source used for expiry checks (for testing).
func (s *SSOTokenSource) WithClock(now func() time.Time) *SSOTokenSource {
	s.now = now
	return s
}

func (s *SSOTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	token, expires := s.token, s.expires
	s.mu.RUnlock()
	if token != "" && s.now().Before(expires) {
		return token, nil
	}

	v, err, _ := s.group.Do("login", func() (interface{}, error) {
		return s.login(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate clears the cached token, forcing a fresh login on the next call.
func (s *SSOTokenSource) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.expires = time.Time{}
	logrus.Info("catalog.SSOTokenSource: bearer token invalidated")
}

func (s *SSOTokenSource) login(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{"email": s.email, "password": s.password})
	if err != nil {
		return "", fmt.Errorf("marshaling login request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.loginURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", &domain.TransportError{Scope: domain.ScopeRemote, Provider: "sso", Err: fmt.Errorf("calling SSO gateway: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &domain.TransportError{Scope: domain.ScopeRemote, Provider: "sso", Err: fmt.Errorf("reading login response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &domain.AuthError{
			Scope: domain.ScopeRemote,
			Err:   fmt.Errorf("SSO login failed (status %d): %s", resp.StatusCode, truncate(string(respBody), 300)),
		}
	}

	var parsed loginResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &domain.AuthError{Scope: domain.ScopeRemote, Err: fmt.Errorf("decoding login response: %w", err)}
	}
	token := parsed.token()
	if token == "" {
		return "", &domain.AuthError{Scope: domain.ScopeRemote, Err: errors.New("SSO token not found in login response")}
	}

	now := s.now()
	expires := now.Add(tokenTTL(now, parsed.expiresIn(), token))

	s.mu.Lock()
	s.token = token
	s.expires = expires.Add(-tokenExpiryLeeway)
	s.mu.Unlock()

	logrus.Infof("catalog.SSOTokenSource: obtained bearer token (expires %s)", expires.Format(time.RFC3339))
	return token, nil
}

// loginResponse covers the token locations seen in gateway responses.
type loginResponse struct {
	Data struct {
		OAuth struct {
			SSOToken  string `json:"sso_token"`
			ExpiresIn int64  `json:"expires_in"`
		} `json:"oauth"`
	} `json:"data"`
	SSOToken    string `json:"sso_token"`
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (r *loginResponse) token() string {
	for _, t := range []string{r.Data.OAuth.SSOToken, r.SSOToken, r.Token, r.AccessToken} {
		if t != "" {
			return t
		}
	}
	return ""
}

func (r *loginResponse) expiresIn() int64 {
	if r.Data.OAuth.ExpiresIn > 0 {
		return r.Data.OAuth.ExpiresIn
	}
	return r.ExpiresIn
}

// tokenTTL prefers the explicit expires_in, then the unverified JWT exp
// claim, then a 23h default.
func tokenTTL(now time.Time, expiresIn int64, token string) time.Duration {
	if expiresIn > 0 {
		return time.Duration(expiresIn) * time.Second
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			if ttl := exp.Time.Sub(now); ttl > 0 {
				return ttl
			}
		}
	}
	return defaultTokenTTL
}
