package warehouse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// refreshSkew is how long before the stated expiry a token is treated as
// expired, so callers never present a token about to lapse mid-request.
const refreshSkew = 5 * time.Minute

// TokenProvider supplies a bearer token for warehouse API calls.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// TokenSource obtains bearer tokens via the client-credentials exchange and
// caches them until near expiry. Concurrent callers hitting an expired
// token trigger only one refresh via a single-flight guard.
type TokenSource struct {
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	now          func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time

	group singleflight.Group
}

// TokenSourceConfig holds configuration for a TokenSource.
type TokenSourceConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	Now          func() time.Time // defaults to time.Now; injectable for tests
}

// NewTokenSource creates a new client-credentials token source.
func NewTokenSource(cfg TokenSourceConfig) *TokenSource {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &TokenSource{
		tokenURL:     cfg.TokenURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		httpClient:   &http.Client{Timeout: timeout},
		now:          now,
	}
}

// Token returns a valid bearer token, refreshing it when needed.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.token != "" && s.now().Before(s.expiry) {
		token := s.token
		s.mu.Unlock()
		return token, nil
	}
	s.mu.Unlock()

	result, err, _ := s.group.Do("token", func() (interface{}, error) {
		// Re-check: another caller may have refreshed while we queued.
		s.mu.Lock()
		if s.token != "" && s.now().Before(s.expiry) {
			token := s.token
			s.mu.Unlock()
			return token, nil
		}
		s.mu.Unlock()

		token, expiry, err := s.exchange(ctx)
		if err != nil {
			return "", err
		}

		s.mu.Lock()
		s.token = token
		s.expiry = expiry
		s.mu.Unlock()
		return token, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// exchange performs the client-credentials grant.
func (s *TokenSource) exchange(ctx context.Context) (string, time.Time, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {s.clientID},
		"client_secret": {s.clientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("token exchange failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", time.Time{}, fmt.Errorf("token exchange failed: %d - %s", resp.StatusCode, string(body))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", time.Time{}, fmt.Errorf("token exchange returned empty access token")
	}

	expiry := s.now().Add(time.Duration(payload.ExpiresIn)*time.Second - refreshSkew)
	return payload.AccessToken, expiry, nil
}

// Ensure TokenSource implements TokenProvider interface
var _ TokenProvider = (*TokenSource)(nil)
