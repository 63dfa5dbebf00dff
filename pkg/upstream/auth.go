package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// tokenRefreshSkew is how long before expiry the cached token is refreshed
// (spec §4.1: "cache the token and refresh 60s before expiry").
const tokenRefreshSkew = 60 * time.Second

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"` // seconds
}

// tokenCache caches the bearer token obtained from authenticate(), guarded
// by a mutex since Extract and Transform runs may share one Client.
type tokenCache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func (c *Client) authenticate(ctx context.Context) (string, error) {
	c.tokenCache.mu.Lock()
	defer c.tokenCache.mu.Unlock()

	if c.tokenCache.token != "" && time.Now().Before(c.tokenCache.expiresAt.Add(-tokenRefreshSkew)) {
		return c.tokenCache.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, nil)
	if err != nil {
		return "", fmt.Errorf("build auth request: %w", err)
	}
	req.SetBasicAuth(c.cfg.Username, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &NetworkError{Endpoint: c.cfg.TokenURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &ApiError{StatusCode: resp.StatusCode, Endpoint: c.cfg.TokenURL, RawBody: readBodySnippet(resp)}
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", &SchemaError{Endpoint: c.cfg.TokenURL, Field: "body", Reason: err.Error()}
	}

	c.tokenCache.token = tr.AccessToken
	c.tokenCache.expiresAt = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)

	return c.tokenCache.token, nil
}
