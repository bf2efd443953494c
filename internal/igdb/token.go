// AngelaMos | 2026
// token.go

package igdb

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"

	"github.com/gotitgames/catalog/internal/config"
	"github.com/gotitgames/catalog/internal/core"
	"github.com/gotitgames/catalog/internal/provider"
)

const (
	DefaultTokenURL = "https://id.twitch.tv/oauth2/token"

	// tokenMargin is subtracted from the advertised lifetime.
	tokenMargin = time.Hour

	tokenTimeout = 15 * time.Second
)

type tokenSource interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

// TokenCache holds one app access token and refreshes it lazily once the
// cached copy has expired. Concurrent callers share one refresh, and each
// caller stops waiting when its own context ends.
type TokenCache struct {
	source tokenSource
	client *http.Client
	clock  core.Clock
	flight singleflight.Group

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewTokenCache(cfg config.IGDBConfig, client *http.Client, clock core.Clock) (*TokenCache, error) {
	if cfg.ClientID == "" {
		return nil, &provider.ConfigurationError{Provider: Name, Field: "client_id"}
	}
	if cfg.ClientSecret == "" {
		return nil, &provider.ConfigurationError{Provider: Name, Field: "client_secret"}
	}

	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	if clock == nil {
		clock = core.SystemClock{}
	}

	return &TokenCache{
		source: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		client: client,
		clock:  clock,
	}, nil
}

// Token returns the cached token or fetches a new one.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	if tok, ok := c.cached(); ok {
		return tok, nil
	}

	ch := c.flight.DoChan("token", func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), tokenTimeout)
		defer cancel()
		return c.refresh(fetchCtx)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *TokenCache) cached() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.clock.Now().Before(c.expiresAt) {
		return c.token, true
	}
	return "", false
}

func (c *TokenCache) refresh(ctx context.Context) (string, error) {
	if tok, ok := c.cached(); ok {
		return tok, nil
	}

	if c.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.client)
	}

	tok, err := c.source.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch twitch token: %w", err)
	}

	now := c.clock.Now()
	c.mu.Lock()
	c.token = tok.AccessToken
	c.expiresAt = expiry(tok, now)
	c.mu.Unlock()

	return tok.AccessToken, nil
}

// Invalidate drops the cached token so the next call fetches a fresh one.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	c.token = ""
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}

func (c *TokenCache) ExpiresAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expiresAt
}

func expiry(tok *oauth2.Token, now time.Time) time.Time {
	lifetime := time.Duration(tok.ExpiresIn) * time.Second
	if lifetime <= 0 && !tok.Expiry.IsZero() {
		lifetime = tok.Expiry.Sub(now)
	}
	if lifetime <= 0 {
		return now
	}
	if lifetime > 2*tokenMargin {
		return now.Add(lifetime - tokenMargin)
	}
	return now.Add(lifetime / 2)
}
