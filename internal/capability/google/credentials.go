// Package google implements the calendar and mail capabilities on the
// Google APIs, authenticated with OAuth tokens from the local store.
package google

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"github.com/attache-hq/attache/internal/domain"
	"github.com/attache-hq/attache/internal/store"
)

// ErrNoCredentials means no Google account has been connected yet. It is
// the shared domain sentinel, so callers anywhere in the stack can match it.
var ErrNoCredentials = domain.ErrNoCredentials

// Credentials produces oauth2 token sources from the token store. Refreshed
// tokens are written back so the newest row stays current.
type Credentials struct {
	tokens       *store.TokenStore
	clientID     string
	clientSecret string
}

// NewCredentials creates a credentials source.
func NewCredentials(tokens *store.TokenStore, clientID, clientSecret string) *Credentials {
	return &Credentials{tokens: tokens, clientID: clientID, clientSecret: clientSecret}
}

// TokenSource returns an auto-refreshing token source backed by the most
// recently stored token, or ErrNoCredentials when none is stored.
func (c *Credentials) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	stored, err := c.tokens.Latest(ctx)
	if errors.Is(err, store.ErrNoTokens) {
		return nil, ErrNoCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("loading google credentials: %w", err)
	}

	cfg := &oauth2.Config{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		Endpoint:     googleoauth.Endpoint,
	}
	tok := &oauth2.Token{
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
		Expiry:       stored.Expiry,
	}
	return &savingSource{
		inner:  cfg.TokenSource(ctx, tok),
		tokens: c.tokens,
		ctx:    ctx,
		last:   tok.AccessToken,
	}, nil
}

// savingSource persists refreshed tokens back to the store.
type savingSource struct {
	inner  oauth2.TokenSource
	tokens *store.TokenStore
	ctx    context.Context
	last   string
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	tok, err := s.inner.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		_ = s.tokens.Save(s.ctx, store.GoogleToken{
			AccessToken:  tok.AccessToken,
			RefreshToken: tok.RefreshToken,
			Expiry:       tok.Expiry,
		})
	}
	return tok, nil
}
