package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNoTokens indicates that no Google tokens have been stored yet.
var ErrNoTokens = errors.New("no stored google tokens")

// GoogleToken is one stored OAuth token row. The most recent row wins.
type GoogleToken struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
	UpdatedAt    time.Time
}

// TokenStore persists Google OAuth tokens.
type TokenStore struct {
	db *DB
}

// NewTokenStore creates a token store using the given database.
func NewTokenStore(db *DB) *TokenStore {
	return &TokenStore{db: db}
}

// Save inserts a new token row.
func (s *TokenStore) Save(ctx context.Context, tok GoogleToken) error {
	expiry := ""
	if !tok.Expiry.IsZero() {
		expiry = tok.Expiry.UTC().Format(time.RFC3339)
	}
	_, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO google_tokens (access_token, refresh_token, token_expiry, updated_at)
		 VALUES (?, ?, ?, ?)`,
		tok.AccessToken, tok.RefreshToken, expiry, time.Now().UTC().Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("saving google token: %w", err)
	}
	return nil
}

// Latest returns the most recently stored token, or ErrNoTokens.
func (s *TokenStore) Latest(ctx context.Context) (GoogleToken, error) {
	var tok GoogleToken
	var expiry, updated string

	err := s.db.sql.QueryRowContext(ctx,
		`SELECT access_token, refresh_token, token_expiry, updated_at
		 FROM google_tokens ORDER BY updated_at DESC, id DESC LIMIT 1`,
	).Scan(&tok.AccessToken, &tok.RefreshToken, &expiry, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return GoogleToken{}, ErrNoTokens
	}
	if err != nil {
		return GoogleToken{}, fmt.Errorf("loading google token: %w", err)
	}

	if expiry != "" {
		tok.Expiry, _ = time.Parse(time.RFC3339, expiry)
	}
	tok.UpdatedAt, _ = time.Parse(time.DateTime, updated)
	return tok, nil
}
