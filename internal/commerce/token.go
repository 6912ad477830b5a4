package commerce

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"
)

// AccessToken is a backend bearer token with its lifetime
type AccessToken struct {
	Value     string
	TTL       time.Duration
	ExpiresAt time.Time
}

// TokenStore holds the process-wide access token.
// A single refresh job writes it; every other call site only reads.
type TokenStore struct {
	current atomic.Pointer[AccessToken]
}

// NewTokenStore creates a TokenStore seeded with tok
func NewTokenStore(tok AccessToken) *TokenStore {
	s := &TokenStore{}
	s.Set(tok)
	return s
}

// Token implements TokenSource
func (s *TokenStore) Token() string {
	if tok := s.current.Load(); tok != nil {
		return tok.Value
	}
	return ""
}

// Current returns the stored token, if any
func (s *TokenStore) Current() (AccessToken, bool) {
	tok := s.current.Load()
	if tok == nil {
		return AccessToken{}, false
	}
	return *tok, true
}

// Set replaces the stored token
func (s *TokenStore) Set(tok AccessToken) {
	s.current.Store(&tok)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	Expires     int64  `json:"expires"`
}

// MintToken obtains a new token with the client credentials grant
func (c *Client) MintToken(ctx context.Context, clientID, secret string) (AccessToken, error) {
	var resp tokenResponse
	err := c.do(ctx, request{
		op:     "mint token",
		method: http.MethodPost,
		path:   "/oauth/access_token",
		form: url.Values{
			"client_id":     {clientID},
			"client_secret": {secret},
			"grant_type":    {"client_credentials"},
		},
		noAuth: true,
	}, &resp)
	if err != nil {
		return AccessToken{}, err
	}
	if resp.AccessToken == "" {
		return AccessToken{}, fmt.Errorf("mint token: empty access token")
	}

	ttl := time.Duration(resp.ExpiresIn) * time.Second
	expiresAt := time.Now().Add(ttl)
	if resp.Expires > 0 {
		expiresAt = time.Unix(resp.Expires, 0)
	}
	return AccessToken{Value: resp.AccessToken, TTL: ttl, ExpiresAt: expiresAt}, nil
}
