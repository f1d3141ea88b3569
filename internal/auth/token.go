// Package auth exchanges a service-account identity for short-lived bearer
// tokens scoped to the push-delivery API.
package auth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/prophive/push-dispatcher/internal/config"
)

const (
	messagingScope = "https://www.googleapis.com/auth/firebase.messaging"
	jwtBearerGrant = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	assertionTTL         = time.Hour
	maxTokenResponseSize = 1 << 20
)

// ErrCredentialExchange marks a failed token exchange: transport error,
// non-2xx response, or a missing/empty access token. All three abort the
// dispatch before any recipient is contacted.
var ErrCredentialExchange = errors.New("credential exchange failed")

// HTTPDoer is the subset of http.Client the token source needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenSource mints one bearer token per call by signing a service-account
// assertion and performing the OAuth2 jwt-bearer grant. Tokens are not cached:
// every dispatch re-authenticates, which bounds token lifetime at the cost of
// one extra round trip per event.
type TokenSource struct {
	clientEmail string
	privateKey  *rsa.PrivateKey
	tokenURL    string
	httpClient  HTTPDoer
	now         func() time.Time
	logger      *slog.Logger
}

// Option configures a TokenSource.
type Option func(*TokenSource)

// WithHTTPClient overrides the HTTP client used for the exchange.
func WithHTTPClient(c HTTPDoer) Option {
	return func(s *TokenSource) { s.httpClient = c }
}

// WithTokenURL overrides the OAuth token endpoint.
func WithTokenURL(u string) Option {
	return func(s *TokenSource) { s.tokenURL = u }
}

// WithClock overrides the clock used for assertion claims.
func WithClock(now func() time.Time) Option {
	return func(s *TokenSource) { s.now = now }
}

// NewTokenSource parses the service account's signing key and returns a
// ready token source. A key that does not parse is a configuration error.
func NewTokenSource(sa *config.ServiceAccount, logger *slog.Logger, opts ...Option) (*TokenSource, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(sa.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing private key: %v", config.ErrConfiguration, err)
	}

	s := &TokenSource{
		clientEmail: sa.ClientEmail,
		privateKey:  key,
		tokenURL:    "https://oauth2.googleapis.com/token",
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		now:         time.Now,
		logger:      logger.With("component", "token_source"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Token signs a fresh assertion and exchanges it for a bearer token.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	now := s.now().UTC()
	claims := jwt.MapClaims{
		"iss":   s.clientEmail,
		"scope": messagingScope,
		"aud":   s.tokenURL,
		"iat":   now.Unix(),
		"exp":   now.Add(assertionTTL).Unix(),
	}

	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("%w: signing assertion: %v", ErrCredentialExchange, err)
	}

	form := url.Values{
		"grant_type": {jwtBearerGrant},
		"assertion":  {assertion},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: building request: %v", ErrCredentialExchange, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCredentialExchange, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseSize))
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", ErrCredentialExchange, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Warn("token endpoint rejected assertion", "status", resp.StatusCode)
		return "", fmt.Errorf("%w: token endpoint returned %d", ErrCredentialExchange, resp.StatusCode)
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrCredentialExchange, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrCredentialExchange)
	}

	return tok.AccessToken, nil
}
