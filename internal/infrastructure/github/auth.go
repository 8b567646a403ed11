package github

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Authenticator provides Authorization header values for API requests.
// Token auth is static once resolved; App auth mints short-lived
// installation tokens and rotates them before expiry.
type Authenticator interface {
	// AuthorizationHeader returns a valid Authorization header value
	AuthorizationHeader(ctx context.Context) (string, error)
}

// tokenRotationMargin is how far before expiry an installation token is
// rotated. GitHub tokens live one hour; rotating early avoids a token
// expiring mid-request.
const tokenRotationMargin = 5 * time.Minute

// tokenAuth pulls a personal access token from a provider on first use
// and keeps it for the process lifetime. The provider is typically the
// credential resolver, so the token is only requested once an API call
// actually happens.
type tokenAuth struct {
	provider func(ctx context.Context) (string, error)

	mu     sync.Mutex
	header string
}

// NewTokenAuth creates an Authenticator backed by a token provider
func NewTokenAuth(provider func(ctx context.Context) (string, error)) Authenticator {
	return &tokenAuth{provider: provider}
}

func (a *tokenAuth) AuthorizationHeader(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.header != "" {
		return a.header, nil
	}

	token, err := a.provider(ctx)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", fmt.Errorf("github: token provider returned an empty token")
	}

	a.header = "Bearer " + token
	return a.header, nil
}

// appAuth authenticates as a GitHub App installation: an RS256 JWT from
// the App private key is exchanged for a short-lived installation
// token, cached, and rotated before expiry.
type appAuth struct {
	appID          int64
	installationID int64
	key            *rsa.PrivateKey
	baseURL        string
	httpClient     *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewAppAuth creates an Authenticator for a GitHub App installation
func NewAppAuth(baseURL string, appID, installationID int64, privateKeyPEM []byte) (Authenticator, error) {
	if appID == 0 || installationID == 0 {
		return nil, fmt.Errorf("github: app auth requires app_id and installation_id")
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("github: parsing app private key: %v", err)
	}
	return &appAuth{
		appID:          appID,
		installationID: installationID,
		key:            key,
		baseURL:        baseURL,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (a *appAuth) AuthorizationHeader(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token != "" && time.Now().Before(a.expiresAt.Add(-tokenRotationMargin)) {
		return "Bearer " + a.token, nil
	}

	token, expiresAt, err := a.rotate(ctx)
	if err != nil {
		return "", err
	}

	a.token = token
	a.expiresAt = expiresAt
	return "Bearer " + token, nil
}

// rotate mints a fresh installation token. Called with a.mu held.
func (a *appAuth) rotate(ctx context.Context) (string, time.Time, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		// Issued 60s in the past to absorb clock skew with the API.
		IssuedAt:  jwt.NewNumericDate(now.Add(-60 * time.Second)),
		ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
		Issuer:    strconv.FormatInt(a.appID, 10),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(a.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("github: signing app JWT: %v", err)
	}

	url := fmt.Sprintf("%s/app/installations/%d/access_tokens", a.baseURL, a.installationID)
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("github: building token exchange request: %v", err)
	}
	request.Header.Set("Authorization", "Bearer "+signed)
	request.Header.Set("Accept", acceptHeader)

	response, err := a.httpClient.Do(request)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("github: token exchange: %v", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusCreated {
		return "", time.Time{}, fmt.Errorf("github: token exchange returned HTTP %d", response.StatusCode)
	}

	var result struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := json.NewDecoder(response.Body).Decode(&result); err != nil {
		return "", time.Time{}, fmt.Errorf("github: decoding token exchange response: %v", err)
	}
	if result.Token == "" {
		return "", time.Time{}, fmt.Errorf("github: token exchange returned an empty token")
	}

	return result.Token, result.ExpiresAt, nil
}
