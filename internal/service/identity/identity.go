// Package identity verifies third-party OAuth ID tokens before a session is
// issued. Verification is delegated to the provider's tokeninfo endpoint.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const googleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

type Claims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	Audience      string `json:"aud"`
}

type Verifier struct {
	httpClient   *http.Client
	tokenInfoURL string
	audience     string
}

func NewVerifier(audience string) *Verifier {
	return &Verifier{
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		tokenInfoURL: googleTokenInfoURL,
		audience:     audience,
	}
}

// NewVerifierWithURL is used by tests to point at a fake provider.
func NewVerifierWithURL(audience, tokenInfoURL string) *Verifier {
	v := NewVerifier(audience)
	v.tokenInfoURL = tokenInfoURL
	return v
}

// Verify checks the ID token against the provider and returns its claims.
// Only the "google" provider is supported.
func (v *Verifier) Verify(ctx context.Context, idToken, provider string) (*Claims, error) {
	if !strings.EqualFold(provider, "google") {
		return nil, fmt.Errorf("unsupported identity provider %q", provider)
	}
	if idToken == "" {
		return nil, fmt.Errorf("id token is required")
	}

	q := url.Values{}
	q.Set("id_token", idToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.tokenInfoURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tokeninfo request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tokeninfo returned %d", resp.StatusCode)
	}

	var claims Claims
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return nil, fmt.Errorf("tokeninfo decode failed: %w", err)
	}
	if v.audience != "" && claims.Audience != v.audience {
		return nil, fmt.Errorf("token audience mismatch")
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("token carries no email")
	}
	return &claims, nil
}
