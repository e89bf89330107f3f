package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nahomt/bookbridge/internal/models"
	"github.com/nahomt/bookbridge/internal/service/auth"
	"github.com/nahomt/bookbridge/internal/service/identity"
	"github.com/nahomt/bookbridge/internal/service/token"
)

type staticVerifier struct {
	claims *identity.Claims
	err    error
}

func (v *staticVerifier) Verify(ctx context.Context, idToken, provider string) (*identity.Claims, error) {
	return v.claims, v.err
}

func newAuthHandler(env *testEnv, v auth.Verifier) *AuthHandler {
	signer := &token.Signer{Secret: []byte("secret"), Issuer: "bookbridge", Audience: "bookbridge-api"}
	return &AuthHandler{DB: env.DB, Svc: &auth.Service{DB: env.DB, Verifier: v, Tokens: signer}}
}

func TestExchangeRejectedTokenUnauthorized(t *testing.T) {
	env := newTestEnv(t)
	h := newAuthHandler(env, &staticVerifier{err: errors.New("bad token")})

	_, c := env.doJSONRequest(http.MethodPost, "/api/Auth",
		map[string]any{"idToken": "junk", "provider": "google"})
	requireHTTPError(t, h.Exchange(c), http.StatusUnauthorized)
}

func TestExchangeStorageFailureInternal(t *testing.T) {
	env := newTestEnv(t)
	h := newAuthHandler(env, &staticVerifier{claims: &identity.Claims{
		Subject: "google-sub-1", Email: "new@example.com", Name: "New Reader",
	}})
	require.NoError(t, env.DB.Migrator().DropTable(&models.User{}))

	_, c := env.doJSONRequest(http.MethodPost, "/api/Auth",
		map[string]any{"idToken": "idtok", "provider": "google"})
	requireHTTPError(t, h.Exchange(c), http.StatusInternalServerError)
}

func TestExchangeMissingFields(t *testing.T) {
	env := newTestEnv(t)
	h := newAuthHandler(env, &staticVerifier{})

	_, c := env.doJSONRequest(http.MethodPost, "/api/Auth", map[string]any{"provider": "google"})
	requireHTTPError(t, h.Exchange(c), http.StatusBadRequest)
}
