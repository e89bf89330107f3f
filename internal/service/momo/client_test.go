package momo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newGateway(t *testing.T, status http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/collection/token/", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "key" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Header.Get("Ocp-Apim-Subscription-Key") != "sub" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "token_type": "Bearer", "expires_in": 3600})
	})
	mux.HandleFunc("/collection/v1_0/requesttopay", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Reference-Id") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("/collection/v1_0/requesttopay/", status)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRequestToPay(t *testing.T) {
	srv := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"financialTransactionId": "FT42", "externalId": "7",
			"amount": "12.50", "currency": "EUR", "status": "SUCCESSFUL",
		})
	})
	c := NewClient(srv.URL, "key", "secret", "sub")

	tx, err := c.RequestToPay(context.Background(), PaymentRequest{
		Amount: 12.5, Currency: "EUR", Phone: "251900000000", ExternalID: "7",
	})
	require.NoError(t, err)
	require.Equal(t, "FT42", tx.FinancialTransactionID)
	require.Equal(t, "SUCCESSFUL", tx.Status)
	require.Equal(t, 12.5, tx.Amount)
}

func TestRequestToPayEmptyStatus(t *testing.T) {
	srv := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{})
	})
	c := NewClient(srv.URL, "key", "secret", "sub")

	_, err := c.RequestToPay(context.Background(), PaymentRequest{
		Amount: 1, Currency: "EUR", Phone: "x", ExternalID: "1",
	})
	require.ErrorIs(t, err, ErrEmptyResponse)
}

func TestRequestToPayUnknownReference(t *testing.T) {
	srv := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	c := NewClient(srv.URL, "key", "secret", "sub")

	_, err := c.RequestToPay(context.Background(), PaymentRequest{
		Amount: 1, Currency: "EUR", Phone: "x", ExternalID: "1",
	})
	require.ErrorIs(t, err, ErrEmptyResponse)
}

func TestTokenFailureSurfaces(t *testing.T) {
	c := NewClient("http://127.0.0.1:0", "key", "secret", "sub")
	_, err := c.RequestToPay(context.Background(), PaymentRequest{
		Amount: 1, Currency: "EUR", Phone: "x", ExternalID: "1",
	})
	require.Error(t, err)
}
