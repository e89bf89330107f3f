// Package momo talks to the mobile-money collection gateway: an OAuth
// client-credentials token exchange, a request-to-pay call, then a status
// read. Every call carries a bounded timeout; the status read is the only
// retried call since it is an idempotent GET.
package momo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyResponse means the gateway answered but reported no transaction;
// callers translate this to not-found.
var ErrEmptyResponse = errors.New("momo: empty gateway response")

type Client struct {
	httpClient      *http.Client
	baseURL         string
	key             string
	secret          string
	subscriptionKey string
}

func NewClient(baseURL, key, secret, subscriptionKey string) *Client {
	return &Client{
		httpClient:      &http.Client{Timeout: 20 * time.Second},
		baseURL:         baseURL,
		key:             key,
		secret:          secret,
		subscriptionKey: subscriptionKey,
	}
}

type PaymentRequest struct {
	Amount     float64
	Currency   string
	Phone      string
	ExternalID string
	Note       string
}

type Transaction struct {
	FinancialTransactionID string  `json:"financialTransactionId"`
	ExternalID             string  `json:"externalId"`
	Amount                 float64 `json:"amount,string"`
	Currency               string  `json:"currency"`
	Status                 string  `json:"status"`
	Reason                 string  `json:"reason,omitempty"`
}

type tokenResp struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *Client) token(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/collection/token/", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.key, c.secret)
	req.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("momo: token request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("momo: token endpoint returned %d", resp.StatusCode)
	}

	var tr tokenResp
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("momo: token decode failed: %w", err)
	}
	if tr.AccessToken == "" {
		return "", ErrEmptyResponse
	}
	return tr.AccessToken, nil
}

// RequestToPay initiates a collection and reads back the transaction status.
// The returned transaction carries the gateway-assigned transaction code.
func (c *Client) RequestToPay(ctx context.Context, p PaymentRequest) (*Transaction, error) {
	access, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	referenceID := uuid.NewString()
	body := map[string]any{
		"amount":     fmt.Sprintf("%.2f", p.Amount),
		"currency":   p.Currency,
		"externalId": p.ExternalID,
		"payer": map[string]string{
			"partyIdType": "MSISDN",
			"partyId":     p.Phone,
		},
		"payerMessage": p.Note,
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/collection/v1_0/requesttopay", bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+access)
	req.Header.Set("X-Reference-Id", referenceID)
	req.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("momo: requesttopay failed: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("momo: requesttopay returned %d", resp.StatusCode)
	}

	return c.status(ctx, access, referenceID)
}

func (c *Client) status(ctx context.Context, access, referenceID string) (*Transaction, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		tx, err := c.statusOnce(ctx, access, referenceID)
		if err == nil {
			return tx, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c *Client) statusOnce(ctx context.Context, access, referenceID string) (*Transaction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/collection/v1_0/requesttopay/"+referenceID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+access)
	req.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("momo: status read failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrEmptyResponse
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("momo: status endpoint returned %d", resp.StatusCode)
	}

	var tx Transaction
	if err := json.NewDecoder(resp.Body).Decode(&tx); err != nil {
		return nil, fmt.Errorf("momo: status decode failed: %w", err)
	}
	if tx.FinancialTransactionID == "" && tx.Status == "" {
		return nil, ErrEmptyResponse
	}
	return &tx, nil
}
