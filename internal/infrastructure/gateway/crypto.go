package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// CryptoClient talks to the hosted-charge crypto processor.
type CryptoClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewCryptoClient(baseURL, apiKey string) *CryptoClient {
	return &CryptoClient{baseURL: baseURL, apiKey: apiKey, http: newHTTPClient()}
}

func (c *CryptoClient) Name() Method { return MethodCrypto }

func (c *CryptoClient) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResponse, error) {
	body, err := json.Marshal(map[string]interface{}{
		"reference":    req.Reference,
		"amount":       req.Amount,
		"currency":     req.Currency,
		"redirect_url": req.CallbackURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal crypto charge request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/charges", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("X-Api-Key", c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		slog.Error("crypto charge failed", "reference", req.Reference, "error", err)
		return nil, fmt.Errorf("crypto initialize: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("crypto initialize: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		HostedURL string `json:"hosted_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("crypto initialize: decode: %w", err)
	}
	if out.HostedURL == "" {
		return nil, fmt.Errorf("crypto initialize: gateway rejected reference %s", req.Reference)
	}
	return &InitializeResponse{AuthorizationURL: out.HostedURL}, nil
}

func (c *CryptoClient) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/charges/"+reference, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		slog.Error("crypto verify failed", "reference", reference, "error", err)
		return nil, fmt.Errorf("crypto verify: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("crypto verify: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		Status      string    `json:"status"`
		Amount      int64     `json:"amount"`
		Currency    string    `json:"currency"`
		ConfirmedAt time.Time `json:"confirmed_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("crypto verify: decode: %w", err)
	}
	return &VerifyResult{
		Paid:     out.Status == "confirmed",
		Amount:   out.Amount,
		Currency: out.Currency,
		PaidAt:   out.ConfirmedAt,
	}, nil
}
