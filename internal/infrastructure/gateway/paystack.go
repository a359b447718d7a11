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

type PaystackClient struct {
	baseURL   string
	secretKey string
	http      *http.Client
}

func NewPaystackClient(baseURL, secretKey string) *PaystackClient {
	return &PaystackClient{baseURL: baseURL, secretKey: secretKey, http: newHTTPClient()}
}

func (c *PaystackClient) Name() Method { return MethodPaystack }

func (c *PaystackClient) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResponse, error) {
	body, err := json.Marshal(map[string]interface{}{
		"reference":    req.Reference,
		"amount":       req.Amount,
		"currency":     req.Currency,
		"email":        req.Email,
		"callback_url": req.CallbackURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal paystack request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		slog.Error("paystack initialize failed", "reference", req.Reference, "error", err)
		return nil, fmt.Errorf("paystack initialize: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("paystack initialize: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		Status bool `json:"status"`
		Data   struct {
			AuthorizationURL string `json:"authorization_url"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("paystack initialize: decode: %w", err)
	}
	if !out.Status || out.Data.AuthorizationURL == "" {
		return nil, fmt.Errorf("paystack initialize: gateway rejected reference %s", req.Reference)
	}
	return &InitializeResponse{AuthorizationURL: out.Data.AuthorizationURL}, nil
}

func (c *PaystackClient) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		slog.Error("paystack verify failed", "reference", reference, "error", err)
		return nil, fmt.Errorf("paystack verify: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("paystack verify: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		Status bool `json:"status"`
		Data   struct {
			Status   string    `json:"status"`
			Amount   int64     `json:"amount"`
			Currency string    `json:"currency"`
			PaidAt   time.Time `json:"paid_at"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("paystack verify: decode: %w", err)
	}
	return &VerifyResult{
		Paid:     out.Status && out.Data.Status == "success",
		Amount:   out.Data.Amount,
		Currency: out.Data.Currency,
		PaidAt:   out.Data.PaidAt,
	}, nil
}
