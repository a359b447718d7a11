package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

type FlutterwaveClient struct {
	baseURL   string
	secretKey string
	http      *http.Client
}

func NewFlutterwaveClient(baseURL, secretKey string) *FlutterwaveClient {
	return &FlutterwaveClient{baseURL: baseURL, secretKey: secretKey, http: newHTTPClient()}
}

func (c *FlutterwaveClient) Name() Method { return MethodFlutterwave }

func (c *FlutterwaveClient) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResponse, error) {
	// Flutterwave takes major units as a decimal string.
	body, err := json.Marshal(map[string]interface{}{
		"tx_ref":       req.Reference,
		"amount":       fmt.Sprintf("%d.%02d", req.Amount/100, req.Amount%100),
		"currency":     req.Currency,
		"redirect_url": req.CallbackURL,
		"customer":     map[string]string{"email": req.Email},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal flutterwave request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		slog.Error("flutterwave initialize failed", "reference", req.Reference, "error", err)
		return nil, fmt.Errorf("flutterwave initialize: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("flutterwave initialize: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		Status string `json:"status"`
		Data   struct {
			Link string `json:"link"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("flutterwave initialize: decode: %w", err)
	}
	if out.Status != "success" || out.Data.Link == "" {
		return nil, fmt.Errorf("flutterwave initialize: gateway rejected reference %s", req.Reference)
	}
	return &InitializeResponse{AuthorizationURL: out.Data.Link}, nil
}

func (c *FlutterwaveClient) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/transactions/verify_by_reference?tx_ref="+url.QueryEscape(reference), nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		slog.Error("flutterwave verify failed", "reference", reference, "error", err)
		return nil, fmt.Errorf("flutterwave verify: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("flutterwave verify: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		Status string `json:"status"`
		Data   struct {
			Status    string    `json:"status"`
			Amount    float64   `json:"amount"`
			Currency  string    `json:"currency"`
			CreatedAt time.Time `json:"created_at"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("flutterwave verify: decode: %w", err)
	}
	return &VerifyResult{
		Paid:     out.Status == "success" && out.Data.Status == "successful",
		Amount:   int64(out.Data.Amount*100 + 0.5),
		Currency: out.Data.Currency,
		PaidAt:   out.Data.CreatedAt,
	}, nil
}
