// Package gateway holds the HTTP clients for the external payment processors.
// Each processor shares one Initialize/Verify contract: Initialize returns the
// redirect URL the buyer is sent to, Verify confirms whether the charge for a
// reference settled. Amounts cross the wire in minor units except where a
// processor's API demands otherwise.
package gateway

import (
	"context"
	"net/http"
	"time"
)

type Method string

const (
	MethodPaystack    Method = "paystack"
	MethodFlutterwave Method = "flutterwave"
	MethodCrypto      Method = "crypto"
)

type InitializeRequest struct {
	Reference   string
	Amount      int64
	Currency    string
	Email       string
	CallbackURL string
}

type InitializeResponse struct {
	AuthorizationURL string
}

type VerifyResult struct {
	Paid     bool
	Amount   int64
	Currency string
	PaidAt   time.Time
}

// Client is one payment processor.
type Client interface {
	Name() Method
	Initialize(ctx context.Context, req InitializeRequest) (*InitializeResponse, error)
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 15 * time.Second}
}
