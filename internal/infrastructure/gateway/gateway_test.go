package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var initReq = InitializeRequest{
	Reference:   "ref-0001",
	Amount:      10_200,
	Currency:    "USD",
	Email:       "buyer@example.com",
	CallbackURL: "http://localhost:3000/payments/callback",
}

func TestPaystackClient(t *testing.T) {
	ctx := context.Background()

	t.Run("Initialize", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/transaction/initialize", r.URL.Path)
			assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			// Paystack takes minor units.
			assert.Equal(t, float64(10_200), body["amount"])
			assert.Equal(t, "ref-0001", body["reference"])

			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": true,
				"data":   map[string]string{"authorization_url": "https://checkout.paystack.com/abc"},
			})
		}))
		defer srv.Close()

		client := NewPaystackClient(srv.URL, "sk_test")
		resp, err := client.Initialize(ctx, initReq)
		require.NoError(t, err)
		assert.Equal(t, "https://checkout.paystack.com/abc", resp.AuthorizationURL)
	})

	t.Run("InitializeRejected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{"status": false})
		}))
		defer srv.Close()

		client := NewPaystackClient(srv.URL, "sk_test")
		_, err := client.Initialize(ctx, initReq)
		assert.Error(t, err)
	})

	t.Run("VerifySuccess", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/transaction/verify/ref-0001", r.URL.Path)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": true,
				"data": map[string]interface{}{
					"status": "success", "amount": 10_200, "currency": "USD",
					"paid_at": "2026-08-29T12:00:00Z",
				},
			})
		}))
		defer srv.Close()

		client := NewPaystackClient(srv.URL, "sk_test")
		result, err := client.Verify(ctx, "ref-0001")
		require.NoError(t, err)
		assert.True(t, result.Paid)
		assert.Equal(t, int64(10_200), result.Amount)
		assert.False(t, result.PaidAt.IsZero())
	})

	t.Run("VerifyAbandoned", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": true,
				"data":   map[string]interface{}{"status": "abandoned"},
			})
		}))
		defer srv.Close()

		client := NewPaystackClient(srv.URL, "sk_test")
		result, err := client.Verify(ctx, "ref-0001")
		require.NoError(t, err)
		assert.False(t, result.Paid)
	})

	t.Run("UpstreamError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		client := NewPaystackClient(srv.URL, "sk_test")
		_, err := client.Verify(ctx, "ref-0001")
		assert.Error(t, err)
	})
}

func TestFlutterwaveClient(t *testing.T) {
	ctx := context.Background()

	t.Run("InitializeSendsMajorUnits", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/payments", r.URL.Path)

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "102.00", body["amount"])
			assert.Equal(t, "ref-0001", body["tx_ref"])

			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "success",
				"data":   map[string]string{"link": "https://checkout.flutterwave.com/abc"},
			})
		}))
		defer srv.Close()

		client := NewFlutterwaveClient(srv.URL, "FLWSECK_test")
		resp, err := client.Initialize(ctx, initReq)
		require.NoError(t, err)
		assert.Equal(t, "https://checkout.flutterwave.com/abc", resp.AuthorizationURL)
	})

	t.Run("VerifyConvertsToMinorUnits", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/transactions/verify_by_reference", r.URL.Path)
			assert.Equal(t, "ref-0001", r.URL.Query().Get("tx_ref"))
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "success",
				"data": map[string]interface{}{
					"status": "successful", "amount": 102.00, "currency": "USD",
				},
			})
		}))
		defer srv.Close()

		client := NewFlutterwaveClient(srv.URL, "FLWSECK_test")
		result, err := client.Verify(ctx, "ref-0001")
		require.NoError(t, err)
		assert.True(t, result.Paid)
		assert.Equal(t, int64(10_200), result.Amount)
	})
}

func TestCryptoClient(t *testing.T) {
	ctx := context.Background()

	t.Run("Initialize", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/charges", r.URL.Path)
			assert.Equal(t, "ck_test", r.Header.Get("X-Api-Key"))
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]string{"hosted_url": "https://commerce.example/charges/abc"})
		}))
		defer srv.Close()

		client := NewCryptoClient(srv.URL, "ck_test")
		resp, err := client.Initialize(ctx, initReq)
		require.NoError(t, err)
		assert.Equal(t, "https://commerce.example/charges/abc", resp.AuthorizationURL)
	})

	t.Run("VerifyPendingIsNotPaid", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/charges/ref-0001", r.URL.Path)
			json.NewEncoder(w).Encode(map[string]interface{}{"status": "pending", "amount": 10_200})
		}))
		defer srv.Close()

		client := NewCryptoClient(srv.URL, "ck_test")
		result, err := client.Verify(ctx, "ref-0001")
		require.NoError(t, err)
		assert.False(t, result.Paid)
	})

	t.Run("VerifyConfirmed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "confirmed", "amount": 10_200, "currency": "USD",
				"confirmed_at": "2026-08-29T12:00:00Z",
			})
		}))
		defer srv.Close()

		client := NewCryptoClient(srv.URL, "ck_test")
		result, err := client.Verify(ctx, "ref-0001")
		require.NoError(t, err)
		assert.True(t, result.Paid)
		assert.Equal(t, int64(10_200), result.Amount)
	})
}
