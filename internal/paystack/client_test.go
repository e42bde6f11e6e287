package paystack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_abc", r.Header.Get("Authorization"))

		var req InitializeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(50000), req.AmountMinor)
		assert.Equal(t, "GHS", req.Currency)
		assert.Equal(t, "ORD-20260829-ABCD1234", req.Reference)

		json.NewEncoder(w).Encode(map[string]any{
			"status":  true,
			"message": "Authorization URL created",
			"data": map[string]any{
				"authorization_url": "https://checkout.paystack.com/xyz",
				"access_code":       "xyz",
				"reference":         req.Reference,
			},
		})
	}))
	defer server.Close()

	client := NewClient("sk_test_abc", server.URL)
	auth, err := client.Initialize(context.Background(), InitializeRequest{
		AmountMinor: 50000,
		Currency:    "GHS",
		Email:       "ama@example.com",
		Reference:   "ORD-20260829-ABCD1234",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.paystack.com/xyz", auth.AuthorizationURL)
	assert.Equal(t, "xyz", auth.AccessCode)
	assert.Equal(t, "ORD-20260829-ABCD1234", auth.Reference)
}

func TestVerifySuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/transaction/verify/ORD-1", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"status":  true,
			"message": "Verification successful",
			"data": map[string]any{
				"reference": "ORD-1",
				"status":    "success",
				"amount":    50000,
				"currency":  "GHS",
				"channel":   "mobile_money",
			},
		})
	}))
	defer server.Close()

	client := NewClient("sk_test_abc", server.URL)
	tx, err := client.Verify(context.Background(), "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, TransactionStatusSuccess, tx.Status)
	assert.Equal(t, int64(50000), tx.AmountMinor)
	assert.Equal(t, "mobile_money", tx.Channel)
}

func TestVerifyDeclined(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status":  true,
			"message": "Verification successful",
			"data": map[string]any{
				"reference": "ORD-2",
				"status":    "failed",
				"amount":    50000,
			},
		})
	}))
	defer server.Close()

	client := NewClient("sk_test_abc", server.URL)
	tx, err := client.Verify(context.Background(), "ORD-2")
	require.NoError(t, err)
	assert.NotEqual(t, TransactionStatusSuccess, tx.Status)
}

func TestNon2xxIsGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient("sk_test_abc", server.URL)
	_, err := client.Verify(context.Background(), "ORD-3")
	assert.ErrorIs(t, err, ErrGateway)
}

func TestEnvelopeFalseIsGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status":  false,
			"message": "Transaction reference not found",
		})
	}))
	defer server.Close()

	client := NewClient("sk_test_abc", server.URL)
	_, err := client.Verify(context.Background(), "ORD-4")
	assert.ErrorIs(t, err, ErrGateway)
}

func TestTimeoutIsDistinguished(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient("sk_test_abc", server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Verify(ctx, "ORD-5")
	assert.ErrorIs(t, err, ErrGatewayTimeout)
}
