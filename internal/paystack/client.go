// Package paystack is a minimal client for the two gateway operations checkout
// consumes: initializing a transaction and verifying one by reference.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const (
	defaultBaseURL = "https://api.paystack.co"
	requestTimeout = 15 * time.Second
)

var (
	// ErrGateway covers non-2xx and malformed gateway responses.
	ErrGateway = errors.New("payment gateway error")
	// ErrGatewayTimeout is surfaced separately so callers never mistake a
	// timed-out verification for a success or a decline.
	ErrGatewayTimeout = errors.New("payment gateway timeout")
)

// TransactionStatusSuccess is the only gateway status accepted as payment
// confirmation.
const TransactionStatusSuccess = "success"

type Client struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

func NewClient(secretKey string, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		secretKey:  secretKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// InitializeRequest describes a new payable session. Amount is in minor
// currency units (pesewas/kobo). Reference is the order number.
type InitializeRequest struct {
	AmountMinor int64          `json:"amount"`
	Currency    string         `json:"currency"`
	Email       string         `json:"email"`
	Reference   string         `json:"reference"`
	CallbackURL string         `json:"callback_url,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Authorization is the handle the customer is redirected to.
type Authorization struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// Transaction is the authoritative gateway-side view of a payment.
type Transaction struct {
	Reference   string `json:"reference"`
	Status      string `json:"status"`
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
	PaidAt      string `json:"paid_at"`
	Channel     string `json:"channel"`
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Initialize creates a payable session bound to the request's reference.
func (c *Client) Initialize(ctx context.Context, req InitializeRequest) (*Authorization, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	var auth Authorization
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", bytes.NewReader(body), &auth); err != nil {
		return nil, err
	}
	return &auth, nil
}

// Verify queries the gateway for the authoritative status of a transaction.
// It is a pure read; the caller decides what to persist.
func (c *Client) Verify(ctx context.Context, reference string) (*Transaction, error) {
	var tx Transaction
	if err := c.do(ctx, http.MethodGet, "/transaction/verify/"+reference, nil, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: %s %s", ErrGatewayTimeout, method, path)
		}
		return fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s %s returned %d", ErrGateway, method, path, resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%w: malformed response: %v", ErrGateway, err)
	}
	if !env.Status {
		return fmt.Errorf("%w: %s", ErrGateway, env.Message)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: malformed data: %v", ErrGateway, err)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
