// Package sms sends transactional text messages through an HTTP SMS gateway.
// Delivery is fire-and-forget: callers log failures and move on.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var ErrSendFailed = errors.New("sms send failed")

type Client struct {
	apiURL      string
	apiKey      string
	senderID    string
	countryCode string
	httpClient  *http.Client
}

func NewClient(apiURL, apiKey, senderID, countryCode string) *Client {
	return &Client{
		apiURL:      apiURL,
		apiKey:      apiKey,
		senderID:    senderID,
		countryCode: countryCode,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

type sendRequest struct {
	Sender     string   `json:"sender"`
	Message    string   `json:"message"`
	Recipients []string `json:"recipients"`
}

// Send delivers one message to the given recipients. Phone numbers are
// normalized to international format before the request is made.
func (c *Client) Send(ctx context.Context, message string, recipients ...string) error {
	if c.apiURL == "" {
		return fmt.Errorf("%w: sms gateway not configured", ErrSendFailed)
	}

	normalized := make([]string, 0, len(recipients))
	for _, recipient := range recipients {
		phone := NormalizePhone(recipient, c.countryCode)
		if phone == "" {
			continue
		}
		normalized = append(normalized, phone)
	}
	if len(normalized) == 0 {
		return fmt.Errorf("%w: no valid recipients", ErrSendFailed)
	}

	body, err := json.Marshal(sendRequest{
		Sender:     c.senderID,
		Message:    message,
		Recipients: normalized,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: gateway returned %d", ErrSendFailed, resp.StatusCode)
	}
	return nil
}

// NormalizePhone converts a local phone number to international format: spaces
// and a leading "+" are stripped, and a leading "0" is replaced with the
// country calling code (0244xxxxxx -> 233244xxxxxx).
func NormalizePhone(phone, countryCode string) string {
	cleaned := strings.ReplaceAll(strings.TrimSpace(phone), " ", "")
	cleaned = strings.ReplaceAll(cleaned, "-", "")
	cleaned = strings.TrimPrefix(cleaned, "+")
	if cleaned == "" {
		return ""
	}
	if strings.HasPrefix(cleaned, "0") {
		return countryCode + cleaned[1:]
	}
	return cleaned
}
