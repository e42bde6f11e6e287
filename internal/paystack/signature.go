package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
)

// SignatureHeader carries the gateway's HMAC over the raw webhook body.
const SignatureHeader = "X-Paystack-Signature"

// ErrSignatureInvalid means a webhook request failed HMAC verification and must
// be rejected without any state change.
var ErrSignatureInvalid = errors.New("webhook signature invalid")

// VerifySignature checks the hex HMAC-SHA512 of the raw body against the header
// value using a constant-time comparison. The signature is the only trust
// mechanism for webhooks.
func VerifySignature(secret string, body []byte, signature string) error {
	if signature == "" {
		return ErrSignatureInvalid
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignatureInvalid
	}
	return nil
}

// Sign computes the hex HMAC-SHA512 a gateway would attach to body. Used by
// tests to build valid webhook requests.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// WebhookEvent is the payload pushed by the gateway on transaction events.
type WebhookEvent struct {
	Event string      `json:"event"`
	Data  WebhookData `json:"data"`
}

type WebhookData struct {
	Reference   string `json:"reference"`
	Status      string `json:"status"`
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
}

// EventChargeSuccess is the only webhook event reconciliation acts on.
const EventChargeSuccess = "charge.success"
