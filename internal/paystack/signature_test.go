package paystack

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifySignature(t *testing.T) {
	secret := "sk_test_secret"
	body := []byte(`{"event":"charge.success","data":{"reference":"ORD-1"}}`)

	assert.NoError(t, VerifySignature(secret, body, Sign(secret, body)))
}

func TestVerifySignatureRejectsTampering(t *testing.T) {
	secret := "sk_test_secret"
	body := []byte(`{"event":"charge.success","data":{"reference":"ORD-1","amount":50000}}`)
	signature := Sign(secret, body)

	tampered := []byte(`{"event":"charge.success","data":{"reference":"ORD-1","amount":1}}`)
	assert.ErrorIs(t, VerifySignature(secret, tampered, signature), ErrSignatureInvalid)
	assert.ErrorIs(t, VerifySignature("wrong-secret", body, signature), ErrSignatureInvalid)
	assert.ErrorIs(t, VerifySignature(secret, body, ""), ErrSignatureInvalid)
	assert.ErrorIs(t, VerifySignature(secret, body, "deadbeef"), ErrSignatureInvalid)
}
