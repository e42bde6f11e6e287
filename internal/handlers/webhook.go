package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"storefront/internal/checkout"
	"storefront/internal/paystack"
	"storefront/internal/store"
)

// PaystackWebhook receives asynchronous transaction events from the gateway.
// The HMAC signature over the raw body is the only trust mechanism: a mismatch
// is rejected with no state change. Processing is idempotent, so the gateway
// retrying delivery (or racing the client confirmation) is harmless.
func PaystackWebhook(svc *checkout.Service, webhookSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /webhooks/paystack"
		defer handlePanic(c, route)

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "unreadable body")
			return
		}

		signature := c.GetHeader(paystack.SignatureHeader)
		if err := paystack.VerifySignature(webhookSecret, body, signature); err != nil {
			log.Printf("[%s] rejected: %v", route, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
			return
		}

		var event paystack.WebhookEvent
		if err := json.Unmarshal(body, &event); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "malformed payload")
			return
		}

		if event.Event != paystack.EventChargeSuccess {
			// Not an event this system acts on; acknowledge so the gateway
			// stops retrying.
			c.JSON(http.StatusOK, gin.H{"message": "ignored"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()

		order, err := svc.ConfirmPayment(ctx, event.Data.Reference)
		switch {
		case err == nil:
			log.Printf("[%s] order %s completed", route, order.OrderNumber)
			c.JSON(http.StatusOK, gin.H{"message": "processed"})
		case errors.Is(err, checkout.ErrAlreadyFinalized):
			c.JSON(http.StatusOK, gin.H{"message": "already processed"})
		case errors.Is(err, store.ErrOrderNotFound):
			// No order will ever match this reference; retrying cannot help.
			log.Printf("[%s] unknown reference %s", route, event.Data.Reference)
			c.JSON(http.StatusOK, gin.H{"message": "ignored"})
		case errors.Is(err, checkout.ErrVerificationFailed):
			// The signed event said success but verification disagreed; the
			// order stays pending/failed as recorded. Acknowledged.
			c.JSON(http.StatusOK, gin.H{"message": "not confirmed"})
		default:
			// Transient failure (gateway or storage): non-2xx so the gateway
			// redelivers later.
			log.Printf("[%s] processing failed: %v", route, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		}
	}
}
