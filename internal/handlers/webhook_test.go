package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/checkout"
	"storefront/internal/models"
	"storefront/internal/paystack"
	"storefront/internal/store"
)

const webhookSecret = "sk_test_webhook"

type stubGateway struct {
	amountMinor int64
	status      string
	verifyCalls int
}

func (g *stubGateway) Initialize(_ context.Context, req paystack.InitializeRequest) (*paystack.Authorization, error) {
	g.amountMinor = req.AmountMinor
	return &paystack.Authorization{
		AuthorizationURL: "https://checkout.paystack.com/" + req.Reference,
		AccessCode:       "ac_" + req.Reference,
		Reference:        req.Reference,
	}, nil
}

func (g *stubGateway) Verify(_ context.Context, reference string) (*paystack.Transaction, error) {
	g.verifyCalls++
	status := g.status
	if status == "" {
		status = paystack.TransactionStatusSuccess
	}
	return &paystack.Transaction{
		Reference:   reference,
		Status:      status,
		AmountMinor: g.amountMinor,
		Currency:    "GHS",
	}, nil
}

type silentNotifier struct{}

func (silentNotifier) PaymentReceived(context.Context, *models.Order) {}
func (silentNotifier) PaymentFailed(context.Context, *models.Order)  {}

func newWebhookFixture(t *testing.T) (*gin.Engine, *store.Memory, *models.Order) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mem := store.NewMemory()
	product := &models.Product{Name: "Cooking Oil 1L", Price: 45, Stock: 10, IsActive: true}
	mem.SeedProduct(product)

	svc := checkout.NewService(mem, &stubGateway{}, silentNotifier{}, checkout.Config{
		Currency:    "GHS",
		DeliveryFee: 5,
		CallbackURL: "https://shop.example/checkout/confirm",
	})

	order, err := svc.PlaceOrder(context.Background(), checkout.CheckoutInput{
		UserID: primitive.NewObjectID(),
		Items:  []store.CheckoutItem{{ProductID: product.ID, Quantity: 2}},
		ShippingAddress: models.OrderAddress{
			FirstName: "Ama",
			LastName:  "Mensah",
			Address:   "12 High Street",
			City:      "Accra",
			Region:    "Greater Accra",
			Phone:     "0244123456",
			Email:     "ama@example.com",
		},
		PaymentMethod: "mobile_money",
	})
	require.NoError(t, err)
	_, err = svc.InitiatePayment(context.Background(), order.OrderNumber)
	require.NoError(t, err)

	r := gin.New()
	r.POST("/webhooks/paystack", PaystackWebhook(svc, webhookSecret))
	return r, mem, order
}

func signedEvent(t *testing.T, event string, reference string) ([]byte, string) {
	t.Helper()
	body, err := json.Marshal(paystack.WebhookEvent{
		Event: event,
		Data:  paystack.WebhookData{Reference: reference, Status: "success"},
	})
	require.NoError(t, err)
	return body, paystack.Sign(webhookSecret, body)
}

func postWebhook(r *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/paystack", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set(paystack.SignatureHeader, signature)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookCompletesOrder(t *testing.T) {
	r, mem, order := newWebhookFixture(t)
	body, signature := signedEvent(t, paystack.EventChargeSuccess, order.OrderNumber)

	w := postWebhook(r, body, signature)
	assert.Equal(t, http.StatusOK, w.Code)

	final, err := mem.GetOrderByNumber(context.Background(), order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, final.PaymentStatus)
	assert.Equal(t, models.OrderStatusProcessing, final.Status)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	r, mem, order := newWebhookFixture(t)
	body, _ := signedEvent(t, paystack.EventChargeSuccess, order.OrderNumber)

	w := postWebhook(r, body, paystack.Sign("wrong-secret", body))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postWebhook(r, body, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Neither attempt may touch the order.
	current, err := mem.GetOrderByNumber(context.Background(), order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, current.PaymentStatus)
}

func TestWebhookRejectsTamperedBody(t *testing.T) {
	r, mem, order := newWebhookFixture(t)
	body, signature := signedEvent(t, paystack.EventChargeSuccess, order.OrderNumber)

	tampered := bytes.Replace(body, []byte(order.OrderNumber), []byte("ORD-00000000-FFFFFFFF"), 1)
	w := postWebhook(r, tampered, signature)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	current, err := mem.GetOrderByNumber(context.Background(), order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, current.PaymentStatus)
}

func TestWebhookRedeliveryIsIdempotent(t *testing.T) {
	r, mem, order := newWebhookFixture(t)
	body, signature := signedEvent(t, paystack.EventChargeSuccess, order.OrderNumber)

	first := postWebhook(r, body, signature)
	assert.Equal(t, http.StatusOK, first.Code)

	second := postWebhook(r, body, signature)
	assert.Equal(t, http.StatusOK, second.Code)

	final, err := mem.GetOrderByNumber(context.Background(), order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, final.PaymentStatus)
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	r, mem, order := newWebhookFixture(t)
	body, signature := signedEvent(t, "transfer.success", order.OrderNumber)

	w := postWebhook(r, body, signature)
	assert.Equal(t, http.StatusOK, w.Code)

	current, err := mem.GetOrderByNumber(context.Background(), order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, current.PaymentStatus)
}

func TestWebhookUnknownReferenceAcknowledged(t *testing.T) {
	r, _, _ := newWebhookFixture(t)
	body, signature := signedEvent(t, paystack.EventChargeSuccess, "ORD-00000000-DEADBEEF")

	// 200 so the gateway stops retrying a reference that will never match.
	w := postWebhook(r, body, signature)
	assert.Equal(t, http.StatusOK, w.Code)
}
