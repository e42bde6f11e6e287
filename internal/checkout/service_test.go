package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
	"storefront/internal/paystack"
	"storefront/internal/store"
)

type fakeGateway struct {
	mu          sync.Mutex
	initCalls   int
	verifyCalls int

	initErr   error
	verifyErr error

	// status/amount returned by Verify; amount 0 means "echo the initialized
	// amount".
	verifyStatus string
	verifyAmount int64

	initializedAmount int64
}

func (g *fakeGateway) Initialize(_ context.Context, req paystack.InitializeRequest) (*paystack.Authorization, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.initCalls++
	if g.initErr != nil {
		return nil, g.initErr
	}
	g.initializedAmount = req.AmountMinor
	return &paystack.Authorization{
		AuthorizationURL: "https://checkout.paystack.com/" + req.Reference,
		AccessCode:       "ac_" + req.Reference,
		Reference:        req.Reference,
	}, nil
}

func (g *fakeGateway) Verify(_ context.Context, reference string) (*paystack.Transaction, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifyCalls++
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	amount := g.verifyAmount
	if amount == 0 {
		amount = g.initializedAmount
	}
	status := g.verifyStatus
	if status == "" {
		status = paystack.TransactionStatusSuccess
	}
	return &paystack.Transaction{
		Reference:   reference,
		Status:      status,
		AmountMinor: amount,
		Currency:    "GHS",
	}, nil
}

type countingNotifier struct {
	received int32
	failed   int32
}

func (n *countingNotifier) PaymentReceived(context.Context, *models.Order) {
	atomic.AddInt32(&n.received, 1)
}

func (n *countingNotifier) PaymentFailed(context.Context, *models.Order) {
	atomic.AddInt32(&n.failed, 1)
}

func newTestService(t *testing.T) (*Service, *store.Memory, *fakeGateway, *countingNotifier) {
	t.Helper()
	mem := store.NewMemory()
	gw := &fakeGateway{}
	nt := &countingNotifier{}
	svc := NewService(mem, gw, nt, Config{
		Currency:    "GHS",
		DeliveryFee: 10,
		CallbackURL: "https://shop.example/checkout/confirm",
	})
	return svc, mem, gw, nt
}

func seedProduct(mem *store.Memory, price float64, stock int) primitive.ObjectID {
	p := &models.Product{Name: "Rice 5kg", Price: price, Stock: stock, IsActive: true}
	mem.SeedProduct(p)
	return p.ID
}

func placeTestOrder(t *testing.T, svc *Service, mem *store.Memory, price float64, quantity int) *models.Order {
	t.Helper()
	productID := seedProduct(mem, price, quantity+5)
	order, err := svc.PlaceOrder(context.Background(), CheckoutInput{
		UserID:          primitive.NewObjectID(),
		Items:           []store.CheckoutItem{{ProductID: productID, Quantity: quantity}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "card",
	})
	require.NoError(t, err)
	return order
}

func testAddress() models.OrderAddress {
	return models.OrderAddress{
		FirstName: "Ama",
		LastName:  "Mensah",
		Address:   "12 High Street",
		City:      "Accra",
		Region:    "Greater Accra",
		Phone:     "0244123456",
		Email:     "ama@example.com",
	}
}

func TestPlaceOrderSnapshotsItemsAndTotals(t *testing.T) {
	svc, mem, _, _ := newTestService(t)
	productID := seedProduct(mem, 490, 10)

	order, err := svc.PlaceOrder(context.Background(), CheckoutInput{
		UserID:          primitive.NewObjectID(),
		Items:           []store.CheckoutItem{{ProductID: productID, Quantity: 1}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "card",
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Rice 5kg", order.Items[0].Name)
	assert.Equal(t, 490.0, order.Items[0].Price)
	assert.Equal(t, 500.0, order.TotalAmount) // 490 + 10 delivery
	assert.Equal(t, 9, mem.ProductStock(productID))
	assert.NotEmpty(t, order.OrderNumber)
}

func TestPlaceOrderRejectsEmptyCartAndBadAddress(t *testing.T) {
	svc, mem, _, _ := newTestService(t)
	productID := seedProduct(mem, 20, 10)

	_, err := svc.PlaceOrder(context.Background(), CheckoutInput{
		UserID:          primitive.NewObjectID(),
		ShippingAddress: testAddress(),
		PaymentMethod:   "card",
	})
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = svc.PlaceOrder(context.Background(), CheckoutInput{
		UserID:          primitive.NewObjectID(),
		Items:           []store.CheckoutItem{{ProductID: productID, Quantity: 0}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "card",
	})
	assert.ErrorIs(t, err, ErrEmptyCart)

	addr := testAddress()
	addr.Phone = "   "
	_, err = svc.PlaceOrder(context.Background(), CheckoutInput{
		UserID:          primitive.NewObjectID(),
		Items:           []store.CheckoutItem{{ProductID: productID, Quantity: 1}},
		ShippingAddress: addr,
		PaymentMethod:   "card",
	})
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestPlaceOrderOutOfStockLeavesNothingBehind(t *testing.T) {
	svc, mem, _, _ := newTestService(t)
	productID := seedProduct(mem, 20, 2)

	_, err := svc.PlaceOrder(context.Background(), CheckoutInput{
		UserID:          primitive.NewObjectID(),
		Items:           []store.CheckoutItem{{ProductID: productID, Quantity: 3}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "card",
	})

	var stockErr store.OutOfStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 2, stockErr.Available)
	assert.Equal(t, 3, stockErr.Requested)
	assert.Equal(t, 2, mem.ProductStock(productID))
	assert.Equal(t, 0, mem.OrderCount())
}

func TestPlaceOrderWriteFailureLeavesNoPartialState(t *testing.T) {
	svc, mem, _, _ := newTestService(t)
	productID := seedProduct(mem, 20, 5)

	boom := errors.New("write failed")
	mem.CreateOrderHook = func(*models.Order) error { return boom }

	_, err := svc.PlaceOrder(context.Background(), CheckoutInput{
		UserID:          primitive.NewObjectID(),
		Items:           []store.CheckoutItem{{ProductID: productID, Quantity: 2}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "card",
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 5, mem.ProductStock(productID))
	assert.Equal(t, 0, mem.OrderCount())
}

func TestPlaceOrderRegeneratesNumberOnCollision(t *testing.T) {
	svc, mem, _, _ := newTestService(t)
	productID := seedProduct(mem, 20, 20)

	collisions := 0
	mem.CreateOrderHook = func(order *models.Order) error {
		if collisions < 2 {
			collisions++
			return store.ErrDuplicateOrderNumber
		}
		return nil
	}

	order, err := svc.PlaceOrder(context.Background(), CheckoutInput{
		UserID:          primitive.NewObjectID(),
		Items:           []store.CheckoutItem{{ProductID: productID, Quantity: 1}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "card",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, collisions)
	assert.NotEmpty(t, order.OrderNumber)
}

func TestConcurrentOrderNumbersAreUnique(t *testing.T) {
	svc, mem, _, _ := newTestService(t)
	productID := seedProduct(mem, 5, 1000)

	const workers = 50
	var wg sync.WaitGroup
	numbers := make(chan string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			order, err := svc.PlaceOrder(context.Background(), CheckoutInput{
				UserID:          primitive.NewObjectID(),
				Items:           []store.CheckoutItem{{ProductID: productID, Quantity: 1}},
				ShippingAddress: testAddress(),
				PaymentMethod:   "card",
			})
			if err == nil {
				numbers <- order.OrderNumber
			}
		}()
	}
	wg.Wait()
	close(numbers)

	seen := map[string]bool{}
	for number := range numbers {
		assert.False(t, seen[number], "duplicate order number %s", number)
		seen[number] = true
	}
	assert.Equal(t, workers, len(seen))
}

func TestInitiatePaymentIsIdempotent(t *testing.T) {
	svc, mem, gw, _ := newTestService(t)
	order := placeTestOrder(t, svc, mem, 490, 1)

	first, err := svc.InitiatePayment(context.Background(), order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, first.Reference)
	assert.Equal(t, int64(50000), gw.initializedAmount) // GHS 500.00 in pesewas

	second, err := svc.InitiatePayment(context.Background(), order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, first.Reference, second.Reference)
	assert.Equal(t, first.AuthorizationURL, second.AuthorizationURL)
	assert.Equal(t, 1, gw.initCalls, "gateway must be hit once per order")
}

func TestInitiatePaymentGatewayFailureKeepsOrderRetryable(t *testing.T) {
	svc, mem, gw, _ := newTestService(t)
	order := placeTestOrder(t, svc, mem, 100, 1)

	gw.initErr = paystack.ErrGatewayTimeout
	_, err := svc.InitiatePayment(context.Background(), order.OrderNumber)
	require.ErrorIs(t, err, paystack.ErrGatewayTimeout)

	gw.initErr = nil
	auth, err := svc.InitiatePayment(context.Background(), order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, auth.Reference)
}

func TestConfirmPaymentSuccess(t *testing.T) {
	svc, mem, _, nt := newTestService(t)
	order := placeTestOrder(t, svc, mem, 490, 1)
	_, err := svc.InitiatePayment(context.Background(), order.OrderNumber)
	require.NoError(t, err)

	final, err := svc.ConfirmPayment(context.Background(), order.OrderNumber)
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusCompleted, final.PaymentStatus)
	assert.Equal(t, models.OrderStatusProcessing, final.Status)
	assert.Equal(t, int32(1), nt.received)
	assert.Equal(t, int32(0), nt.failed)
}

func TestConfirmPaymentTwiceNotifiesOnce(t *testing.T) {
	svc, mem, _, nt := newTestService(t)
	order := placeTestOrder(t, svc, mem, 490, 1)
	_, err := svc.InitiatePayment(context.Background(), order.OrderNumber)
	require.NoError(t, err)

	_, err = svc.ConfirmPayment(context.Background(), order.OrderNumber)
	require.NoError(t, err)

	final, err := svc.ConfirmPayment(context.Background(), order.OrderNumber)
	assert.ErrorIs(t, err, ErrAlreadyFinalized)
	assert.Equal(t, models.PaymentStatusCompleted, final.PaymentStatus)
	assert.Equal(t, int32(1), nt.received, "fan-out must run exactly once")
}

func TestConfirmPaymentRaceFansOutOnce(t *testing.T) {
	svc, mem, _, nt := newTestService(t)
	order := placeTestOrder(t, svc, mem, 250, 2)
	_, err := svc.InitiatePayment(context.Background(), order.OrderNumber)
	require.NoError(t, err)

	// Client callback and webhook arriving together.
	const racers = 10
	var wg sync.WaitGroup
	var wins int32
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.ConfirmPayment(context.Background(), order.OrderNumber); err == nil {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins, "exactly one path may perform the transition")
	assert.Equal(t, int32(1), nt.received)

	final, err := mem.GetOrderByNumber(context.Background(), order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, final.PaymentStatus)
}

func TestConfirmPaymentDeclineMarksFailedKeepsFulfillmentPending(t *testing.T) {
	svc, mem, gw, nt := newTestService(t)
	order := placeTestOrder(t, svc, mem, 100, 1)
	_, err := svc.InitiatePayment(context.Background(), order.OrderNumber)
	require.NoError(t, err)

	gw.verifyStatus = "failed"
	final, err := svc.ConfirmPayment(context.Background(), order.OrderNumber)
	assert.ErrorIs(t, err, ErrVerificationFailed)
	assert.Equal(t, models.PaymentStatusFailed, final.PaymentStatus)
	assert.Equal(t, models.OrderStatusPending, final.Status)
	assert.Equal(t, int32(1), nt.failed)
	assert.Equal(t, int32(0), nt.received)

	// Failed is terminal; a later "success" must not resurrect the order.
	gw.verifyStatus = paystack.TransactionStatusSuccess
	again, err := svc.ConfirmPayment(context.Background(), order.OrderNumber)
	assert.ErrorIs(t, err, ErrAlreadyFinalized)
	assert.Equal(t, models.PaymentStatusFailed, again.PaymentStatus)
	assert.Equal(t, int32(0), nt.received)
}

func TestConfirmPaymentGatewayErrorLeavesOrderPending(t *testing.T) {
	svc, mem, gw, nt := newTestService(t)
	order := placeTestOrder(t, svc, mem, 100, 1)
	_, err := svc.InitiatePayment(context.Background(), order.OrderNumber)
	require.NoError(t, err)

	gw.verifyErr = paystack.ErrGatewayTimeout
	_, err = svc.ConfirmPayment(context.Background(), order.OrderNumber)
	require.ErrorIs(t, err, paystack.ErrGatewayTimeout)

	current, err := mem.GetOrderByNumber(context.Background(), order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, current.PaymentStatus)
	assert.Equal(t, int32(0), nt.received)
	assert.Equal(t, int32(0), nt.failed)

	// Retry after the gateway recovers.
	gw.verifyErr = nil
	final, err := svc.ConfirmPayment(context.Background(), order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, final.PaymentStatus)
}

func TestConfirmPaymentAmountMismatchStaysPending(t *testing.T) {
	svc, mem, gw, nt := newTestService(t)
	order := placeTestOrder(t, svc, mem, 490, 1)
	_, err := svc.InitiatePayment(context.Background(), order.OrderNumber)
	require.NoError(t, err)

	gw.verifyAmount = 100 // gateway reports the wrong amount
	_, err = svc.ConfirmPayment(context.Background(), order.OrderNumber)
	assert.ErrorIs(t, err, ErrVerificationFailed)

	current, err := mem.GetOrderByNumber(context.Background(), order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, current.PaymentStatus)
	assert.Equal(t, int32(0), nt.received)
}

func TestConfirmPaymentAfterCancellationKeepsOrderCancelled(t *testing.T) {
	svc, mem, _, nt := newTestService(t)
	order := placeTestOrder(t, svc, mem, 100, 1)
	_, err := svc.InitiatePayment(context.Background(), order.OrderNumber)
	require.NoError(t, err)

	// Admin cancels the still-pending order before the confirmation lands.
	applied, err := mem.UpdateFulfillmentStatus(context.Background(), order.OrderNumber,
		models.OrderStatusPending, models.OrderStatusCancelled)
	require.NoError(t, err)
	require.True(t, applied)

	// The payment is recorded as captured, but cancellation is terminal: the
	// order must not come back to life as processing.
	final, err := svc.ConfirmPayment(context.Background(), order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, final.PaymentStatus)
	assert.Equal(t, models.OrderStatusCancelled, final.Status)
	assert.Equal(t, int32(1), nt.received)
}

func TestConfirmPaymentUnknownReference(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, err := svc.ConfirmPayment(context.Background(), "ORD-00000000-DEADBEEF")
	assert.ErrorIs(t, err, store.ErrOrderNotFound)
}

func TestMinorUnits(t *testing.T) {
	cases := []struct {
		amount float64
		want   int64
	}{
		{500.00, 50000},
		{0.01, 1},
		{19.99, 1999},
		{0, 0},
		{123.456, 12346},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%.3f", tc.amount), func(t *testing.T) {
			assert.Equal(t, tc.want, MinorUnits(tc.amount))
		})
	}
}
