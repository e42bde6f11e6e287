// Package checkout implements order intake, payment initiation/verification and
// the reconciliation of payment confirmations arriving from the client callback
// and the gateway webhook. Both confirmation paths funnel into ConfirmPayment;
// the storage layer's conditional update decides which one wins.
package checkout

import (
	"context"
	"errors"
	"log"
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
	"storefront/internal/paystack"
	"storefront/internal/store"
)

// Gateway is the slice of the payment gateway the checkout flow consumes.
type Gateway interface {
	Initialize(ctx context.Context, req paystack.InitializeRequest) (*paystack.Authorization, error)
	Verify(ctx context.Context, reference string) (*paystack.Transaction, error)
}

// Notifier receives the downstream fan-out after a payment outcome is
// persisted. Implementations are best-effort and must not return errors.
type Notifier interface {
	PaymentReceived(ctx context.Context, order *models.Order)
	PaymentFailed(ctx context.Context, order *models.Order)
}

type Config struct {
	Currency    string
	DeliveryFee float64
	CallbackURL string
}

type Service struct {
	store    store.OrderStore
	gateway  Gateway
	notifier Notifier
	cfg      Config
}

func NewService(st store.OrderStore, gateway Gateway, notifier Notifier, cfg Config) *Service {
	return &Service{store: st, gateway: gateway, notifier: notifier, cfg: cfg}
}

// CheckoutInput is a validated checkout request: the cart lines plus the
// shipping form. BillingAddress nil means "same as shipping".
type CheckoutInput struct {
	UserID          primitive.ObjectID
	Items           []store.CheckoutItem
	ShippingAddress models.OrderAddress
	BillingAddress  *models.OrderAddress
	PaymentMethod   string
}

// PlaceOrder persists a new pending order with snapshotted line items. The
// order number is regenerated and retried when the unique index reports a
// collision, so two near-simultaneous checkouts can never share a number.
func (s *Service) PlaceOrder(ctx context.Context, in CheckoutInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyCart
	}
	for _, item := range in.Items {
		if item.Quantity < 1 {
			return nil, ErrEmptyCart
		}
	}
	if err := validateAddress(in.ShippingAddress); err != nil {
		return nil, err
	}

	billing := in.ShippingAddress
	if in.BillingAddress != nil {
		billing = *in.BillingAddress
	}

	now := time.Now()
	order := &models.Order{
		UserID:          in.UserID,
		ShippingAddress: in.ShippingAddress,
		BillingAddress:  billing,
		DeliveryFee:     s.cfg.DeliveryFee,
		Status:          models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
		PaymentMethod:   in.PaymentMethod,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	// Up to three attempts; in practice the first succeeds and the retry only
	// fires on an order-number collision under concurrent checkout.
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		order.OrderNumber = NewOrderNumber()
		err = s.store.CreateOrder(ctx, order, in.Items)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, store.ErrDuplicateOrderNumber) {
			return nil, err
		}
		log.Println("[CHECKOUT] [WARN] order number collision, regenerating:", order.OrderNumber)
	}
	return nil, err
}

// InitiatePayment obtains a gateway authorization for the order, bound to the
// order number as the gateway-side reference. Idempotent per order: once a
// session is stored it is returned as-is on every later call.
func (s *Service) InitiatePayment(ctx context.Context, orderNumber string) (*paystack.Authorization, error) {
	order, err := s.store.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if order.PaymentFinalized() {
		return nil, ErrAlreadyFinalized
	}
	if order.PaymentReference != "" {
		return &paystack.Authorization{
			AuthorizationURL: order.PaymentAuthorizationURL,
			AccessCode:       order.PaymentAccessCode,
			Reference:        order.PaymentReference,
		}, nil
	}

	auth, err := s.gateway.Initialize(ctx, paystack.InitializeRequest{
		AmountMinor: MinorUnits(order.TotalAmount),
		Currency:    s.cfg.Currency,
		Email:       order.ShippingAddress.Email,
		Reference:   order.OrderNumber,
		CallbackURL: s.cfg.CallbackURL,
		Metadata: map[string]any{
			"orderNumber": order.OrderNumber,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.SetPaymentSession(ctx, orderNumber, auth.Reference, auth.AccessCode, auth.AuthorizationURL); err != nil {
		if errors.Is(err, store.ErrDuplicateReference) {
			// A concurrent initiation stored its session first; use that one.
			current, readErr := s.store.GetOrderByNumber(ctx, orderNumber)
			if readErr != nil {
				return nil, readErr
			}
			return &paystack.Authorization{
				AuthorizationURL: current.PaymentAuthorizationURL,
				AccessCode:       current.PaymentAccessCode,
				Reference:        current.PaymentReference,
			}, nil
		}
		return nil, err
	}
	return auth, nil
}

// ConfirmPayment resolves a confirmation signal for the given gateway
// reference. It re-verifies with the gateway (never trusting the caller's view
// of the outcome) and applies the result through a conditional update, so the
// client callback and the webhook can race freely: exactly one of them performs
// the transition, the other gets ErrAlreadyFinalized as a clean no-op.
func (s *Service) ConfirmPayment(ctx context.Context, reference string) (*models.Order, error) {
	order, err := s.store.GetOrderByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if order.PaymentFinalized() {
		return order, ErrAlreadyFinalized
	}

	tx, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		// Timeout or gateway failure: the order stays pending for manual
		// reconciliation. Never assume success, never mark failed.
		return nil, err
	}

	if tx.Status != paystack.TransactionStatusSuccess {
		return s.applyFailure(ctx, order)
	}

	expected := MinorUnits(order.TotalAmount)
	if tx.AmountMinor != expected {
		// A "success" for the wrong amount is not a confirmation. Leave the
		// order pending and flag it for support.
		log.Printf("[CHECKOUT] [ERROR] amount mismatch for %s: gateway %d, order %d",
			order.OrderNumber, tx.AmountMinor, expected)
		return order, ErrVerificationFailed
	}

	applied, err := s.store.CompletePayment(ctx, order.OrderNumber)
	if err != nil {
		return nil, err
	}

	final, err := s.store.GetOrderByNumber(ctx, order.OrderNumber)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Lost the race: the other path finalized first.
		return final, ErrAlreadyFinalized
	}

	s.notifier.PaymentReceived(ctx, final)
	log.Println("[CHECKOUT] [INFO] payment completed for order:", final.OrderNumber)
	return final, nil
}

func (s *Service) applyFailure(ctx context.Context, order *models.Order) (*models.Order, error) {
	applied, err := s.store.FailPayment(ctx, order.OrderNumber)
	if err != nil {
		return nil, err
	}

	final, readErr := s.store.GetOrderByNumber(ctx, order.OrderNumber)
	if readErr != nil {
		return nil, readErr
	}
	if !applied {
		return final, ErrAlreadyFinalized
	}

	s.notifier.PaymentFailed(ctx, final)
	log.Println("[CHECKOUT] [INFO] payment failed for order:", final.OrderNumber)
	return final, ErrVerificationFailed
}

// MinorUnits converts a major-unit amount to the gateway's integer minor units
// (GHS 500.00 -> 50000 pesewas).
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func validateAddress(addr models.OrderAddress) error {
	required := []string{
		addr.FirstName,
		addr.LastName,
		addr.Address,
		addr.City,
		addr.Region,
		addr.Phone,
		addr.Email,
	}
	for _, field := range required {
		if strings.TrimSpace(field) == "" {
			return ErrInvalidAddress
		}
	}
	return nil
}
