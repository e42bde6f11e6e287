package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/checkout"
	"storefront/internal/models"
	"storefront/internal/store"
)

type shippingAddressRequest struct {
	FirstName  string `json:"firstName" binding:"required"`
	LastName   string `json:"lastName" binding:"required"`
	Address    string `json:"address" binding:"required"`
	City       string `json:"city" binding:"required"`
	Region     string `json:"region" binding:"required"`
	PostalCode string `json:"postalCode"`
	Phone      string `json:"phone" binding:"required,phone"`
	Email      string `json:"email" binding:"required,email"`
}

type checkoutRequest struct {
	ShippingAddress shippingAddressRequest  `json:"shippingAddress" binding:"required"`
	BillingAddress  *shippingAddressRequest `json:"billingAddress"`
	PaymentMethod   string                  `json:"paymentMethod" binding:"required"`
}

// Checkout turns the customer's server-side cart into a pending order and
// returns the gateway authorization the client should redirect to. The cart is
// cleared only after both the order and the payment session exist.
func Checkout(db *mongo.Database, svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /checkout"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req checkoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}
		if req.PaymentMethod != "card" && req.PaymentMethod != "mobile_money" {
			respondWithError(c, http.StatusBadRequest, route, "invalid payment method")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()

		cart, err := loadCart(ctx, db, userID)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		items := make([]store.CheckoutItem, 0, len(cart.Items))
		for _, item := range cart.Items {
			items = append(items, store.CheckoutItem{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
			})
		}

		billing := addressFromShippingRequest(req.BillingAddress)
		order, err := svc.PlaceOrder(ctx, checkout.CheckoutInput{
			UserID:          userID,
			Items:           items,
			ShippingAddress: *addressFromShippingRequest(&req.ShippingAddress),
			BillingAddress:  billing,
			PaymentMethod:   req.PaymentMethod,
		})
		if err != nil {
			respondCheckoutError(c, route, err)
			return
		}

		auth, err := svc.InitiatePayment(ctx, order.OrderNumber)
		if err != nil {
			// The pending order survives; the client can retry initiation for
			// the same order number instead of creating a duplicate order.
			log.Println("[CHECKOUT] [ERROR] payment initiation failed:", err)
			c.JSON(http.StatusBadGateway, gin.H{
				"error":       "payment could not be initiated, please try again",
				"orderNumber": order.OrderNumber,
			})
			return
		}

		if err := clearCart(ctx, db, userID); err != nil {
			log.Println("[CHECKOUT] [ERROR] cart clear failed:", err)
		}

		c.JSON(http.StatusCreated, gin.H{
			"orderNumber":      order.OrderNumber,
			"totalAmount":      order.TotalAmount,
			"deliveryFee":      order.DeliveryFee,
			"authorizationUrl": auth.AuthorizationURL,
			"reference":        auth.Reference,
		})
	}
}

// RetryPayment re-issues the gateway authorization for a pending order whose
// initiation failed or whose redirect was abandoned. Idempotent: once a session
// exists the stored one is returned, so retrying never creates a second payable
// session for the same order.
func RetryPayment(orders store.OrderStore, svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /checkout/:orderNumber/pay"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()

		order, err := orders.GetOrderByNumber(ctx, c.Param("orderNumber"))
		if err != nil {
			if errors.Is(err, store.ErrOrderNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
				return
			}
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if order.UserID != userID {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}

		auth, err := svc.InitiatePayment(ctx, order.OrderNumber)
		if err != nil {
			if errors.Is(err, checkout.ErrAlreadyFinalized) {
				c.JSON(http.StatusConflict, gin.H{
					"error":         "payment already finalized",
					"orderNumber":   order.OrderNumber,
					"paymentStatus": order.PaymentStatus,
				})
				return
			}
			log.Println("[CHECKOUT] [ERROR] payment re-initiation failed:", err)
			c.JSON(http.StatusBadGateway, gin.H{
				"error":       "payment could not be initiated, please try again",
				"orderNumber": order.OrderNumber,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"orderNumber":      order.OrderNumber,
			"totalAmount":      order.TotalAmount,
			"deliveryFee":      order.DeliveryFee,
			"authorizationUrl": auth.AuthorizationURL,
			"reference":        auth.Reference,
		})
	}
}

// ConfirmPayment is the client-side confirmation path, hit after the gateway
// redirects the customer back. The gateway's word, not the redirect, decides
// the outcome. Ownership is checked before anything is verified or written, so
// a foreign reference can never be driven to a terminal state through this
// endpoint.
func ConfirmPayment(orders store.OrderStore, svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /checkout/confirm"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		reference := c.Query("reference")
		if reference == "" {
			respondWithError(c, http.StatusBadRequest, route, "reference is required")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()

		owned, err := orders.GetOrderByReference(ctx, reference)
		if err != nil {
			if errors.Is(err, store.ErrOrderNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
				return
			}
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if owned.UserID != userID {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}

		order, err := svc.ConfirmPayment(ctx, reference)
		if err != nil && !errors.Is(err, checkout.ErrAlreadyFinalized) && !errors.Is(err, checkout.ErrVerificationFailed) {
			respondCheckoutError(c, route, err)
			return
		}

		if order.PaymentStatus == models.PaymentStatusCompleted {
			c.JSON(http.StatusOK, gin.H{
				"orderNumber":   order.OrderNumber,
				"status":        order.Status,
				"paymentStatus": order.PaymentStatus,
			})
			return
		}

		if order.PaymentStatus == models.PaymentStatusFailed {
			c.JSON(http.StatusOK, gin.H{
				"orderNumber":   order.OrderNumber,
				"status":        order.Status,
				"paymentStatus": order.PaymentStatus,
				"message":       "payment was not successful; please place a new order to try again",
			})
			return
		}

		// Pending with a verification problem: leave for manual reconciliation.
		c.JSON(http.StatusBadGateway, gin.H{
			"orderNumber":   order.OrderNumber,
			"paymentStatus": order.PaymentStatus,
			"error":         "payment could not be confirmed, please contact support",
		})
	}
}

func respondCheckoutError(c *gin.Context, route string, err error) {
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		respondWithError(c, http.StatusBadRequest, route, "cart is empty")
	case errors.Is(err, checkout.ErrInvalidAddress):
		respondWithError(c, http.StatusBadRequest, route, "shipping address is incomplete")
	case errors.Is(err, store.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
	default:
		var stockErr store.OutOfStockError
		if errors.As(err, &stockErr) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "insufficient stock",
				"productId": stockErr.ProductID.Hex(),
				"available": stockErr.Available,
				"requested": stockErr.Requested,
			})
			return
		}
		var notFoundErr store.ProductNotFoundError
		if errors.As(err, &notFoundErr) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "product not found",
				"productId": notFoundErr.ProductID.Hex(),
			})
			return
		}
		log.Printf("[%s] checkout error: %v", route, err)
		respondWithError(c, http.StatusBadGateway, route, "payment could not be confirmed, please contact support")
	}
}

func addressFromShippingRequest(req *shippingAddressRequest) *models.OrderAddress {
	if req == nil {
		return nil
	}
	return &models.OrderAddress{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Address:    req.Address,
		City:       req.City,
		Region:     req.Region,
		PostalCode: req.PostalCode,
		Phone:      req.Phone,
		Email:      req.Email,
	}
}
