package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"storefront/internal/models"
	"storefront/internal/store"
)

// GetAllOrders lists orders for the back office, optionally filtered by
// fulfillment status.
func GetAllOrders(orders store.OrderStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/orders"
		defer handlePanic(c, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid pagination params")
			return
		}

		status := models.OrderStatus(c.Query("status"))
		if status != "" && !models.ValidOrderStatus(status) {
			respondWithError(c, http.StatusBadRequest, route, "invalid status filter")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		result, err := orders.ListOrders(ctx, status, page, limit)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

type orderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

// UpdateOrderStatus advances the fulfillment axis. The payment axis is owned by
// reconciliation and is never touched here. The write is conditional on the
// order still being in the status the admin saw, so concurrent updates cannot
// skip states.
func UpdateOrderStatus(orders store.OrderStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /admin/api/orders/:orderNumber/status"
		defer handlePanic(c, route)

		var req orderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}
		if !models.ValidOrderStatus(req.Status) {
			respondWithError(c, http.StatusBadRequest, route, "unknown status")
			return
		}

		orderNumber := c.Param("orderNumber")

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		order, err := orders.GetOrderByNumber(ctx, orderNumber)
		if err != nil {
			if errors.Is(err, store.ErrOrderNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
				return
			}
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		if !order.Status.CanTransitionTo(req.Status) {
			c.JSON(http.StatusConflict, gin.H{
				"error": "invalid status transition",
				"from":  order.Status,
				"to":    req.Status,
			})
			return
		}

		applied, err := orders.UpdateFulfillmentStatus(ctx, orderNumber, order.Status, req.Status)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if !applied {
			c.JSON(http.StatusConflict, gin.H{"error": "order status changed concurrently, reload and retry"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"orderNumber": orderNumber,
			"status":      req.Status,
		})
	}
}
