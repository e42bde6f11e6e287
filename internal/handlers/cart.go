package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
)

type cartItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gte=1"`
}

// GetCart returns the customer's cart, creating nothing: a missing document is
// an empty cart.
func GetCart(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /cart"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cart, err := loadCart(ctx, db, userID)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"cart":     cart,
			"subtotal": cart.Subtotal(),
		})
	}
}

// AddCartItem puts a product in the cart (or replaces its quantity). The unit
// price is resolved from the catalog server-side; quantity is capped by stock.
func AddCartItem(db *mongo.Database) gin.HandlerFunc {
	return upsertCartItem(db, "POST /cart/items", func(req cartItemRequest, c *gin.Context) (primitive.ObjectID, int, bool) {
		productID, err := primitive.ObjectIDFromHex(req.ProductID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid productId"})
			return primitive.NilObjectID, 0, false
		}
		return productID, req.Quantity, true
	})
}

// UpdateCartItem changes the quantity of an existing cart line.
func UpdateCartItem(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /cart/items/:productId"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		productID, err := primitive.ObjectIDFromHex(c.Param("productId"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid productId"})
			return
		}

		var req struct {
			Quantity int `json:"quantity" binding:"required,gte=1"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cart, err := loadCart(ctx, db, userID)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		found := false
		for _, item := range cart.Items {
			if item.ProductID == productID {
				found = true
				break
			}
		}
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "item not in cart"})
			return
		}

		if !applyCartLine(c, ctx, db, cart, productID, req.Quantity, route) {
			return
		}
		respondCart(c, ctx, db, userID, cart, route)
	}
}

func RemoveCartItem(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /cart/items/:productId"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		productID, err := primitive.ObjectIDFromHex(c.Param("productId"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid productId"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cart, err := loadCart(ctx, db, userID)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		cart.RemoveItem(productID)
		respondCart(c, ctx, db, userID, cart, route)
	}
}

func ClearCart(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /cart"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := clearCart(ctx, db, userID); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "cart cleared"})
	}
}

func upsertCartItem(db *mongo.Database, route string, parse func(cartItemRequest, *gin.Context) (primitive.ObjectID, int, bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req cartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		productID, quantity, ok := parse(req, c)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cart, err := loadCart(ctx, db, userID)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		if !applyCartLine(c, ctx, db, cart, productID, quantity, route) {
			return
		}
		respondCart(c, ctx, db, userID, cart, route)
	}
}

// applyCartLine validates the product and stock, then sets the line on the
// aggregate with the current effective price. Responds and returns false on
// validation failure.
func applyCartLine(c *gin.Context, ctx context.Context, db *mongo.Database, cart *models.Cart, productID primitive.ObjectID, quantity int, route string) bool {
	var product models.Product
	err := db.Collection("products").FindOne(ctx, bson.M{
		"_id":       productID,
		"isActive":  bson.M{"$ne": false},
		"isDeleted": bson.M{"$ne": true},
	}).Decode(&product)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product not found"})
		return false
	}
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, route, "db error")
		return false
	}

	if product.Stock < quantity {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "insufficient stock",
			"productId": productID.Hex(),
			"available": product.Stock,
			"requested": quantity,
		})
		return false
	}

	cart.SetItem(models.CartItem{
		ProductID: productID,
		Name:      product.Name,
		Price:     product.EffectivePrice(),
		Quantity:  quantity,
	})
	return true
}

func respondCart(c *gin.Context, ctx context.Context, db *mongo.Database, userID primitive.ObjectID, cart *models.Cart, route string) {
	if err := saveCart(ctx, db, userID, cart); err != nil {
		respondWithError(c, http.StatusInternalServerError, route, "db error")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"cart":     cart,
		"subtotal": cart.Subtotal(),
	})
}

func loadCart(ctx context.Context, db *mongo.Database, userID primitive.ObjectID) (*models.Cart, error) {
	var cart models.Cart
	err := db.Collection("carts").FindOne(ctx, bson.M{"userId": userID}).Decode(&cart)
	if err == mongo.ErrNoDocuments {
		return &models.Cart{UserID: userID, Items: []models.CartItem{}}, nil
	}
	if err != nil {
		return nil, err
	}
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	return &cart, nil
}

func saveCart(ctx context.Context, db *mongo.Database, userID primitive.ObjectID, cart *models.Cart) error {
	cart.UserID = userID
	cart.UpdatedAt = time.Now()
	opts := options.Replace().SetUpsert(true)
	_, err := db.Collection("carts").ReplaceOne(ctx, bson.M{"userId": userID}, cart, opts)
	return err
}

func clearCart(ctx context.Context, db *mongo.Database, userID primitive.ObjectID) error {
	_, err := db.Collection("carts").DeleteOne(ctx, bson.M{"userId": userID})
	return err
}
