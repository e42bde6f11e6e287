package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
)

// Mongo is the production OrderStore. Atomicity of order creation comes from a
// session transaction; payment transitions use conditional UpdateOne filters
// checked via ModifiedCount.
type Mongo struct {
	db *mongo.Database
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{db: db}
}

func (s *Mongo) CreateOrder(ctx context.Context, order *models.Order, items []CheckoutItem) error {
	session, err := s.db.Client().StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		snapshot := make([]models.OrderItem, 0, len(items))
		itemsTotal := 0.0

		for _, item := range items {
			var product models.Product
			err := s.db.Collection("products").FindOne(
				sessCtx,
				bson.M{
					"_id":       item.ProductID,
					"isDeleted": bson.M{"$ne": true},
				},
			).Decode(&product)
			if err == mongo.ErrNoDocuments {
				return nil, ProductNotFoundError{ProductID: item.ProductID}
			}
			if err != nil {
				return nil, err
			}

			if product.Stock < item.Quantity {
				return nil, OutOfStockError{
					ProductID: item.ProductID,
					Available: product.Stock,
					Requested: item.Quantity,
				}
			}

			unitPrice := product.EffectivePrice()
			snapshot = append(snapshot, models.OrderItem{
				ProductID: item.ProductID,
				Name:      product.Name,
				Price:     unitPrice,
				Quantity:  item.Quantity,
			})
			itemsTotal += unitPrice * float64(item.Quantity)

			filter := bson.M{
				"_id":       item.ProductID,
				"isDeleted": bson.M{"$ne": true},
				"stock":     bson.M{"$gte": item.Quantity},
			}
			update := bson.M{"$inc": bson.M{"stock": -item.Quantity}}

			res, err := s.db.Collection("products").UpdateOne(sessCtx, filter, update)
			if err != nil {
				return nil, err
			}
			if res.MatchedCount == 0 {
				return nil, OutOfStockError{
					ProductID: item.ProductID,
					Available: product.Stock,
					Requested: item.Quantity,
				}
			}
		}

		order.Items = snapshot
		order.TotalAmount = itemsTotal + order.DeliveryFee

		res, err := s.db.Collection("orders").InsertOne(sessCtx, order)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, ErrDuplicateOrderNumber
			}
			return nil, err
		}
		if id, ok := res.InsertedID.(primitive.ObjectID); ok {
			order.ID = id
		}
		return nil, nil
	})
	return err
}

func (s *Mongo) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	return s.findOne(ctx, bson.M{"orderNumber": orderNumber})
}

func (s *Mongo) GetOrderByReference(ctx context.Context, reference string) (*models.Order, error) {
	return s.findOne(ctx, bson.M{"paymentReference": reference})
}

func (s *Mongo) findOne(ctx context.Context, filter bson.M) (*models.Order, error) {
	var order models.Order
	err := s.db.Collection("orders").FindOne(ctx, filter).Decode(&order)
	if err == mongo.ErrNoDocuments {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Mongo) SetPaymentSession(ctx context.Context, orderNumber, reference, accessCode, authorizationURL string) error {
	filter := bson.M{
		"orderNumber":      orderNumber,
		"paymentReference": bson.M{"$exists": false},
	}
	update := bson.M{"$set": bson.M{
		"paymentReference":        reference,
		"paymentAccessCode":       accessCode,
		"paymentAuthorizationUrl": authorizationURL,
		"updatedAt":               time.Now(),
	}}

	res, err := s.db.Collection("orders").UpdateOne(ctx, filter, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateReference
		}
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}

	// Either the order does not exist or it already carries a session.
	order, err := s.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		return err
	}
	if order.PaymentReference == reference {
		return nil
	}
	return ErrDuplicateReference
}

func (s *Mongo) CompletePayment(ctx context.Context, orderNumber string) (bool, error) {
	filter := bson.M{
		"orderNumber":   orderNumber,
		"paymentStatus": models.PaymentStatusPending,
	}
	// Pipeline update: the payment axis flips unconditionally, but fulfillment
	// only ever advances out of pending. An order cancelled before the
	// confirmation arrived keeps its cancelled status; the captured payment is
	// left for manual refund.
	update := bson.A{
		bson.M{"$set": bson.M{
			"paymentStatus": models.PaymentStatusCompleted,
			"status": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$status", models.OrderStatusPending}},
				models.OrderStatusProcessing,
				"$status",
			}},
			"updatedAt": time.Now(),
		}},
	}

	res, err := s.db.Collection("orders").UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (s *Mongo) FailPayment(ctx context.Context, orderNumber string) (bool, error) {
	filter := bson.M{
		"orderNumber":   orderNumber,
		"paymentStatus": models.PaymentStatusPending,
	}
	update := bson.M{"$set": bson.M{
		"paymentStatus": models.PaymentStatusFailed,
		"updatedAt":     time.Now(),
	}}

	res, err := s.db.Collection("orders").UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (s *Mongo) UpdateFulfillmentStatus(ctx context.Context, orderNumber string, from, to models.OrderStatus) (bool, error) {
	filter := bson.M{
		"orderNumber": orderNumber,
		"status":      from,
	}
	update := bson.M{"$set": bson.M{
		"status":    to,
		"updatedAt": time.Now(),
	}}

	res, err := s.db.Collection("orders").UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (s *Mongo) ListOrdersByUser(ctx context.Context, userID primitive.ObjectID, page, limit int64) ([]models.Order, error) {
	return s.list(ctx, bson.M{"userId": userID}, page, limit)
}

func (s *Mongo) ListOrders(ctx context.Context, status models.OrderStatus, page, limit int64) ([]models.Order, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	return s.list(ctx, filter, page, limit)
}

func (s *Mongo) list(ctx context.Context, filter bson.M, page, limit int64) ([]models.Order, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := s.db.Collection("orders").Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}
