package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

// Memory is a mutex-guarded OrderStore with the same conditional-update
// semantics as the Mongo implementation. It backs the checkout tests.
type Memory struct {
	mu       sync.Mutex
	products map[primitive.ObjectID]*models.Product
	orders   map[string]*models.Order
	byRef    map[string]string

	// CreateOrderHook, when set, runs inside CreateOrder after stock validation
	// and before anything is committed. Returning an error simulates a write
	// failure mid-creation; the store must leave no partial state behind.
	CreateOrderHook func(order *models.Order) error
}

func NewMemory() *Memory {
	return &Memory{
		products: make(map[primitive.ObjectID]*models.Product),
		orders:   make(map[string]*models.Order),
		byRef:    make(map[string]string),
	}
}

// SeedProduct loads a catalog entry for tests.
func (s *Memory) SeedProduct(product *models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	s.products[product.ID] = product
}

// ProductStock reports current stock for a seeded product.
func (s *Memory) ProductStock(id primitive.ObjectID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.products[id]; ok {
		return p.Stock
	}
	return 0
}

// OrderCount reports how many orders have been persisted.
func (s *Memory) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *Memory) CreateOrder(_ context.Context, order *models.Order, items []CheckoutItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[order.OrderNumber]; exists {
		return ErrDuplicateOrderNumber
	}

	snapshot := make([]models.OrderItem, 0, len(items))
	itemsTotal := 0.0
	for _, item := range items {
		product, ok := s.products[item.ProductID]
		if !ok || product.IsDeleted {
			return ProductNotFoundError{ProductID: item.ProductID}
		}
		if product.Stock < item.Quantity {
			return OutOfStockError{
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
	}

	order.Items = snapshot
	order.TotalAmount = itemsTotal + order.DeliveryFee

	if s.CreateOrderHook != nil {
		if err := s.CreateOrderHook(order); err != nil {
			return err
		}
	}

	// Commit: decrement stock and persist in one step under the lock.
	for _, item := range items {
		s.products[item.ProductID].Stock -= item.Quantity
	}
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	stored := *order
	s.orders[order.OrderNumber] = &stored
	return nil
}

func (s *Memory) GetOrderByNumber(_ context.Context, orderNumber string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(orderNumber)
}

func (s *Memory) GetOrderByReference(_ context.Context, reference string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	orderNumber, ok := s.byRef[reference]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return s.getLocked(orderNumber)
}

func (s *Memory) getLocked(orderNumber string) (*models.Order, error) {
	order, ok := s.orders[orderNumber]
	if !ok {
		return nil, ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (s *Memory) SetPaymentSession(_ context.Context, orderNumber, reference, accessCode, authorizationURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderNumber]
	if !ok {
		return ErrOrderNotFound
	}
	if order.PaymentReference != "" {
		if order.PaymentReference == reference {
			return nil
		}
		return ErrDuplicateReference
	}
	if owner, taken := s.byRef[reference]; taken && owner != orderNumber {
		return ErrDuplicateReference
	}

	order.PaymentReference = reference
	order.PaymentAccessCode = accessCode
	order.PaymentAuthorizationURL = authorizationURL
	order.UpdatedAt = time.Now()
	s.byRef[reference] = orderNumber
	return nil
}

func (s *Memory) CompletePayment(_ context.Context, orderNumber string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderNumber]
	if !ok {
		return false, nil
	}
	if order.PaymentStatus != models.PaymentStatusPending {
		return false, nil
	}
	order.PaymentStatus = models.PaymentStatusCompleted
	// Fulfillment only advances out of pending; a cancelled order stays
	// cancelled even though the payment was captured.
	if order.Status == models.OrderStatusPending {
		order.Status = models.OrderStatusProcessing
	}
	order.UpdatedAt = time.Now()
	return true, nil
}

func (s *Memory) FailPayment(_ context.Context, orderNumber string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderNumber]
	if !ok {
		return false, nil
	}
	if order.PaymentStatus != models.PaymentStatusPending {
		return false, nil
	}
	order.PaymentStatus = models.PaymentStatusFailed
	order.UpdatedAt = time.Now()
	return true, nil
}

func (s *Memory) UpdateFulfillmentStatus(_ context.Context, orderNumber string, from, to models.OrderStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderNumber]
	if !ok {
		return false, nil
	}
	if order.Status != from {
		return false, nil
	}
	order.Status = to
	order.UpdatedAt = time.Now()
	return true, nil
}

func (s *Memory) ListOrdersByUser(_ context.Context, userID primitive.ObjectID, page, limit int64) ([]models.Order, error) {
	return s.listWhere(func(o *models.Order) bool { return o.UserID == userID }, page, limit)
}

func (s *Memory) ListOrders(_ context.Context, status models.OrderStatus, page, limit int64) ([]models.Order, error) {
	return s.listWhere(func(o *models.Order) bool { return status == "" || o.Status == status }, page, limit)
}

func (s *Memory) listWhere(match func(*models.Order) bool, page, limit int64) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]models.Order, 0, len(s.orders))
	for _, order := range s.orders {
		if match(order) {
			all = append(all, *order)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	start := (page - 1) * limit
	if start >= int64(len(all)) {
		return []models.Order{}, nil
	}
	end := start + limit
	if end > int64(len(all)) {
		end = int64(len(all))
	}
	return all[start:end], nil
}
