package store

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrDuplicateOrderNumber = errors.New("order number already exists")
	ErrDuplicateReference   = errors.New("payment reference already assigned")
)

// OutOfStockError reports a line whose requested quantity exceeds stock.
type OutOfStockError struct {
	ProductID primitive.ObjectID
	Available int
	Requested int
}

func (e OutOfStockError) Error() string {
	return fmt.Sprintf("product %s out of stock: requested %d, available %d", e.ProductID.Hex(), e.Requested, e.Available)
}

// ProductNotFoundError reports a line referencing a missing or deleted product.
type ProductNotFoundError struct {
	ProductID primitive.ObjectID
}

func (e ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID.Hex())
}
