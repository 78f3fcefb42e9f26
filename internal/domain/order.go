package domain

import (
	"context"
	"time"
)

// OrderStatusPending is the only status in the current lifecycle. Further
// states (paid, shipped, cancelled) are reserved.
const OrderStatusPending = "pending"

// Order represents a placed order. TotalPrice is the unit price at order
// time multiplied by quantity; later price changes do not touch it.
type Order struct {
	ID         int64
	UserID     int64
	ProductID  int64
	Quantity   int
	TotalPrice float64
	Status     string
	CreatedAt  time.Time
}

// OrderRepository defines data access for orders.
//
// Place is the one multi-step mutation in the system: it must decrement the
// product's stock and insert the order row as a single atomic unit, and
// refuse the decrement when stock is short. Implementations back this with
// the store's own transaction primitive, not an in-process lock.
type OrderRepository interface {
	Place(ctx context.Context, order *Order) error
	ListByUser(userID int64) ([]*Order, error)
	CountPending() (int, error)
}
