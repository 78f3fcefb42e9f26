package domain

import "time"

// Product represents a catalog item with its available stock
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       float64 // Non-negative unit price
	Quantity    int     // Stock on hand, never negative
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProductPatch carries a partial update. Nil fields are left unchanged.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *float64
	Quantity    *int
}

// ProductRepository defines data access for products
type ProductRepository interface {
	Create(product *Product) error
	GetByID(id int64) (*Product, error)
	List(offset, limit int) ([]*Product, error)
	Update(id int64, patch ProductPatch) (*Product, error)
	Delete(id int64) error
	Count() (int, error)
}
