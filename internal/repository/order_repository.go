package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/storefront/internal/domain"
)

// PostgresOrderRepository implements domain.OrderRepository using PostgreSQL
type PostgresOrderRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresOrderRepository creates a new order repository
func NewPostgresOrderRepository(db *sql.DB, logger *slog.Logger) *PostgresOrderRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresOrderRepository{
		db:     db,
		logger: logger,
	}
}

// Place atomically decrements the product's stock and inserts the order row.
//
// The decrement is conditional: UPDATE ... WHERE quantity >= requested. Zero
// rows affected means either the product is gone or its stock is short, so
// the transaction rolls back without touching anything. The unit price is
// read back from the same UPDATE, which keeps the total a snapshot of the
// price at the instant the stock was taken. Two concurrent calls against the
// same product serialize on the row lock the UPDATE acquires; the loser
// re-evaluates the quantity condition against the committed stock.
func (r *PostgresOrderRepository) Place(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var price float64
	err = tx.QueryRowContext(ctx, `
		UPDATE products
		SET quantity = quantity - $1, updated_at = now()
		WHERE id = $2 AND quantity >= $1
		RETURNING price
	`, order.Quantity, order.ProductID).Scan(&price)

	if errors.Is(err, sql.ErrNoRows) {
		// Distinguish a missing product from short stock for the caller.
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`,
			order.ProductID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check product: %w", err)
		}
		if !exists {
			return domain.ErrProductNotFound
		}
		return domain.ErrInsufficientStock
	}
	if err != nil {
		r.logger.Error("failed to decrement stock",
			slog.Int64("product_id", order.ProductID),
			slog.Int("quantity", order.Quantity),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	order.TotalPrice = price * float64(order.Quantity)
	order.Status = domain.OrderStatusPending

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (user_id, product_id, quantity, total_price, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, order.UserID, order.ProductID, order.Quantity, order.TotalPrice, order.Status).
		Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}

	return nil
}

// ListByUser returns the orders owned by a user, newest first
func (r *PostgresOrderRepository) ListByUser(userID int64) ([]*domain.Order, error) {
	query := `
		SELECT id, user_id, product_id, quantity, total_price, status, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		r.logger.Error("failed to list orders",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order := &domain.Order{}
		err := rows.Scan(
			&order.ID,
			&order.UserID,
			&order.ProductID,
			&order.Quantity,
			&order.TotalPrice,
			&order.Status,
			&order.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	return orders, rows.Err()
}

// CountPending returns the number of orders still in the pending state
func (r *PostgresOrderRepository) CountPending() (int, error) {
	var n int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM orders WHERE status = $1`,
		domain.OrderStatusPending,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending orders: %w", err)
	}
	return n, nil
}
