package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/yourorg/storefront/internal/domain"
	"github.com/yourorg/storefront/internal/events"
	"github.com/yourorg/storefront/internal/observability/metrics"
)

// OrderService coordinates order placement and retrieval. The atomicity of
// stock check, decrement and order insert lives in the repository; this
// layer validates input, keeps caches honest and fans out events.
type OrderService struct {
	orderRepo   domain.OrderRepository
	catalog     *CatalogService
	broadcaster *events.Broadcaster
	logger      *slog.Logger
}

// NewOrderService creates an order service. catalog and broadcaster may be
// nil; placement then skips cache invalidation and event fan-out.
func NewOrderService(
	orderRepo domain.OrderRepository,
	catalog *CatalogService,
	broadcaster *events.Broadcaster,
	logger *slog.Logger,
) *OrderService {
	if logger == nil {
		logger = slog.Default()
	}

	return &OrderService{
		orderRepo:   orderRepo,
		catalog:     catalog,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// Place creates an order for the authenticated user. Either the stock
// decrement and the order row both commit, or neither does.
func (s *OrderService) Place(ctx context.Context, user *domain.User, productID int64, quantity int) (*domain.Order, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	order := &domain.Order{
		UserID:    user.ID,
		ProductID: productID,
		Quantity:  quantity,
	}

	if err := s.orderRepo.Place(ctx, order); err != nil {
		switch {
		case errors.Is(err, domain.ErrProductNotFound):
			metrics.ObserveOrder("product_not_found")
		case errors.Is(err, domain.ErrInsufficientStock):
			s.logger.Info("order rejected for insufficient stock",
				slog.String("username", user.Username),
				slog.Int64("product_id", productID),
				slog.Int("quantity", quantity),
			)
			metrics.ObserveOrder("insufficient_stock")
		default:
			s.logger.Error("order placement failed",
				slog.String("username", user.Username),
				slog.Int64("product_id", productID),
				slog.String("error", err.Error()),
			)
			metrics.ObserveOrder("error")
		}
		return nil, err
	}

	if s.catalog != nil {
		s.catalog.InvalidateProduct(ctx, productID)
	}
	if s.broadcaster != nil {
		s.broadcaster.Publish(events.OrderPlaced{
			OrderID:    order.ID,
			ProductID:  order.ProductID,
			Quantity:   order.Quantity,
			TotalPrice: order.TotalPrice,
			Username:   user.Username,
			CreatedAt:  order.CreatedAt,
		})
	}

	metrics.ObserveOrder("placed")
	s.logger.Info("order placed",
		slog.Int64("order_id", order.ID),
		slog.String("username", user.Username),
		slog.Int64("product_id", productID),
		slog.Int("quantity", quantity),
		slog.Float64("total_price", order.TotalPrice),
	)

	return order, nil
}

// ListForUser returns the caller's own orders and nothing else
func (s *OrderService) ListForUser(user *domain.User) ([]*domain.Order, error) {
	return s.orderRepo.ListByUser(user.ID)
}
